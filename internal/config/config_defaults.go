package config

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-3-flash-preview"

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// AI Configuration - Global defaults
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", DefaultModel)
	v.SetDefault("ai.timeout", 90*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.maxRetries", 2)
	v.SetDefault("ai.temperature", 0.4)
	v.SetDefault("ai.useSystemPrompts", true)

	// Analysis is a single request; the user resubmits on failure.
	v.SetDefault("ai.analyze.provider", "gemini")
	v.SetDefault("ai.analyze.model", "")
	v.SetDefault("ai.analyze.timeout", 120*time.Second)
	v.SetDefault("ai.analyze.maxRetries", 0)
	v.SetDefault("ai.analyze.temperature", 0.2)

	v.SetDefault("ai.prepDeck.provider", "gemini")
	v.SetDefault("ai.prepDeck.model", "")
	v.SetDefault("ai.prepDeck.timeout", 90*time.Second)
	v.SetDefault("ai.prepDeck.maxRetries", 1)
	v.SetDefault("ai.prepDeck.temperature", 0.5)

	v.SetDefault("ai.chat.provider", "gemini")
	v.SetDefault("ai.chat.model", "")
	v.SetDefault("ai.chat.timeout", 30*time.Second)
	v.SetDefault("ai.chat.maxRetries", 2)
	v.SetDefault("ai.chat.temperature", 0.7)

	for _, op := range []string{"analyze", "prepDeck", "chat"} {
		prefix := "ai." + op + ".circuitBreaker."
		v.SetDefault(prefix+"enabled", true)
		v.SetDefault(prefix+"maxRequests", 3)
		v.SetDefault(prefix+"interval", 60*time.Second)
		v.SetDefault(prefix+"timeout", 60*time.Second)
		v.SetDefault(prefix+"minRequests", 3)
		v.SetDefault(prefix+"failureThreshold", 0.6)
	}

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 150*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.tls.mode", "disabled")
	v.SetDefault("server.tls.minVersion", "1.2")
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.window", time.Minute)
	v.SetDefault("server.sessionTTL", 30*time.Minute)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown", "html"})
	v.SetDefault("app.maxFileSize", 10*1024*1024) // 10MB

	// Storage
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.path", "resumeforensics-state.json")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.autoMigrate", true)
	v.SetDefault("storage.watchFile", false)
	v.SetDefault("storage.debounceDelay", 500*time.Millisecond)

	// Session
	v.SetDefault("session.phaseInterval", 1200*time.Millisecond)
	v.SetDefault("session.historyLimit", 50)

	// Simulated payment
	v.SetDefault("payment.gatewayDelay", 800*time.Millisecond)
	v.SetDefault("payment.processingDelay", 1500*time.Millisecond)
	v.SetDefault("payment.price", "$9.99")

	v.SetDefault("admin.passphraseHash", "")

	// Export
	v.SetDefault("export.chromePath", "")
	v.SetDefault("export.headless", true)
	v.SetDefault("export.timeout", 45*time.Second)
	v.SetDefault("export.outputDir", ".")

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.geminiKey", "")
	v.SetDefault("vault.secrets.storageDSN", "")
	v.SetDefault("vault.secrets.adminPassphrase", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "resumeforensics")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.customMetrics.aiOperations.enabled", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackDuration", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackModelInfo", true)
	v.SetDefault("observability.customMetrics.businessMetrics.enabled", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackSuccessRates", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackContentSizes", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackStorage", true)
	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
	v.SetDefault("observability.healthCheck.aiModelCheckTimeout", 10*time.Second)
}
