package cli

import (
	"fmt"

	"resumeforensics/internal/config"
	"resumeforensics/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start an HTTP server exposing the analysis session over a JSON API.

Every /api/v1 request selects its session with the X-User-Email header.

Available endpoints:
- POST /api/v1/analyze: Submit a resume (multipart field "file" or JSON with base64 data)
- GET  /api/v1/report: Session status and the report (?format=json|text|markdown|html)
- POST /api/v1/unlock: Unlock the full report with a credit or payment
- POST /api/v1/reset: Clear the session
- GET  /api/v1/export/{pdf|docx}: Download an export of the unlocked report
- POST /api/v1/prepdeck: Generate the interview prep deck
- POST /api/v1/chat: Ask the career assistant
- GET  /api/v1/history: Stored analyses of the user
- GET  /api/v1/plans: Pricing plans
- GET  /health: Health check
- GET  /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server
- Use --cert-file and --key-file for TLS certificates`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
}

// applyServeFlags copies explicitly set flags over the loaded server config.
func applyServeFlags(flags *pflag.FlagSet, cfg *config.ServerConfig) {
	override := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	override("port", &cfg.Port)
	override("host", &cfg.Host)
	override("tls-mode", &cfg.TLS.Mode)
	override("cert-file", &cfg.TLS.CertFile)
	override("key-file", &cfg.TLS.KeyFile)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	applyServeFlags(cmd.Flags(), &cfg.Server)

	tempConfig := &config.Config{Server: cfg.Server}
	if err := tempConfig.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer closeRuntime(rt)

	services, err := rt.AI()
	if err != nil {
		return err
	}

	serverCfg := server.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        Version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.App.MaxFileSize,
		RateLimit:      &cfg.Server.RateLimit,
		SessionTTL:     cfg.Server.SessionTTL,
	}
	return server.NewServer(rt, server.BackendFromServices(services), serverCfg).Start()
}
