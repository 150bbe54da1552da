package config

// Operation names used for per-operation AI configuration.
const (
	OperationAnalyze  = "analyze"
	OperationPrepDeck = "prepDeck"
	OperationChat     = "chat"
)

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil {
		timeout := c.AI.Timeout
		opCfg.Timeout = &timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.MaxRetries == nil {
		retries := c.AI.MaxRetries
		opCfg.MaxRetries = &retries
	}
	if opCfg.Temperature == nil {
		temp := c.AI.Temperature
		opCfg.Temperature = &temp
	}
	if opCfg.UseSystemPrompts == nil {
		use := c.AI.UseSystemPrompts
		opCfg.UseSystemPrompts = &use
	}
}

// GetAnalyzeConfig returns the AI configuration for resume analysis with fallback to global config
func (c *Config) GetAnalyzeConfig() OperationAIConfig {
	config := c.AI.Analyze
	c.applyOperationDefaults(&config)
	return config
}

// GetPrepDeckConfig returns the AI configuration for interview prep decks
func (c *Config) GetPrepDeckConfig() OperationAIConfig {
	config := c.AI.PrepDeck
	c.applyOperationDefaults(&config)
	return config
}

// GetChatConfig returns the AI configuration for the career assistant
func (c *Config) GetChatConfig() OperationAIConfig {
	config := c.AI.Chat
	c.applyOperationDefaults(&config)
	return config
}

// GetOperationConfig resolves an operation name to its effective configuration.
func (c *Config) GetOperationConfig(operation string) (OperationAIConfig, bool) {
	switch operation {
	case OperationAnalyze:
		return c.GetAnalyzeConfig(), true
	case OperationPrepDeck:
		return c.GetPrepDeckConfig(), true
	case OperationChat:
		return c.GetChatConfig(), true
	default:
		return OperationAIConfig{}, false
	}
}
