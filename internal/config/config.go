// Package config loads and validates the server configuration from YAML
// files, environment variables, and CLI overrides.
package config

// Config represents the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	LLM        LLMConfig        `yaml:"llm"`
	Limits     LimitsConfig     `yaml:"limits"`
	Accounting AccountingConfig `yaml:"accounting"`
	Security   SecurityConfig   `yaml:"security"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig identifies the server on the protocol handshake.
type ServerConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// LLMConfig configures the outbound completion gateway.
type LLMConfig struct {
	Model             string `yaml:"model"`
	BaseURL           string `yaml:"baseURL"`
	APIKey            string `yaml:"apiKey"`
	SystemPromptFile  string `yaml:"systemPromptFile"`
	AllowedModelsFile string `yaml:"allowedModelsFile"`
}

// LimitsConfig bounds prompts and responses.
type LimitsConfig struct {
	MaxPromptTokens   int `yaml:"maxPromptTokens"`
	MaxResponseTokens int `yaml:"maxResponseTokens"`
}

// AccountingConfig configures usage tracking and the audit trail. Usage
// and audit toggles are independent; both share one database.
type AccountingConfig struct {
	Enabled      bool   `yaml:"enabled"`
	AuditEnabled bool   `yaml:"auditEnabled"`
	Path         string `yaml:"path"`

	// RateLimiting is accepted for config compatibility. Enforcement is
	// deferred to the upstream API, which returns 429 with Retry-After.
	RateLimiting bool `yaml:"rateLimiting"`
}

// SecurityConfig configures outbound content checks.
type SecurityConfig struct {
	SkipOutboundChecks bool `yaml:"skipOutboundChecks"`
}

// LoggingConfig configures the diagnostic log sink. Stdout carries only
// protocol traffic, so File empty means stderr.
type LoggingConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// Merge combines multiple configuration instances, prioritising the latter ones.
func Merge(configs ...Config) Config {
	result := Config{}
	for _, cfg := range configs {
		result = merge(result, cfg)
	}
	return result
}

func merge(base, overlay Config) Config {
	result := base

	result.Server = chooseServer(base.Server, overlay.Server)
	result.LLM = chooseLLM(base.LLM, overlay.LLM)
	result.Limits = chooseLimits(base.Limits, overlay.Limits)
	result.Accounting = chooseAccounting(base.Accounting, overlay.Accounting)
	result.Security = chooseSecurity(base.Security, overlay.Security)
	result.Logging = chooseLogging(base.Logging, overlay.Logging)

	return result
}

func chooseServer(base, overlay ServerConfig) ServerConfig {
	result := base
	if overlay.Name != "" {
		result.Name = overlay.Name
	}
	if overlay.Description != "" {
		result.Description = overlay.Description
	}
	return result
}

func chooseLLM(base, overlay LLMConfig) LLMConfig {
	result := base
	if overlay.Model != "" {
		result.Model = overlay.Model
	}
	if overlay.BaseURL != "" {
		result.BaseURL = overlay.BaseURL
	}
	if overlay.APIKey != "" {
		result.APIKey = overlay.APIKey
	}
	if overlay.SystemPromptFile != "" {
		result.SystemPromptFile = overlay.SystemPromptFile
	}
	if overlay.AllowedModelsFile != "" {
		result.AllowedModelsFile = overlay.AllowedModelsFile
	}
	return result
}

func chooseLimits(base, overlay LimitsConfig) LimitsConfig {
	result := base
	if overlay.MaxPromptTokens != 0 {
		result.MaxPromptTokens = overlay.MaxPromptTokens
	}
	if overlay.MaxResponseTokens != 0 {
		result.MaxResponseTokens = overlay.MaxResponseTokens
	}
	return result
}

func chooseAccounting(base, overlay AccountingConfig) AccountingConfig {
	if overlay.Enabled || overlay.AuditEnabled || overlay.Path != "" || overlay.RateLimiting {
		return overlay
	}
	return base
}

func chooseSecurity(base, overlay SecurityConfig) SecurityConfig {
	if overlay.SkipOutboundChecks {
		return overlay
	}
	return base
}

func chooseLogging(base, overlay LoggingConfig) LoggingConfig {
	result := base
	if overlay.File != "" {
		result.File = overlay.File
	}
	if overlay.Level != "" {
		result.Level = overlay.Level
	}
	return result
}
