package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Defaults that apply when neither file, environment, nor flags set a value.
const (
	DefaultModel             = "openai/gpt-4o-mini"
	DefaultBaseURL           = "https://openrouter.ai/api/v1"
	DefaultMaxPromptTokens   = 100
	DefaultMaxResponseTokens = 4096
	DefaultServerName        = "llmwrap"
	DefaultServerDescription = "An MCP server that forwards prompts to a remote LLM API"
)

// LoaderOptions describes how configuration should be discovered.
type LoaderOptions struct {
	ConfigPaths []string
	FileName    string
	EnvPrefix   string
}

// Load returns the merged configuration from files and environment variables.
func Load(opts LoaderOptions) (Config, error) {
	v := viper.New()

	name := opts.FileName
	if name == "" {
		name = "llmwrap"
	}

	configFile := locateConfigFile(name, opts.ConfigPaths)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(name)
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = "LLMWRAP"
	}
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)
	bindEnvKeys(v)

	setDefaults(v)

	if configFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	// Expand environment variables in config values
	cfg = expandEnvVars(cfg)

	return cfg, nil
}

// expandEnvVars expands ${VAR} and $VAR syntax in configuration strings.
func expandEnvVars(cfg Config) Config {
	cfg.Server.Name = expandEnvString(cfg.Server.Name)
	cfg.Server.Description = expandEnvString(cfg.Server.Description)

	cfg.LLM.Model = expandEnvString(cfg.LLM.Model)
	cfg.LLM.BaseURL = expandEnvString(cfg.LLM.BaseURL)
	cfg.LLM.APIKey = expandEnvString(cfg.LLM.APIKey)
	cfg.LLM.SystemPromptFile = expandEnvString(cfg.LLM.SystemPromptFile)
	cfg.LLM.AllowedModelsFile = expandEnvString(cfg.LLM.AllowedModelsFile)

	cfg.Accounting.Path = expandEnvString(cfg.Accounting.Path)

	cfg.Logging.File = expandEnvString(cfg.Logging.File)
	cfg.Logging.Level = expandEnvString(cfg.Logging.Level)

	return cfg
}

// expandEnvString replaces ${VAR} or $VAR with environment variable values.
func expandEnvString(s string) string {
	if s == "" {
		return s
	}

	// Replace ${VAR} syntax
	re := regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1] // Remove ${ and }
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Keep original if not found
	})

	// Replace $VAR syntax (without braces)
	re = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:] // Remove $
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Keep original if not found
	})

	return s
}

func locateConfigFile(name string, paths []string) string {
	searchPaths := append([]string{}, paths...)
	searchPaths = append(searchPaths, ".")
	for _, dir := range searchPaths {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name+".yaml")
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// bindEnvKeys registers every config key with viper explicitly.
// AutomaticEnv alone does not surface env values through Unmarshal for
// keys that have neither a default nor a config-file entry, so a key like
// llm.apiKey (deliberately defaultless) would never see LLMWRAP_LLM_APIKEY.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.name", "server.description",
		"llm.model", "llm.baseURL", "llm.apiKey",
		"llm.systemPromptFile", "llm.allowedModelsFile",
		"limits.maxPromptTokens", "limits.maxResponseTokens",
		"accounting.enabled", "accounting.auditEnabled",
		"accounting.path", "accounting.rateLimiting",
		"security.skipOutboundChecks",
		"logging.file", "logging.level",
	} {
		_ = v.BindEnv(key)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", DefaultServerName)
	v.SetDefault("server.description", DefaultServerDescription)

	v.SetDefault("llm.model", DefaultModel)
	v.SetDefault("llm.baseURL", DefaultBaseURL)

	v.SetDefault("limits.maxPromptTokens", DefaultMaxPromptTokens)
	v.SetDefault("limits.maxResponseTokens", DefaultMaxResponseTokens)

	v.SetDefault("accounting.enabled", true)
	v.SetDefault("accounting.auditEnabled", true)
	v.SetDefault("accounting.path", defaultAccountingPath())
	v.SetDefault("accounting.rateLimiting", true)

	v.SetDefault("security.skipOutboundChecks", false)

	v.SetDefault("logging.level", "info")
}

func defaultAccountingPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./accounting.db"
	}
	return filepath.Join(home, ".config", "llmwrap", "accounting.db")
}
