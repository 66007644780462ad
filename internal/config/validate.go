package config

import (
	"fmt"
	"os"
	"strings"
)

const minAPIKeyLength = 32

// ValidateAPIKey checks that the configured key is present and looks like
// a real secret key. A malformed key would only fail later on the first
// outbound call, so it is rejected at startup instead.
func ValidateAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("API key is required: set LLMWRAP_LLM_APIKEY or llm.apiKey")
	}
	if !strings.HasPrefix(key, "sk-") {
		return fmt.Errorf("API key must start with 'sk-'")
	}
	if len(key) < minAPIKeyLength {
		return fmt.Errorf("API key must be at least %d characters", minAPIKeyLength)
	}
	return nil
}

// LoadAllowedModels reads the allow-list file: one model per line, blank
// lines and #-comments ignored. An empty path means no restriction.
func LoadAllowedModels(path string) (map[string]bool, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read allowed models file %s: %w", path, err)
	}

	allowed := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		allowed[line] = true
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("allowed models file %s lists no models", path)
	}
	return allowed, nil
}

// LoadSystemPrompt reads the system prompt file. A missing or unreadable
// file is not fatal: the server runs without a system prompt, and the
// returned error lets the caller log a warning.
func LoadSystemPrompt(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt file %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Validate checks the effective configuration beyond the API key: the
// default model must be well-formed at the level the config layer can see,
// and the limits must be positive.
func (c Config) Validate() error {
	if err := ValidateAPIKey(c.LLM.APIKey); err != nil {
		return err
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("a default model is required")
	}
	if c.Limits.MaxPromptTokens <= 0 {
		return fmt.Errorf("limits.maxPromptTokens must be positive, got %d", c.Limits.MaxPromptTokens)
	}
	if c.Limits.MaxResponseTokens <= 0 {
		return fmt.Errorf("limits.maxResponseTokens must be positive, got %d", c.Limits.MaxResponseTokens)
	}
	return nil
}
