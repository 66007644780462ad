package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{Name: "llmwrap"},
		LLM: LLMConfig{
			Model:  "openai/gpt-4o-mini",
			APIKey: "sk-validvalidvalidvalidvalidvalid1",
		},
		Limits: LimitsConfig{MaxPromptTokens: 100, MaxResponseTokens: 4096},
	}
}

func TestMergeOverlayWins(t *testing.T) {
	base := Config{
		Server: ServerConfig{Name: "llmwrap", Description: "base description"},
		LLM:    LLMConfig{Model: "openai/gpt-4o-mini", BaseURL: "https://openrouter.ai/api/v1"},
		Limits: LimitsConfig{MaxPromptTokens: 100, MaxResponseTokens: 4096},
	}
	overlay := Config{
		Server: ServerConfig{Name: "custom"},
		LLM:    LLMConfig{Model: "perplexity/sonar"},
		Limits: LimitsConfig{MaxPromptTokens: 500},
	}

	merged := Merge(base, overlay)

	assert.Equal(t, "custom", merged.Server.Name)
	assert.Equal(t, "base description", merged.Server.Description, "unset overlay fields keep base values")
	assert.Equal(t, "perplexity/sonar", merged.LLM.Model)
	assert.Equal(t, "https://openrouter.ai/api/v1", merged.LLM.BaseURL)
	assert.Equal(t, 500, merged.Limits.MaxPromptTokens)
	assert.Equal(t, 4096, merged.Limits.MaxResponseTokens)
}

func TestValidate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("missing API key", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLM.APIKey = ""
		assert.ErrorContains(t, cfg.Validate(), "API key is required")
	})

	t.Run("wrong key prefix", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLM.APIKey = "api-validvalidvalidvalidvalidvalid"
		assert.ErrorContains(t, cfg.Validate(), "must start with 'sk-'")
	})

	t.Run("key too short", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLM.APIKey = "sk-short"
		assert.ErrorContains(t, cfg.Validate(), "at least 32 characters")
	})

	t.Run("missing model", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLM.Model = ""
		assert.ErrorContains(t, cfg.Validate(), "default model is required")
	})

	t.Run("non-positive prompt limit", func(t *testing.T) {
		cfg := validConfig()
		cfg.Limits.MaxPromptTokens = 0
		assert.ErrorContains(t, cfg.Validate(), "maxPromptTokens")
	})
}

func TestLoadAllowedModels(t *testing.T) {
	t.Run("empty path means no restriction", func(t *testing.T) {
		allowed, err := LoadAllowedModels("")
		require.NoError(t, err)
		assert.Nil(t, allowed)
	})

	t.Run("parses models skipping blanks and comments", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "models.txt")
		content := "# production models\nopenai/gpt-4o-mini\n\nperplexity/sonar\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		allowed, err := LoadAllowedModels(path)
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{
			"openai/gpt-4o-mini": true,
			"perplexity/sonar":   true,
		}, allowed)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := LoadAllowedModels(filepath.Join(t.TempDir(), "nope.txt"))
		assert.Error(t, err)
	})

	t.Run("file with only comments is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "models.txt")
		require.NoError(t, os.WriteFile(path, []byte("# nothing here\n"), 0o644))
		_, err := LoadAllowedModels(path)
		assert.ErrorContains(t, err, "lists no models")
	})
}

func TestLoadSystemPrompt(t *testing.T) {
	t.Run("empty path gives empty prompt", func(t *testing.T) {
		prompt, err := LoadSystemPrompt("")
		require.NoError(t, err)
		assert.Equal(t, "", prompt)
	})

	t.Run("reads and trims file content", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "system.txt")
		require.NoError(t, os.WriteFile(path, []byte("You are a helpful assistant.\n"), 0o644))

		prompt, err := LoadSystemPrompt(path)
		require.NoError(t, err)
		assert.Equal(t, "You are a helpful assistant.", prompt)
	})

	t.Run("missing file returns error for caller to log", func(t *testing.T) {
		prompt, err := LoadSystemPrompt(filepath.Join(t.TempDir(), "nope.txt"))
		assert.Error(t, err)
		assert.Equal(t, "", prompt)
	})
}
