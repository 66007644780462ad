package modelspec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/llmwrap/internal/modelspec"
)

func TestValidate_Accepts(t *testing.T) {
	cases := map[string]string{
		"plain":              "openai/gpt-4o-mini",
		"surrounding spaces": "  anthropic/claude-3-5-haiku  ",
		"minimal":            "a/b",
		"online model":       "perplexity/llama-3.1-sonar-small-128k-online",
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := modelspec.Validate(input)
			require.NoError(t, err)
			// Trimmed input comes back unchanged.
			assert.NotContains(t, got, " ")
			assert.Contains(t, input, got)
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		reason string
	}{
		{"empty", "", "at least 2 characters"},
		{"whitespace only", "   ", "at least 2 characters"},
		{"single char", "x", "at least 2 characters"},
		{"no separator", "noslash", "separator"},
		{"empty model side", "provider/", "provider and a model"},
		{"empty provider side", "/model", "provider and a model"},
		{"too many slashes", "a/b/c", "provider and a model"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := modelspec.Validate(tc.input)
			require.Error(t, err)

			var verr *modelspec.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Reason, tc.reason)
		})
	}
}

func TestValidate_SlashOnlyFailsPairCheck(t *testing.T) {
	// "/" alone is long enough... it is not: length 1 trips the length rule.
	_, err := modelspec.Validate("/")
	var verr *modelspec.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "at least 2 characters")

	// "//" passes the length and separator rules but not the pair rule.
	_, err = modelspec.Validate("//")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "provider and a model")
}
