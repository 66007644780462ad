package secrets_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bkyoung/llmwrap/internal/logging"
	"github.com/bkyoung/llmwrap/internal/secrets"
)

const testKey = "sk-or-v1-0123456789abcdef0123456789abcdef"

func newScanner(t *testing.T) (*secrets.Scanner, func() string) {
	t.Helper()
	logger, buf := logging.NewTestLogger()
	return secrets.NewScanner(testKey, logger), buf.String
}

func TestContains(t *testing.T) {
	scanner, _ := newScanner(t)

	assert.True(t, scanner.Contains("please use "+testKey+" for me"))
	assert.False(t, scanner.Contains("an innocent prompt"))
	assert.False(t, scanner.Contains(testKey[:20]))
}

func TestContains_EmptySecretNeverMatches(t *testing.T) {
	logger, _ := logging.NewTestLogger()
	scanner := secrets.NewScanner("", logger)

	assert.False(t, scanner.Contains("anything at all"))
}

func TestRedact_ReplacesEveryOccurrence(t *testing.T) {
	scanner, logOutput := newScanner(t)

	input := "first " + testKey + " second " + testKey
	got := scanner.Redact(input)

	assert.NotContains(t, got, testKey)
	assert.Equal(t, 2, strings.Count(got, secrets.Placeholder))
	assert.Contains(t, logOutput(), "redacting API key")
}

func TestRedact_Idempotent(t *testing.T) {
	scanner, _ := newScanner(t)

	once := scanner.Redact("reply with " + testKey + " embedded")
	twice := scanner.Redact(once)

	assert.Equal(t, once, twice)
}

func TestRedact_NoMatchReturnsUnchanged(t *testing.T) {
	scanner, logOutput := newScanner(t)

	got := scanner.Redact("a clean response")

	assert.Equal(t, "a clean response", got)
	assert.Empty(t, logOutput())
}

func TestSanitize_ReplacesWithoutLogging(t *testing.T) {
	scanner, logOutput := newScanner(t)

	got := scanner.Sanitize("header Bearer " + testKey)

	assert.NotContains(t, got, testKey)
	assert.Empty(t, logOutput())
}
