package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/llmwrap/internal/logging"
)

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	logger, err := logging.New(path, "info")
	require.NoError(t, err)

	logger.Info("server started", "model", "openai/gpt-4o-mini")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "server started")
	assert.Contains(t, string(data), "openai/gpt-4o-mini")
}

func TestNew_EmptyPathUsesStderr(t *testing.T) {
	logger, err := logging.New("", "debug")
	require.NoError(t, err)
	assert.NoError(t, logger.Close())
}

func TestLogger_LevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	logger, err := logging.New(path, "warn")
	require.NoError(t, err)

	logger.Info("should be filtered")
	logger.Warn("should appear")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "should be filtered")
	assert.Contains(t, string(data), "should appear")
}

func TestLogger_SanitizerAppliesToMessageAndFields(t *testing.T) {
	logger, buf := logging.NewTestLogger()
	redacted := logger.WithSanitizer(func(s string) string {
		return strings.ReplaceAll(s, "sk-secret", "***")
	})

	redacted.Info("key sk-secret leaked", "payload", "body with sk-secret inside", "count", 2)

	out := buf.String()
	assert.NotContains(t, out, "sk-secret")
	assert.Contains(t, out, "***")
	assert.Contains(t, out, "count=2")
}

func TestLogger_WithPreservesSanitizer(t *testing.T) {
	logger, buf := logging.NewTestLogger()
	redacted := logger.WithSanitizer(func(s string) string {
		return strings.ReplaceAll(s, "hunter2", "***")
	}).With("component", "gateway")

	redacted.Warn("credential hunter2 observed")

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "component=gateway")
}
