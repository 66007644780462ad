// Package secrets detects and removes the server's own API credential
// from text crossing the trust boundary in either direction.
package secrets

import (
	"strings"

	"github.com/bkyoung/llmwrap/internal/logging"
)

// Placeholder replaces every occurrence of the credential in redacted text.
// Redaction is irreversible and idempotent: the placeholder never contains
// the credential, so redacting twice equals redacting once.
const Placeholder = "(API key redacted due to security reasons)"

// Scanner checks text for the configured credential. The zero-value secret
// disables all checks: an empty credential never matches anything.
type Scanner struct {
	secret string
	logger *logging.Logger
}

// NewScanner creates a scanner for the given credential.
func NewScanner(secret string, logger *logging.Logger) *Scanner {
	return &Scanner{secret: secret, logger: logger}
}

// Contains reports whether text contains the credential verbatim.
// Used for the outbound check on user prompts.
func (s *Scanner) Contains(text string) bool {
	if s.secret == "" {
		return false
	}
	return strings.Contains(text, s.secret)
}

// Redact replaces every occurrence of the credential in text with
// Placeholder and logs a warning when anything was replaced. Used on
// remote replies before they are relayed to the caller.
func (s *Scanner) Redact(text string) string {
	if !s.Contains(text) {
		return text
	}
	s.logger.Warn("redacting API key from response content")
	return strings.ReplaceAll(text, s.secret, Placeholder)
}

// Sanitize replaces the credential without logging. It is the formatting
// hook the gateway installs on its logger, where emitting a log event from
// inside log formatting would recurse.
func (s *Scanner) Sanitize(text string) string {
	if s.secret == "" {
		return text
	}
	return strings.ReplaceAll(text, s.secret, Placeholder)
}
