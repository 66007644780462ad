// Package modelspec validates caller-supplied model identifiers of the
// provider/model form used by OpenRouter-compatible APIs.
package modelspec

import "strings"

// ValidationError describes why a model specification was rejected.
// Reason is safe to return to callers in the protocol error data field.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid model specification: " + e.Reason
}

// Validate checks that raw names a model as "provider/model". It returns
// the trimmed input unchanged on success; no normalization beyond the trim
// is applied. Checks run in order and the first failure wins.
func Validate(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)

	if len(trimmed) < 2 {
		return "", &ValidationError{Reason: "Model name must be at least 2 characters"}
	}

	if !strings.Contains(trimmed, "/") {
		return "", &ValidationError{Reason: "Model name must contain a '/' separator"}
	}

	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", &ValidationError{Reason: "Model name must contain a provider and a model separated by a single '/'"}
	}

	return trimmed, nil
}
