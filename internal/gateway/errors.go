package gateway

import "fmt"

// Kind classifies a gateway failure. The pipeline maps kinds to
// user-facing messages; callers never inspect transport-library error
// types directly.
type Kind int

const (
	KindRateLimited Kind = iota
	KindHTTP
	KindNetwork
	KindMalformedResponse
)

// String returns a human-readable description of the failure kind.
func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate limited"
	case KindHTTP:
		return "http error"
	case KindNetwork:
		return "network error"
	case KindMalformedResponse:
		return "malformed response"
	default:
		return "unknown error"
	}
}

// Error is the tagged failure type returned by Client.Complete.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	// RetryAfter holds the Retry-After value in seconds for KindRateLimited.
	RetryAfter int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status: %d)", e.Kind.String(), e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Kind.String(), e.Message)
}

// Is implements error equality for errors.Is by comparing kinds.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// newRateLimitError creates a rate-limit failure carrying Retry-After.
func newRateLimitError(retryAfter int) *Error {
	return &Error{
		Kind:       KindRateLimited,
		Message:    fmt.Sprintf("API rate limit exceeded: Retry after %d seconds", retryAfter),
		StatusCode: 429,
		RetryAfter: retryAfter,
	}
}

// newHTTPError creates a failure for a non-2xx, non-429 response.
func newHTTPError(status int, reason string) *Error {
	return &Error{
		Kind:       KindHTTP,
		Message:    fmt.Sprintf("LLM API HTTP error: %d %s", status, reason),
		StatusCode: status,
	}
}

// newNetworkError creates a transport-level failure (connect, DNS, timeout).
func newNetworkError(detail string) *Error {
	return &Error{
		Kind:    KindNetwork,
		Message: fmt.Sprintf("LLM API network error: %s", detail),
	}
}

// newMalformedResponseError creates a failure for a 2xx body the client
// cannot use. The detail string distinguishes unparseable bodies from
// structurally incomplete ones.
func newMalformedResponseError(detail string) *Error {
	return &Error{
		Kind:    KindMalformedResponse,
		Message: detail,
	}
}
