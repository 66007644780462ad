// Package accounting provides the usage-metering and audit-log side
// channel. Both channels are best-effort: a metering outage must never
// fail a user-facing completion, so every backend error is caught, logged,
// and swallowed at this boundary.
package accounting

import (
	"context"
	"time"
)

// UsageRecord is one metering entry per completed gateway call.
type UsageRecord struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CachedTokens     int
	ReasoningTokens  int
	Cost             float64
	Caller           string
	Project          string
	Username         string
	Timestamp        time.Time
}

// PromptEntry is the audit record of an outbound prompt, written before
// the gateway call is attempted.
type PromptEntry struct {
	ID         string
	Caller     string
	Username   string
	Model      string
	PromptText string
	Timestamp  time.Time
}

// ResponseEntry is the audit record of a remote reply.
type ResponseEntry struct {
	ID                 string
	Caller             string
	Username           string
	Model              string
	ResponseText       string
	RemoteCompletionID string
	Timestamp          time.Time
}

// Backend persists accounting records. Implementations live behind this
// narrow interface; the core only constructs records and hands them off.
type Backend interface {
	InsertUsage(ctx context.Context, rec UsageRecord) error
	InsertPrompt(ctx context.Context, entry PromptEntry) error
	InsertResponse(ctx context.Context, entry ResponseEntry) error
	Close() error
}
