package accounting_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bkyoung/llmwrap/internal/accounting"
	"github.com/bkyoung/llmwrap/internal/logging"
)

// recordingBackend captures inserts and optionally fails them.
type recordingBackend struct {
	usage     []accounting.UsageRecord
	prompts   []accounting.PromptEntry
	responses []accounting.ResponseEntry
	failWith  error
	closed    bool
}

func (b *recordingBackend) InsertUsage(_ context.Context, rec accounting.UsageRecord) error {
	if b.failWith != nil {
		return b.failWith
	}
	b.usage = append(b.usage, rec)
	return nil
}

func (b *recordingBackend) InsertPrompt(_ context.Context, entry accounting.PromptEntry) error {
	if b.failWith != nil {
		return b.failWith
	}
	b.prompts = append(b.prompts, entry)
	return nil
}

func (b *recordingBackend) InsertResponse(_ context.Context, entry accounting.ResponseEntry) error {
	if b.failWith != nil {
		return b.failWith
	}
	b.responses = append(b.responses, entry)
	return nil
}

func (b *recordingBackend) Close() error {
	b.closed = true
	return nil
}

func TestManager_IndependentToggles(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		usage, audit  bool
		wantUsage     int
		wantAuditRows int
	}{
		{"both enabled", true, true, 1, 2},
		{"usage only", true, false, 1, 0},
		{"audit only", false, true, 0, 2},
		{"both disabled", false, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &recordingBackend{}
			logger, _ := logging.NewTestLogger()
			mgr := accounting.NewManager(backend, tt.usage, tt.audit, logger)

			mgr.LogPrompt(ctx, accounting.PromptEntry{Model: "openai/gpt-4o-mini", PromptText: "hi"})
			mgr.TrackUsage(ctx, accounting.UsageRecord{Model: "openai/gpt-4o-mini", TotalTokens: 5})
			mgr.LogResponse(ctx, accounting.ResponseEntry{Model: "openai/gpt-4o-mini", ResponseText: "hello"})

			assert.Len(t, backend.usage, tt.wantUsage)
			assert.Len(t, backend.prompts, tt.wantAuditRows/2)
			assert.Len(t, backend.responses, tt.wantAuditRows/2)
		})
	}
}

func TestManager_BackendErrorsAreSwallowed(t *testing.T) {
	backend := &recordingBackend{failWith: errors.New("disk full")}
	logger, buf := logging.NewTestLogger()
	mgr := accounting.NewManager(backend, true, true, logger)

	ctx := context.Background()
	mgr.TrackUsage(ctx, accounting.UsageRecord{Model: "m/x"})
	mgr.LogPrompt(ctx, accounting.PromptEntry{Model: "m/x"})
	mgr.LogResponse(ctx, accounting.ResponseEntry{Model: "m/x"})

	assert.Contains(t, buf.String(), "disk full")
}

func TestManager_NilBackendIsNoop(t *testing.T) {
	logger, _ := logging.NewTestLogger()
	mgr := accounting.NewManager(nil, true, true, logger)

	ctx := context.Background()
	mgr.TrackUsage(ctx, accounting.UsageRecord{})
	mgr.LogPrompt(ctx, accounting.PromptEntry{})
	mgr.LogResponse(ctx, accounting.ResponseEntry{})
	mgr.Close()
}

func TestManager_FillsIDAndTimestamp(t *testing.T) {
	backend := &recordingBackend{}
	logger, _ := logging.NewTestLogger()
	mgr := accounting.NewManager(backend, true, true, logger)

	mgr.LogPrompt(context.Background(), accounting.PromptEntry{Model: "m/x", PromptText: "hi"})

	assert.NotEmpty(t, backend.prompts[0].ID)
	assert.False(t, backend.prompts[0].Timestamp.IsZero())
}

func TestManager_CloseReleasesBackendOnce(t *testing.T) {
	backend := &recordingBackend{}
	logger, _ := logging.NewTestLogger()
	mgr := accounting.NewManager(backend, true, true, logger)

	mgr.Close()
	assert.True(t, backend.closed)

	backend.closed = false
	mgr.Close()
	assert.False(t, backend.closed)
}
