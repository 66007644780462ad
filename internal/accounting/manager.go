package accounting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bkyoung/llmwrap/internal/logging"
)

// Manager fronts a Backend with two independently toggleable channels:
// usage metering (TrackUsage) and audit logging (LogPrompt/LogResponse).
// A nil backend, or a disabled channel, turns the corresponding methods
// into no-ops. Backend failures never propagate past the Manager.
type Manager struct {
	backend      Backend
	usageEnabled bool
	auditEnabled bool
	logger       *logging.Logger
	now          func() time.Time
}

// NewManager wires a backend to the two accounting channels. Callers that
// failed to construct a backend pass nil and the manager degrades to a
// no-op instead of aborting server startup.
func NewManager(backend Backend, usageEnabled, auditEnabled bool, logger *logging.Logger) *Manager {
	if backend == nil {
		usageEnabled = false
		auditEnabled = false
	}
	if !usageEnabled {
		logger.Info("usage accounting is disabled")
	}
	if !auditEnabled {
		logger.Info("audit logging is disabled")
	}
	return &Manager{
		backend:      backend,
		usageEnabled: usageEnabled,
		auditEnabled: auditEnabled,
		logger:       logger,
		now:          time.Now,
	}
}

// TrackUsage records a metering entry. Best-effort.
func (m *Manager) TrackUsage(ctx context.Context, rec UsageRecord) {
	if !m.usageEnabled {
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = m.now()
	}
	if err := m.backend.InsertUsage(ctx, rec); err != nil {
		m.logger.Error("failed to track LLM usage", "err", err)
	}
}

// LogPrompt records an outbound prompt in the audit log. Best-effort.
func (m *Manager) LogPrompt(ctx context.Context, entry PromptEntry) {
	if !m.auditEnabled {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = m.now()
	}
	if err := m.backend.InsertPrompt(ctx, entry); err != nil {
		m.logger.Error("failed to audit-log prompt", "err", err)
	}
}

// LogResponse records a remote reply in the audit log. Best-effort.
func (m *Manager) LogResponse(ctx context.Context, entry ResponseEntry) {
	if !m.auditEnabled {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = m.now()
	}
	if err := m.backend.InsertResponse(ctx, entry); err != nil {
		m.logger.Error("failed to audit-log response", "err", err)
	}
}

// Close releases the underlying backend. Safe to call with no backend and
// called on every server exit path.
func (m *Manager) Close() {
	if m.backend == nil {
		return
	}
	if err := m.backend.Close(); err != nil {
		m.logger.Warn("failed to close accounting backend", "err", err)
	}
	m.backend = nil
}
