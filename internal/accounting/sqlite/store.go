// Package sqlite persists accounting records in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bkyoung/llmwrap/internal/accounting"
)

// Store implements accounting.Backend using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at dbPath and ensures the
// schema exists. Use ":memory:" for tests.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
	-- One row per completed gateway call
	CREATE TABLE IF NOT EXISTS usage_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		model TEXT NOT NULL,
		prompt_tokens INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		cached_tokens INTEGER NOT NULL DEFAULT 0,
		reasoning_tokens INTEGER NOT NULL DEFAULT 0,
		cost REAL NOT NULL DEFAULT 0.0,
		caller TEXT NOT NULL,
		project TEXT NOT NULL,
		username TEXT NOT NULL
	);

	-- Full prompt/response text, one row per direction
	CREATE TABLE IF NOT EXISTS audit_entries (
		entry_id TEXT PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		kind TEXT NOT NULL CHECK(kind IN ('prompt', 'response')),
		caller TEXT NOT NULL,
		username TEXT NOT NULL,
		model TEXT NOT NULL,
		content TEXT NOT NULL,
		remote_completion_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage_records(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_usage_model ON usage_records(model);
	CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_entries(timestamp DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// InsertUsage stores a metering record.
func (s *Store) InsertUsage(ctx context.Context, rec accounting.UsageRecord) error {
	query := `
		INSERT INTO usage_records (timestamp, model, prompt_tokens, completion_tokens, total_tokens, cached_tokens, reasoning_tokens, cost, caller, project, username)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.Timestamp.Unix(),
		rec.Model,
		rec.PromptTokens,
		rec.CompletionTokens,
		rec.TotalTokens,
		rec.CachedTokens,
		rec.ReasoningTokens,
		rec.Cost,
		rec.Caller,
		rec.Project,
		rec.Username,
	)

	if err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}

	return nil
}

// InsertPrompt stores an outbound-prompt audit entry.
func (s *Store) InsertPrompt(ctx context.Context, entry accounting.PromptEntry) error {
	query := `
		INSERT INTO audit_entries (entry_id, timestamp, kind, caller, username, model, content)
		VALUES (?, ?, 'prompt', ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Timestamp.Unix(),
		entry.Caller,
		entry.Username,
		entry.Model,
		entry.PromptText,
	)

	if err != nil {
		return fmt.Errorf("failed to insert prompt entry: %w", err)
	}

	return nil
}

// InsertResponse stores a remote-reply audit entry.
func (s *Store) InsertResponse(ctx context.Context, entry accounting.ResponseEntry) error {
	query := `
		INSERT INTO audit_entries (entry_id, timestamp, kind, caller, username, model, content, remote_completion_id)
		VALUES (?, ?, 'response', ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Timestamp.Unix(),
		entry.Caller,
		entry.Username,
		entry.Model,
		entry.ResponseText,
		entry.RemoteCompletionID,
	)

	if err != nil {
		return fmt.Errorf("failed to insert response entry: %w", err)
	}

	return nil
}

// UsageTotals aggregates metering counters for a model.
type UsageTotals struct {
	Requests         int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Cost             float64
}

// GetUsageTotals returns aggregate usage for a model, or for all models
// when model is empty.
func (s *Store) GetUsageTotals(ctx context.Context, model string) (UsageTotals, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0), COALESCE(SUM(total_tokens), 0), COALESCE(SUM(cost), 0.0)
		FROM usage_records
		WHERE (? = '' OR model = ?)
	`

	var totals UsageTotals
	err := s.db.QueryRowContext(ctx, query, model, model).Scan(
		&totals.Requests,
		&totals.PromptTokens,
		&totals.CompletionTokens,
		&totals.TotalTokens,
		&totals.Cost,
	)
	if err != nil {
		return UsageTotals{}, fmt.Errorf("failed to aggregate usage: %w", err)
	}

	return totals, nil
}

// CountAuditEntries returns the number of audit rows of the given kind.
func (s *Store) CountAuditEntries(ctx context.Context, kind string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_entries WHERE kind = ?`, kind).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
