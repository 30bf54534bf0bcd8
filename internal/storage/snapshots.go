package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/caioniehues/obsidian-money-manager/internal/categorizer"
	"github.com/caioniehues/obsidian-money-manager/internal/common"
)

const categorizerEngine = "categorizer"

// SaveCategorizerSnapshot persists an exported categorizer snapshot as a
// JSON payload. Older snapshots are kept for manual recovery.
func (s *SQLiteStore) SaveCategorizerSnapshot(ctx context.Context, snapshot *categorizer.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot must not be nil")
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO profile_snapshots (engine, payload) VALUES (?, ?)`,
		categorizerEngine, string(payload),
	); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// GetLatestCategorizerSnapshot returns the most recent snapshot, or
// ErrNotFound when none has been saved.
func (s *SQLiteStore) GetLatestCategorizerSnapshot(ctx context.Context) (*categorizer.Snapshot, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM profile_snapshots WHERE engine = ? ORDER BY captured_at DESC, id DESC LIMIT 1`,
		categorizerEngine,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("categorizer snapshot: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snapshot categorizer.Snapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}
