package store

import (
	"context"
	"fmt"
	"time"
)

// Restoration records one successful restore of an entry.
type Restoration struct {
	RunID      string
	EntryID    int64
	Key        string
	RestoredAt time.Time
}

// RecordRestoration appends a restoration of e to the log of run runID.
func (s *Store) RecordRestoration(ctx context.Context, runID string, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO restorations (run_id, entry_id, cache_key, restored_at)
		VALUES (?, ?, ?, ?)
	`, runID, e.ID, e.Key, s.clock.Now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("record restoration of %q: %w", e.Key, err)
	}
	return nil
}

// Restorations returns the restorations of a run in the order they happened.
func (s *Store) Restorations(ctx context.Context, runID string) ([]Restoration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, entry_id, cache_key, restored_at
		FROM restorations
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query restorations: %w", err)
	}
	defer rows.Close()

	out := []Restoration{}
	for rows.Next() {
		var (
			r          Restoration
			restoredAt int64
		)
		if err := rows.Scan(&r.RunID, &r.EntryID, &r.Key, &restoredAt); err != nil {
			return nil, fmt.Errorf("scan restoration: %w", err)
		}
		r.RestoredAt = time.Unix(0, restoredAt).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate restorations: %w", err)
	}
	return out, nil
}
