package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/cacherestore/internal/cachekey"
	"github.com/roach88/cacherestore/internal/canonical"
)

// ErrEntryExists is returned by PutEntry when an entry with the same key and
// version is already stored. Entries are immutable once saved.
var ErrEntryExists = errors.New("cache entry already exists")

// Entry is a saved cache.
type Entry struct {
	ID        int64
	Key       string
	Version   string
	Paths     []string
	Size      int64
	CreatedAt time.Time

	// Restored counts successful restores. Only filled by ListByPrefix.
	Restored int
}

// PutEntry stores a new entry and returns it with ID and CreatedAt set.
func (s *Store) PutEntry(ctx context.Context, e Entry) (Entry, error) {
	if e.Paths == nil {
		e.Paths = []string{}
	}
	pathsJSON, err := canonical.Marshal(e.Paths)
	if err != nil {
		return Entry{}, fmt.Errorf("put entry: %w", err)
	}
	e.CreatedAt = s.clock.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (cache_key, norm_key, version, paths, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (norm_key, version) DO NOTHING
	`,
		e.Key,
		cachekey.Normalize(e.Key),
		e.Version,
		string(pathsJSON),
		e.Size,
		e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("put entry: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return Entry{}, fmt.Errorf("put entry: %w", err)
	}
	if n == 0 {
		return Entry{}, fmt.Errorf("put entry %q: %w", e.Key, ErrEntryExists)
	}

	e.ID, err = res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("put entry: %w", err)
	}
	return e, nil
}

// FindExact returns the entry saved under key in version.
func (s *Store) FindExact(ctx context.Context, version, key string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, cache_key, version, paths, size_bytes, created_at, 0
		FROM entries
		WHERE version = ? AND norm_key = ?
	`, version, cachekey.Normalize(key))

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("find exact %q: %w", key, err)
	}
	return e, true, nil
}

// FindNewestByPrefix returns the most recently saved entry whose key starts
// with prefix.
func (s *Store) FindNewestByPrefix(ctx context.Context, version, prefix string) (Entry, bool, error) {
	norm := cachekey.Normalize(prefix)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, cache_key, version, paths, size_bytes, created_at, 0
		FROM entries
		WHERE version = ? AND substr(norm_key, 1, length(?)) = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, version, norm, norm)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("find by prefix %q: %w", prefix, err)
	}
	return e, true, nil
}

// ListByPrefix returns entries whose key starts with prefix, newest first.
// An empty version lists entries of every version.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListByPrefix(ctx context.Context, version, prefix string) ([]Entry, error) {
	norm := cachekey.Normalize(prefix)
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.cache_key, e.version, e.paths, e.size_bytes, e.created_at,
		       (SELECT COUNT(*) FROM restorations r WHERE r.entry_id = e.id)
		FROM entries e
		WHERE (? = '' OR e.version = ?) AND substr(e.norm_key, 1, length(?)) = ?
		ORDER BY e.created_at DESC, e.id DESC
	`, version, version, norm, norm)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list entries: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e         Entry
		pathsJSON string
		createdAt int64
	)
	if err := row.Scan(&e.ID, &e.Key, &e.Version, &pathsJSON, &e.Size, &createdAt, &e.Restored); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(pathsJSON), &e.Paths); err != nil {
		return Entry{}, fmt.Errorf("decode paths: %w", err)
	}
	e.CreatedAt = time.Unix(0, createdAt).UTC()
	return e, nil
}
