package provider

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/roach88/cacherestore/internal/cachekey"
	"github.com/roach88/cacherestore/internal/restore"
	"github.com/roach88/cacherestore/internal/store"
)

// Local is a restore.Provider backed by a SQLite store.
type Local struct {
	store      *store.Store
	version    string
	runID      string
	logger     zerolog.Logger
	newBackOff func() backoff.BackOff
}

var _ restore.Provider = (*Local)(nil)

// Option configures a Local provider.
type Option func(*Local)

// WithPaths scopes the provider to the version of the given cache paths.
func WithPaths(paths []string) Option {
	return func(l *Local) {
		l.version = Version(paths)
	}
}

// WithRunID sets the run ID restorations are recorded under.
func WithRunID(id string) Option {
	return func(l *Local) {
		l.runID = id
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Local) {
		l.logger = logger
	}
}

// WithBackOff overrides the retry policy for transient store errors.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(l *Local) {
		l.newBackOff = newBackOff
	}
}

// NewLocal creates a provider over st. Without WithPaths the provider uses the
// version of an empty path list; without WithRunID a UUIDv7 is generated.
func NewLocal(st *store.Store, opts ...Option) *Local {
	l := &Local{
		store:      st,
		version:    Version(nil),
		logger:     zerolog.Nop(),
		newBackOff: defaultBackOff,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.runID == "" {
		l.runID = uuid.Must(uuid.NewV7()).String()
	}
	return l
}

// RunID returns the ID restorations are recorded under.
func (l *Local) RunID() string {
	return l.runID
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.Multiplier = 2
	b.MaxInterval = 1 * time.Second
	b.MaxElapsedTime = 5 * time.Second
	b.Reset()
	return b
}

// Lookup implements restore.Provider.
func (l *Local) Lookup(ctx context.Context, req restore.Request) (string, error) {
	keys := make([]string, 0, len(req.RestoreKeys)+1)
	if req.PrimaryKey != "" {
		keys = append(keys, req.PrimaryKey)
	}
	keys = append(keys, req.RestoreKeys...)

	for _, key := range keys {
		e, ok, err := l.match(ctx, key)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}

		l.logger.Debug().Str("key", key).Str("matched", e.Key).Msg("cache lookup matched")
		if req.LookupOnly {
			return e.Key, nil
		}
		if err := l.record(ctx, e); err != nil {
			return "", err
		}
		return e.Key, nil
	}
	return "", nil
}

// match finds key exactly, then as the newest entry with key as prefix.
func (l *Local) match(ctx context.Context, key string) (store.Entry, bool, error) {
	e, err := retry(ctx, l, "find exact", func() (found, error) {
		e, ok, err := l.store.FindExact(ctx, l.version, key)
		return found{e, ok}, err
	})
	if err != nil || e.ok {
		return e.entry, e.ok, err
	}

	e, err = retry(ctx, l, "find by prefix", func() (found, error) {
		e, ok, err := l.store.FindNewestByPrefix(ctx, l.version, key)
		return found{e, ok}, err
	})
	return e.entry, e.ok, err
}

// Restore implements restore.Provider. Only exact matches are restored.
func (l *Local) Restore(ctx context.Context, key string) (string, error) {
	e, err := retry(ctx, l, "find exact", func() (found, error) {
		e, ok, err := l.store.FindExact(ctx, l.version, key)
		return found{e, ok}, err
	})
	if err != nil {
		return "", err
	}
	if !e.ok {
		return "", nil
	}
	if err := l.record(ctx, e.entry); err != nil {
		return "", err
	}
	return e.entry.Key, nil
}

// RestoreAll implements restore.Provider. Entries matching several prefixes
// are restored once, and entries saved under a key in skip are not restored
// at all. On error it returns the keys restored so far.
func (l *Local) RestoreAll(ctx context.Context, prefixes, skip []string) ([]string, error) {
	restored := []string{}
	seen := make(map[int64]bool)
	skipped := make(map[string]bool, len(skip))
	for _, k := range skip {
		skipped[cachekey.Normalize(k)] = true
	}

	for _, prefix := range prefixes {
		entries, err := retry(ctx, l, "list by prefix", func() ([]store.Entry, error) {
			return l.store.ListByPrefix(ctx, l.version, prefix)
		})
		if err != nil {
			return restored, err
		}

		for _, e := range entries {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			if skipped[cachekey.Normalize(e.Key)] {
				l.logger.Debug().Str("key", e.Key).Msg("cache already restored, skipping")
				continue
			}
			if err := l.record(ctx, e); err != nil {
				return restored, err
			}
			restored = append(restored, e.Key)
		}
	}
	return restored, nil
}

func (l *Local) record(ctx context.Context, e store.Entry) error {
	_, err := retry(ctx, l, "record restoration", func() (struct{}, error) {
		return struct{}{}, l.store.RecordRestoration(ctx, l.runID, e)
	})
	return err
}

type found struct {
	entry store.Entry
	ok    bool
}

// retry runs fn until it succeeds, fails permanently, or the back-off gives up.
// Only busy/locked database errors are retried.
func retry[T any](ctx context.Context, l *Local, op string, fn func() (T, error)) (T, error) {
	var out T
	err := backoff.RetryNotify(
		func() error {
			v, err := fn()
			if err != nil {
				if isTransient(err) {
					return err
				}
				return backoff.Permanent(err)
			}
			out = v
			return nil
		},
		backoff.WithContext(l.newBackOff(), ctx),
		func(err error, next time.Duration) {
			l.logger.Debug().Err(err).Str("op", op).Dur("retry_in", next).Msg("transient store error")
		},
	)
	return out, err
}

func isTransient(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}
