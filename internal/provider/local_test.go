package provider

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cacherestore/internal/restore"
	"github.com/roach88/cacherestore/internal/store"
	"github.com/roach88/cacherestore/internal/testutil"
)

var testPaths = []string{"/nix/store"}

type fixture struct {
	store *store.Store
	clock *clockwork.FakeClock
	local *Local
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	st, err := store.Open(filepath.Join(t.TempDir(), "cache.db"), store.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return &fixture{
		store: st,
		clock: clock,
		local: NewLocal(st, WithPaths(testPaths), WithRunID(testutil.NewFixedGenerator("run-1").Generate())),
	}
}

func (f *fixture) save(t *testing.T, key string) store.Entry {
	t.Helper()
	e, err := f.store.PutEntry(context.Background(), store.Entry{Key: key, Version: Version(testPaths), Paths: testPaths})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	return e
}

func (f *fixture) restoredKeys(t *testing.T) []string {
	t.Helper()
	rs, err := f.store.Restorations(context.Background(), "run-1")
	require.NoError(t, err)
	keys := []string{}
	for _, r := range rs {
		keys = append(keys, r.Key)
	}
	return keys
}

func TestLookupExactPrimary(t *testing.T) {
	f := newFixture(t)
	f.save(t, "build-123")
	f.save(t, "build-1234")

	key, err := f.local.Lookup(context.Background(), restore.Request{PrimaryKey: "build-123", LookupOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "build-123", key)
	assert.Empty(t, f.restoredKeys(t), "lookup-only records nothing")
}

func TestLookupPrimaryPrefix(t *testing.T) {
	f := newFixture(t)
	f.save(t, "build-123-linux")

	key, err := f.local.Lookup(context.Background(), restore.Request{PrimaryKey: "build-123", LookupOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "build-123-linux", key)
}

func TestLookupRestoreKeysInOrder(t *testing.T) {
	f := newFixture(t)
	f.save(t, "deps-old")
	f.save(t, "deps-new")
	f.save(t, "tools-1")

	ctx := context.Background()

	key, err := f.local.Lookup(ctx, restore.Request{RestoreKeys: []string{"missing-", "deps-", "tools-"}, LookupOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "deps-new", key, "first prefix with a match wins, newest entry")

	key, err = f.local.Lookup(ctx, restore.Request{RestoreKeys: []string{"deps-old"}, LookupOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "deps-old", key, "exact match beats newer prefix match")
}

func TestLookupMiss(t *testing.T) {
	f := newFixture(t)
	f.save(t, "build-1")

	key, err := f.local.Lookup(context.Background(), restore.Request{PrimaryKey: "other", RestoreKeys: []string{"x-"}, LookupOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "", key)
}

func TestLookupIgnoresOtherVersion(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.PutEntry(context.Background(), store.Entry{Key: "build-123", Version: Version([]string{"/other"})})
	require.NoError(t, err)

	key, err := f.local.Lookup(context.Background(), restore.Request{PrimaryKey: "build-123", LookupOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "", key)
}

func TestLookupWithRestore(t *testing.T) {
	f := newFixture(t)
	f.save(t, "build-123")

	key, err := f.local.Lookup(context.Background(), restore.Request{PrimaryKey: "build-123"})
	require.NoError(t, err)
	assert.Equal(t, "build-123", key)
	assert.Equal(t, []string{"build-123"}, f.restoredKeys(t))
}

func TestRestore(t *testing.T) {
	f := newFixture(t)
	f.save(t, "Build-123")
	ctx := context.Background()

	key, err := f.local.Restore(ctx, "build-123")
	require.NoError(t, err)
	assert.Equal(t, "Build-123", key, "returns the stored key")

	key, err = f.local.Restore(ctx, "build-12")
	require.NoError(t, err)
	assert.Equal(t, "", key, "prefixes are not restored")

	assert.Equal(t, []string{"Build-123"}, f.restoredKeys(t))
}

func TestRestoreAll(t *testing.T) {
	f := newFixture(t)
	f.save(t, "nix-a")
	f.save(t, "nix-b")
	f.save(t, "go-a")
	f.save(t, "other")

	keys, err := f.local.RestoreAll(context.Background(), []string{"nix-", "go-", "nix-b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"nix-b", "nix-a", "go-a"}, keys)
	assert.Equal(t, keys, f.restoredKeys(t))
}

func TestRestoreAllNoPrefixes(t *testing.T) {
	f := newFixture(t)
	f.save(t, "nix-a")

	keys, err := f.local.RestoreAll(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, keys)
	assert.Empty(t, keys)
}

func TestRestoreAllSkipsRestoredKeys(t *testing.T) {
	f := newFixture(t)
	f.save(t, "nix-a")
	f.save(t, "cafe\u0301-1")
	f.save(t, "nix-b")

	key, err := f.local.Restore(context.Background(), "nix-a")
	require.NoError(t, err)
	require.Equal(t, "nix-a", key)

	keys, err := f.local.RestoreAll(context.Background(), []string{"nix-", "caf"}, []string{"NIX-A", "caf\u00e9-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"nix-b"}, keys)

	// one restoration per entry in the run
	assert.Equal(t, []string{"nix-a", "nix-b"}, f.restoredKeys(t))
}

func TestNewLocalGeneratesRunID(t *testing.T) {
	f := newFixture(t)
	l := NewLocal(f.store)
	assert.Len(t, l.RunID(), 36)
	assert.NotEqual(t, l.RunID(), NewLocal(f.store).RunID())
}

func TestCanceledContext(t *testing.T) {
	f := newFixture(t)
	f.save(t, "build-123")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.local.Lookup(ctx, restore.Request{PrimaryKey: "build-123", LookupOnly: true})
	require.Error(t, err)
}

func TestRetryTransient(t *testing.T) {
	l := &Local{logger: zerolog.Nop(), newBackOff: func() backoff.BackOff { return &backoff.ZeroBackOff{} }}

	calls := 0
	got, err := retry(context.Background(), l, "test", func() (string, error) {
		calls++
		if calls < 3 {
			return "", sqlite3.Error{Code: sqlite3.ErrBusy}
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestRetryPermanent(t *testing.T) {
	l := &Local{logger: zerolog.Nop(), newBackOff: func() backoff.BackOff { return &backoff.ZeroBackOff{} }}
	boom := errors.New("boom")

	calls := 0
	_, err := retry(context.Background(), l, "test", func() (int, error) {
		calls++
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.True(t, isTransient(sqlite3.Error{Code: sqlite3.ErrLocked}))
	assert.False(t, isTransient(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.False(t, isTransient(errors.New("other")))
}

func TestVersion(t *testing.T) {
	assert.Equal(t, Version([]string{"/a", "/b"}), Version([]string{"/a", "/b"}))
	assert.NotEqual(t, Version([]string{"/a", "/b"}), Version([]string{"/b", "/a"}))
	assert.Len(t, Version(nil), 64)
}
