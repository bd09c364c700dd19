// Package store provides SQLite-backed storage for the local cache provider.
//
// Two tables:
//   - entries: one row per saved cache (key, version, paths, size)
//   - restorations: one row per successful restore, grouped by run ID
//
// Keys are compared in normalized form (see cachekey.Normalize) and entries are
// scoped by version, so caches saved for different path sets never match each
// other. "Newest" always means ORDER BY created_at DESC, id DESC; the id breaks
// ties between entries created within the same clock tick.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
