// Package restore decides what a cache restore step does.
//
// The Orchestrator runs three phases against a Provider:
//
//  1. primary: look up the primary key; on an exact match mark
//     hit-primary-key and, unless skip-restore-on-hit-primary-key is set,
//     restore it.
//  2. first-match: when nothing was restored yet, look up the
//     restore-prefixes-first-match list and restore the match.
//  3. all-matches: hand the restore-prefixes-all-matches list to the
//     provider, which restores every matching cache.
//
// Phases 2 and 3 are skipped when skip-restore-on-hit-primary-key is set and
// the primary lookup found something. A fail-on policy turns a miss or a
// failed restore of phase 1 or 2 into a fatal Error.
//
// All outputs are written with their initial values before any decision is
// made, so downstream steps see a complete set even after an early return.
// The final hit output is true on every successful run, whether or not a key
// was restored; downstream steps that need "something was restored" should
// test restored-key.
//
// Provider errors are logged and treated as a miss or a failed restore. They
// only become fatal through a fail-on policy.
package restore
