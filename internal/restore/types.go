package restore

import (
	"context"
	"slices"
)

// Output names.
const (
	OutputHit           = "hit"
	OutputHitPrimaryKey = "hit-primary-key"
	OutputHitFirstMatch = "hit-first-match"
	OutputRestoredKey   = "restored-key"
	OutputRestoredKeys  = "restored-keys"
)

// State names read by the save phase.
const (
	StatePrimaryKey  = "CACHE_KEY"
	StateRestoredKey = "CACHE_RESULT"
)

// Request is a lookup against the provider.
type Request struct {
	PrimaryKey  string
	RestoreKeys []string
	// LookupOnly finds a matching key without transferring content.
	LookupOnly bool
}

// Outcome is what one restore run decided.
type Outcome struct {
	Hit           bool
	HitPrimaryKey bool
	HitFirstMatch bool
	RestoredKey   string
	RestoredKeys  []string
}

func newOutcome() Outcome {
	return Outcome{RestoredKeys: []string{}}
}

// addRestored appends keys not restored yet, keeping first-restore order.
func (o *Outcome) addRestored(keys ...string) {
	for _, k := range keys {
		if k != "" && !slices.Contains(o.RestoredKeys, k) {
			o.RestoredKeys = append(o.RestoredKeys, k)
		}
	}
}

// Provider finds and restores caches.
type Provider interface {
	// Lookup returns the key matching req, or "" when nothing matches.
	Lookup(ctx context.Context, req Request) (string, error)

	// Restore fetches the cache saved under key. It returns the restored key,
	// or "" when the cache could not be restored.
	Restore(ctx context.Context, key string) (string, error)

	// RestoreAll restores every cache whose key starts with one of prefixes,
	// except the caches saved under a key in skip, and returns the restored
	// keys.
	RestoreAll(ctx context.Context, prefixes, skip []string) ([]string, error)
}

// Environment answers questions about the run before any lookup happens.
type Environment interface {
	CacheFeatureAvailable() bool
	ValidEvent() bool
	EventName() string
}

// OutputSink receives step outputs and the failure signal.
type OutputSink interface {
	SetOutput(name string, value any) error
	SetFailed(message string) error
}

// StateSink persists values for the save phase.
type StateSink interface {
	SetState(name, value string) error
}
