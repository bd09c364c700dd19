package actions

import "github.com/roach88/cacherestore/internal/config"

// Probe answers the environment questions asked before a restore.
type Probe struct {
	env       config.Env
	available bool
}

// NewProbe creates a Probe. cacheAvailable reports whether a cache provider
// is configured for this run.
func NewProbe(env config.Env, cacheAvailable bool) Probe {
	return Probe{env: env, available: cacheAvailable}
}

// CacheFeatureAvailable reports whether caching can be used at all.
func (p Probe) CacheFeatureAvailable() bool {
	return p.available
}

// ValidEvent reports whether the triggering event is tied to a ref.
func (p Probe) ValidEvent() bool {
	return p.env.Get(EnvRef) != ""
}

// EventName returns the name of the triggering event.
func (p Probe) EventName() string {
	return p.env.Get(EnvEventName)
}
