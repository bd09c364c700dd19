package testutil

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/cacherestore/internal/cachekey"
	"github.com/roach88/cacherestore/internal/restore"
)

// ScriptedProvider is a restore.Provider answering from fixed tables.
//
// Lookups are keyed by LookupKey(req). Restores succeed for keys listed in
// Restorable and fail (return "") otherwise. Every call is recorded in Calls.
//
// Thread-safety: ScriptedProvider is safe for concurrent use via internal mutex.
type ScriptedProvider struct {
	mu sync.Mutex

	Lookups    map[string]string
	Restorable map[string]bool
	AllMatches []string

	LookupErr     error
	RestoreErr    error
	RestoreAllErr error

	Calls []string
}

var _ restore.Provider = (*ScriptedProvider)(nil)

// NewScriptedProvider creates an empty provider: every lookup misses.
func NewScriptedProvider() *ScriptedProvider {
	return &ScriptedProvider{
		Lookups:    map[string]string{},
		Restorable: map[string]bool{},
	}
}

// LookupKey is the table key for a lookup: the primary key, then the restore
// keys, joined by "|".
func LookupKey(req restore.Request) string {
	return strings.Join(append([]string{req.PrimaryKey}, req.RestoreKeys...), "|")
}

// Lookup implements restore.Provider.
func (p *ScriptedProvider) Lookup(_ context.Context, req restore.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, fmt.Sprintf("lookup(%s,only=%t)", LookupKey(req), req.LookupOnly))
	if p.LookupErr != nil {
		return "", p.LookupErr
	}
	return p.Lookups[LookupKey(req)], nil
}

// Restore implements restore.Provider.
func (p *ScriptedProvider) Restore(_ context.Context, key string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, fmt.Sprintf("restore(%s)", key))
	if p.RestoreErr != nil {
		return "", p.RestoreErr
	}
	if p.Restorable[key] {
		return key, nil
	}
	return "", nil
}

// RestoreAll implements restore.Provider. Keys in skip are left out of
// AllMatches, compared with cachekey.ExactMatch.
func (p *ScriptedProvider) RestoreAll(_ context.Context, prefixes, skip []string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	call := fmt.Sprintf("restoreAll(%s)", strings.Join(prefixes, "|"))
	if len(skip) > 0 {
		call += " skip=" + strings.Join(skip, "|")
	}
	p.Calls = append(p.Calls, call)

	out := []string{}
	for _, k := range p.AllMatches {
		if !slices.ContainsFunc(skip, func(s string) bool { return cachekey.ExactMatch(s, k) }) {
			out = append(out, k)
		}
	}
	return out, p.RestoreAllErr
}

// CallLog returns a copy of the recorded calls.
func (p *ScriptedProvider) CallLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.Calls...)
}
