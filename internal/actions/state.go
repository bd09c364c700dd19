package actions

import (
	"strings"

	"github.com/roach88/cacherestore/internal/config"
)

// NullState discards state. Restore-only runs have no post phase to read it.
type NullState struct{}

// SetState discards the value.
func (NullState) SetState(string, string) error { return nil }

// GetState reads a value saved by an earlier phase. The runner exposes saved
// state to later phases as STATE_<name>.
func GetState(env config.Env, name string) string {
	return strings.TrimSpace(env.Get("STATE_" + name))
}
