package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Version derives the cache version from the cached paths. Caches saved for a
// different set of paths have a different version and never match.
func Version(paths []string) string {
	sum := sha256.Sum256([]byte(strings.Join(paths, "|")))
	return hex.EncodeToString(sum[:])
}
