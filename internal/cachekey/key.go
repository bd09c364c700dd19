package cachekey

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// MaxKeyLength is the longest key, in characters, a cache entry may be saved
// or looked up under.
const MaxKeyLength = 512

// ExactMatch reports whether found is the same key as primary.
// A lookup can return a key that only shares primary as a prefix; callers use
// ExactMatch to tell the two apart.
func ExactMatch(primary, found string) bool {
	return Normalize(primary) == Normalize(found)
}

// Normalize returns the comparison form of key. Two keys match exactly when
// their normalized forms are equal; stores index keys by this form.
func Normalize(key string) string {
	return cases.Fold().String(norm.NFC.String(key))
}

// KeyError describes why a key was rejected.
type KeyError struct {
	Key    string
	Reason string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("invalid cache key %q: %s", e.Key, e.Reason)
}

// Validate checks that key can be stored or used as a lookup prefix.
func Validate(key string) error {
	if utf8.RuneCountInString(key) > MaxKeyLength {
		return &KeyError{Key: key, Reason: fmt.Sprintf("longer than %d characters", MaxKeyLength)}
	}
	if strings.Contains(key, ",") {
		return &KeyError{Key: key, Reason: "must not contain commas"}
	}
	return nil
}

// HasPrefix reports whether key starts with prefix, comparing the way
// ExactMatch does.
func HasPrefix(key, prefix string) bool {
	return strings.HasPrefix(Normalize(key), Normalize(prefix))
}
