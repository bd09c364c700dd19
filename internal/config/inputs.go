package config

import (
	"fmt"
	"strings"
)

// Step input names.
const (
	InputPrimaryKey                 = "primary-key"
	InputRestorePrefixesFirstMatch  = "restore-prefixes-first-match"
	InputRestorePrefixesAllMatches  = "restore-prefixes-all-matches"
	InputSkipRestoreOnHitPrimaryKey = "skip-restore-on-hit-primary-key"
	InputFailOn                     = "fail-on"
	InputPaths                      = "paths"
)

// KeyType selects which lookup phase a fail-on policy applies to.
type KeyType string

const (
	KeyTypePrimary    KeyType = "primary"
	KeyTypeFirstMatch KeyType = "first-match"
)

// Result selects which outcome of a phase a fail-on policy escalates.
type Result string

const (
	// ResultMiss fires when the lookup finds no cache.
	ResultMiss Result = "miss"
	// ResultNotRestored fires when a cache was found but could not be restored.
	ResultNotRestored Result = "not-restored"
)

// FailOn escalates a miss or a failed restore of one phase into a fatal error.
type FailOn struct {
	KeyType KeyType
	Result  Result
}

// Matches reports whether the policy covers the given phase and result.
// A nil policy never matches.
func (f *FailOn) Matches(keyType KeyType, result Result) bool {
	return f != nil && f.KeyType == keyType && f.Result == result
}

func (f *FailOn) String() string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%s.%s", f.KeyType, f.Result)
}

// ParseFailOn parses "<key type>.<result>", e.g. "primary.miss".
// An empty string yields a nil policy.
func ParseFailOn(s string) (*FailOn, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	keyType, result, ok := strings.Cut(s, ".")
	if !ok {
		return nil, &Error{
			Code:    ErrCodeInvalidInput,
			Input:   InputFailOn,
			Message: fmt.Sprintf("%q is not of the form <key type>.<result>", s),
		}
	}

	f := &FailOn{KeyType: KeyType(keyType), Result: Result(result)}
	switch f.KeyType {
	case KeyTypePrimary, KeyTypeFirstMatch:
	default:
		return nil, &Error{
			Code:    ErrCodeInvalidInput,
			Input:   InputFailOn,
			Message: fmt.Sprintf("unknown key type %q (want %q or %q)", keyType, KeyTypePrimary, KeyTypeFirstMatch),
		}
	}
	switch f.Result {
	case ResultMiss, ResultNotRestored:
	default:
		return nil, &Error{
			Code:    ErrCodeInvalidInput,
			Input:   InputFailOn,
			Message: fmt.Sprintf("unknown result %q (want %q or %q)", result, ResultMiss, ResultNotRestored),
		}
	}
	return f, nil
}

// Inputs is the configuration of one restore step. It is built once by Load
// and must be treated as read-only afterwards.
type Inputs struct {
	PrimaryKey                 string   `input:"primary-key" validate:"required,max=512,excludesall=0x2C"`
	RestorePrefixesFirstMatch  []string `input:"restore-prefixes-first-match" validate:"dive,required,max=512,excludesall=0x2C"`
	RestorePrefixesAllMatches  []string `input:"restore-prefixes-all-matches" validate:"dive,required,max=512,excludesall=0x2C"`
	SkipRestoreOnHitPrimaryKey bool     `input:"skip-restore-on-hit-primary-key"`
	FailOn                     *FailOn  `input:"fail-on"`
	Paths                      []string `input:"paths" validate:"dive,required"`
}

// parseList splits a multiline input into trimmed, non-empty lines.
func parseList(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// parseBool accepts the YAML 1.2 core schema booleans, like workflow inputs do.
func parseBool(name, s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "true", "True", "TRUE":
		return true, nil
	case "false", "False", "FALSE":
		return false, nil
	}
	return false, &Error{
		Code:    ErrCodeInvalidInput,
		Input:   name,
		Message: fmt.Sprintf("%q is not a boolean (true|True|TRUE|false|False|FALSE)", s),
	}
}
