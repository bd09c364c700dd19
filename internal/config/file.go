package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// fileInputs mirrors the YAML config file. Pointers distinguish "absent" from
// the zero value so that only keys present in the file act as defaults.
type fileInputs struct {
	PrimaryKey                 *string  `yaml:"primary-key"`
	RestorePrefixesFirstMatch  []string `yaml:"restore-prefixes-first-match"`
	RestorePrefixesAllMatches  []string `yaml:"restore-prefixes-all-matches"`
	SkipRestoreOnHitPrimaryKey *bool    `yaml:"skip-restore-on-hit-primary-key"`
	FailOn                     *string  `yaml:"fail-on"`
	Paths                      []string `yaml:"paths"`
}

// readFile loads and schema-checks a YAML config file.
func readFile(path string) (*fileInputs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeConfigFile, Message: "cannot read config file " + path, Err: err}
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &Error{Code: ErrCodeConfigFile, Message: "cannot parse config file " + path, Err: err}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := checkSchema(raw); err != nil {
		return nil, &Error{Code: ErrCodeConfigFile, Message: "config file " + path + " does not match the schema", Err: err}
	}

	var fi fileInputs
	if err := yaml.Unmarshal(data, &fi); err != nil {
		return nil, &Error{Code: ErrCodeConfigFile, Message: "cannot decode config file " + path, Err: err}
	}
	return &fi, nil
}

// checkSchema unifies the decoded document with the closed #Inputs definition.
func checkSchema(doc map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Inputs"))
	v := def.Unify(ctx.Encode(doc))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s", cueerrors.Details(err, nil))
	}
	return nil
}
