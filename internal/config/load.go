package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// LoadOptions selects the sources Load reads from.
type LoadOptions struct {
	// Env is the process environment. Required.
	Env Env

	// ConfigFile is an optional YAML file providing input defaults.
	ConfigFile string
}

// Load assembles and validates the step inputs.
func Load(opts LoadOptions) (Inputs, error) {
	var in Inputs

	if opts.ConfigFile != "" {
		fi, err := readFile(opts.ConfigFile)
		if err != nil {
			return Inputs{}, err
		}
		if err := in.applyFile(fi); err != nil {
			return Inputs{}, err
		}
	}

	if err := in.applyEnv(opts.Env); err != nil {
		return Inputs{}, err
	}

	if err := validateInputs(in); err != nil {
		return Inputs{}, err
	}
	return in, nil
}

func (in *Inputs) applyFile(fi *fileInputs) error {
	if fi.PrimaryKey != nil {
		in.PrimaryKey = strings.TrimSpace(*fi.PrimaryKey)
	}
	if fi.RestorePrefixesFirstMatch != nil {
		in.RestorePrefixesFirstMatch = fi.RestorePrefixesFirstMatch
	}
	if fi.RestorePrefixesAllMatches != nil {
		in.RestorePrefixesAllMatches = fi.RestorePrefixesAllMatches
	}
	if fi.SkipRestoreOnHitPrimaryKey != nil {
		in.SkipRestoreOnHitPrimaryKey = *fi.SkipRestoreOnHitPrimaryKey
	}
	if fi.FailOn != nil {
		failOn, err := ParseFailOn(*fi.FailOn)
		if err != nil {
			return err
		}
		in.FailOn = failOn
	}
	if fi.Paths != nil {
		in.Paths = fi.Paths
	}
	return nil
}

func (in *Inputs) applyEnv(env Env) error {
	if v := env.Input(InputPrimaryKey); v != "" {
		in.PrimaryKey = v
	}
	if v := env.Input(InputRestorePrefixesFirstMatch); v != "" {
		in.RestorePrefixesFirstMatch = parseList(v)
	}
	if v := env.Input(InputRestorePrefixesAllMatches); v != "" {
		in.RestorePrefixesAllMatches = parseList(v)
	}
	if v := env.Input(InputSkipRestoreOnHitPrimaryKey); v != "" {
		b, err := parseBool(InputSkipRestoreOnHitPrimaryKey, v)
		if err != nil {
			return err
		}
		in.SkipRestoreOnHitPrimaryKey = b
	}
	if v := env.Input(InputFailOn); v != "" {
		failOn, err := ParseFailOn(v)
		if err != nil {
			return err
		}
		in.FailOn = failOn
	}
	if v := env.Input(InputPaths); v != "" {
		in.Paths = parseList(v)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report input names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("input"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

func validateInputs(in Inputs) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Code: ErrCodeInvalidInput, Message: "validation failed", Err: err}
	}

	// Report the first failure; inputs are few and fixing one at a time is fine.
	fe := verrs[0]
	return &Error{
		Code:    ErrCodeInvalidInput,
		Input:   inputName(fe),
		Message: describe(fe),
	}
}

// inputName strips the element index from names like "paths[0]".
func inputName(fe validator.FieldError) string {
	name, _, _ := strings.Cut(fe.Field(), "[")
	return name
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if strings.Contains(fe.Field(), "[") {
			return "entries must not be empty"
		}
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "excludesall":
		return "must not contain commas"
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}
