package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Env is a snapshot of environment variables.
type Env map[string]string

// EnvFromList builds an Env from "KEY=value" pairs as returned by os.Environ.
func EnvFromList(environ []string) Env {
	env := make(Env, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// Get returns the value of key, or "" when unset.
func (e Env) Get(key string) string {
	return e[key]
}

// Input returns the trimmed value of a step input, "" when unset.
func (e Env) Input(name string) string {
	return strings.TrimSpace(e[InputEnvName(name)])
}

// InputEnvName returns the variable a step input is exposed under:
// spaces become underscores and the name is upper-cased.
func InputEnvName(name string) string {
	return "INPUT_" + strings.ToUpper(strings.ReplaceAll(name, " ", "_"))
}

// LoadDotEnv merges the variables of a .env file into a copy of env.
// Variables already present in env take precedence.
func LoadDotEnv(env Env, path string) (Env, error) {
	out := make(Env, len(env))
	for k, v := range env {
		out[k] = v
	}
	if path == "" {
		return out, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeEnvFile, Message: "cannot read env file " + path, Err: err}
	}
	defer f.Close()

	fileEnv, err := godotenv.Parse(f)
	if err != nil {
		return nil, &Error{Code: ErrCodeEnvFile, Message: "cannot parse env file " + path, Err: err}
	}
	for k, v := range fileEnv {
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}
	return out, nil
}
