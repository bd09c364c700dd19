package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cacherestore/internal/provider"
	"github.com/roach88/cacherestore/internal/store"
)

// seedStore creates a store holding entries saved for paths.
func seedStore(t *testing.T, paths []string, keys ...string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	for _, key := range keys {
		_, err := st.PutEntry(context.Background(), store.Entry{
			Key:     key,
			Version: provider.Version(paths),
			Paths:   paths,
			Size:    11,
		})
		require.NoError(t, err)
	}
	return dbPath
}

func restoreEnv(extra ...string) []string {
	return append([]string{
		"GITHUB_REF=refs/heads/main",
		"GITHUB_EVENT_NAME=push",
		"INPUT_PATHS=node_modules",
	}, extra...)
}

func TestRestoreGolden(t *testing.T) {
	dbPath := seedStore(t, []string{"node_modules"}, "build-123", "tools-1")

	tests := []struct {
		name    string
		command string
		env     []string
	}{
		{
			name:    "restore_primary_hit",
			command: "restore",
			env:     restoreEnv("INPUT_PRIMARY-KEY=build-123", "INPUT_RESTORE-PREFIXES-ALL-MATCHES=tools-"),
		},
		{
			name:    "restore_only_first_match",
			command: "restore-only",
			env:     restoreEnv("INPUT_PRIMARY-KEY=build-124", "INPUT_RESTORE-PREFIXES-FIRST-MATCH=build-"),
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, tt.env, tt.command, "--store", dbPath)
			require.NoError(t, err)
			g.Assert(t, tt.name, []byte(stdout))
		})
	}
}

func TestRestoreWritesOutputFiles(t *testing.T) {
	dbPath := seedStore(t, []string{"node_modules"}, "build-123")
	dir := t.TempDir()
	outputFile := filepath.Join(dir, "output")
	stateFile := filepath.Join(dir, "state")

	stdout, _, err := execute(t,
		restoreEnv("INPUT_PRIMARY-KEY=build-123", "GITHUB_OUTPUT="+outputFile, "GITHUB_STATE="+stateFile),
		"restore", "--store", dbPath)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	output, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^hit-primary-key<<ghadelimiter_[0-9a-f-]+\ntrue\nghadelimiter_`, string(output))
	assert.Regexp(t, `(?m)^restored-keys<<ghadelimiter_[0-9a-f-]+\n\["build-123"\]\n`, string(output))

	state, err := os.ReadFile(stateFile)
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^CACHE_KEY<<ghadelimiter_[0-9a-f-]+\nbuild-123\n`, string(state))
	assert.Regexp(t, `(?m)^CACHE_RESULT<<ghadelimiter_[0-9a-f-]+\nbuild-123\n`, string(state))
}

func TestRestoreRecordsRestorations(t *testing.T) {
	dbPath := seedStore(t, []string{"node_modules"}, "build-123")

	_, _, err := execute(t, restoreEnv("INPUT_PRIMARY-KEY=build-123"), "restore", "--store", dbPath)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	entries, err := st.ListByPrefix(context.Background(), "", "build-")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Restored)
}

func TestRestoreFailOn(t *testing.T) {
	dbPath := seedStore(t, []string{"node_modules"})
	env := restoreEnv("INPUT_PRIMARY-KEY=build-123", "INPUT_FAIL-ON=primary.miss")

	stdout, _, err := execute(t, env, "restore", "--store", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, `::error::No cache with the given key was found. Exiting as the input "fail-on" is set.`)
	assert.NotContains(t, stdout, "::set-output name=hit::true")

	stdout, _, err = execute(t, env, "restore", "--store", dbPath, "--explicit-exit")
	require.NoError(t, err)
	assert.Contains(t, stdout, "::error::")
}

func TestRestoreInvalidEvent(t *testing.T) {
	dbPath := seedStore(t, []string{"node_modules"})
	env := []string{"GITHUB_EVENT_NAME=schedule", "INPUT_PRIMARY-KEY=build-123"}

	stdout, _, err := execute(t, env, "restore", "--store", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "::error::Event Validation Error: The event type schedule is not supported")
}

func TestRestoreWithoutStore(t *testing.T) {
	stdout, stderr, err := execute(t, restoreEnv("INPUT_PRIMARY-KEY=build-123"), "restore")
	require.NoError(t, err)

	assert.Equal(t, ""+
		"::set-output name=hit::false\n"+
		"::set-output name=hit-primary-key::false\n"+
		"::set-output name=hit-first-match::false\n"+
		"::set-output name=restored-key::false\n"+
		"::set-output name=restored-keys::[]\n", stdout)
	assert.Contains(t, stderr, "Cache service is not available")
}

func TestRestoreInvalidInputs(t *testing.T) {
	tests := []struct {
		name string
		env  []string
		want string
	}{
		{"missing primary key", restoreEnv(), `"primary-key": is required`},
		{"bad fail-on", restoreEnv("INPUT_PRIMARY-KEY=k", "INPUT_FAIL-ON=always"), "fail-on"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.env, "restore")
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), "invalid inputs")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRestoreEnvFile(t *testing.T) {
	dbPath := seedStore(t, []string{"node_modules"}, "build-123")
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("GITHUB_REF=refs/heads/main\nINPUT_PATHS=node_modules\n"), 0o644))

	stdout, _, err := execute(t, []string{"INPUT_PRIMARY-KEY=build-123"},
		"restore", "--store", dbPath, "--env-file", envFile)
	require.NoError(t, err)
	assert.Contains(t, stdout, "::set-output name=hit-primary-key::true")

	_, _, err = execute(t, nil, "restore", "--env-file", filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRestoreConfigFile(t *testing.T) {
	dbPath := seedStore(t, []string{"node_modules"}, "build-123")
	configFile := filepath.Join(t.TempDir(), "inputs.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("primary-key: build-123\npaths:\n  - node_modules\n"), 0o644))

	stdout, _, err := execute(t, []string{"GITHUB_REF=refs/heads/main"},
		"restore-only", "--store", dbPath, "--config", configFile)
	require.NoError(t, err)
	assert.Contains(t, stdout, "::set-output name=restored-key::build-123")
	assert.NotContains(t, stdout, "::save-state")
}

// readFileCommands parses name<<delimiter records written to a GITHUB_OUTPUT
// or GITHUB_STATE file. Later records win.
func readFileCommands(t *testing.T, path string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out := map[string]string{}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	for i := 0; i < len(lines); i++ {
		name, delim, ok := strings.Cut(lines[i], "<<")
		require.True(t, ok, "line %d: %q", i, lines[i])
		var value []string
		for i++; i < len(lines) && lines[i] != delim; i++ {
			value = append(value, lines[i])
		}
		out[name] = strings.Join(value, "\n")
	}
	return out
}

func TestRestoreDecomposedKeyAllMatches(t *testing.T) {
	key := "cafe\u0301-1"
	dbPath := seedStore(t, []string{"node_modules"}, key)
	outputFile := filepath.Join(t.TempDir(), "output")

	_, _, err := execute(t,
		restoreEnv("INPUT_PRIMARY-KEY="+key, "INPUT_RESTORE-PREFIXES-ALL-MATCHES=caf", "GITHUB_OUTPUT="+outputFile),
		"restore-only", "--store", dbPath)
	require.NoError(t, err)

	outputs := readFileCommands(t, outputFile)
	assert.Equal(t, key, outputs["restored-key"])
	assert.Equal(t, `["`+key+`"]`, outputs["restored-keys"], "restored-keys holds the restored key byte for byte")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	entries, err := st.ListByPrefix(context.Background(), "", "caf")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Restored, "one restoration per entry per run")
}
