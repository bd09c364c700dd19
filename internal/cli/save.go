package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/c2h5oh/datasize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/cacherestore/internal/actions"
	"github.com/roach88/cacherestore/internal/cachekey"
	"github.com/roach88/cacherestore/internal/provider"
	"github.com/roach88/cacherestore/internal/restore"
	"github.com/roach88/cacherestore/internal/store"
)

// SaveResult is the output of the save command.
type SaveResult struct {
	Key       string `json:"key"`
	Version   string `json:"version,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
	Saved     bool   `json:"saved"`
	Reason    string `json:"reason,omitempty"`
}

func (r SaveResult) String() string {
	if r.Saved {
		return fmt.Sprintf("Cache saved with key: %s (%s)", r.Key, datasize.ByteSize(r.SizeBytes).HumanReadable())
	}
	return fmt.Sprintf("Cache not saved: %s", r.Reason)
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := rootOpts

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a cache entry after the job ran",
		Long: `Save a cache entry for the primary key recorded by restore.

The keys are read from the STATE_CACHE_KEY and STATE_CACHE_RESULT variables.
Nothing is saved when the restore hit the primary key exactly, or when an entry
with the same key and paths already exists.

Example:
  STATE_CACHE_KEY=deps-abc INPUT_PATHS=node_modules cacherestore save --store ./cache.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd, opts)
		},
	}

	return cmd
}

func runSave(cmd *cobra.Command, opts *RootOptions) error {
	log := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	env, err := opts.environment()
	if err != nil {
		return err
	}
	inputs, err := opts.loadInputs(env)
	if err != nil {
		return err
	}

	primaryKey := actions.GetState(env, restore.StatePrimaryKey)
	if primaryKey == "" {
		primaryKey = inputs.PrimaryKey
	}
	restoredKey := actions.GetState(env, restore.StateRestoredKey)
	result := SaveResult{Key: primaryKey}

	if opts.Store == "" {
		log.Warn().Msg("Cache service is not available. Configure a cache store to enable caching.")
		result.Reason = "cache store not configured"
		return formatter.Success(result)
	}

	if cachekey.ExactMatch(primaryKey, restoredKey) {
		log.Info().Msgf("Cache hit occurred on the primary key %s, not saving cache.", primaryKey)
		result.Reason = "exact hit on the primary key"
		return formatter.Success(result)
	}

	if err := cachekey.Validate(primaryKey); err != nil {
		return WrapExitError(ExitCommandError, "invalid primary key", err)
	}

	size, err := pathsSize(inputs.Paths, log)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read paths", err)
	}

	st, err := store.Open(opts.Store)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer closeStore(st, log)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	entry, err := st.PutEntry(ctx, store.Entry{
		Key:     primaryKey,
		Version: provider.Version(inputs.Paths),
		Paths:   inputs.Paths,
		Size:    size,
	})
	if errors.Is(err, store.ErrEntryExists) {
		log.Warn().Msgf("Unable to save cache with key %s, another job may have created this cache.", primaryKey)
		result.Reason = "entry already exists"
		return formatter.Success(result)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "failed to save cache", err)
	}

	log.Info().
		Str("key", entry.Key).
		Str("size", datasize.ByteSize(entry.Size).HumanReadable()).
		Msg("Cache saved.")

	result.Version = entry.Version
	result.SizeBytes = entry.Size
	result.Saved = true
	return formatter.Success(result)
}

// pathsSize sums the sizes of regular files under paths. Missing paths are
// skipped.
func pathsSize(paths []string, log zerolog.Logger) (int64, error) {
	var total int64
	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
			return nil
		})
		if errors.Is(err, os.ErrNotExist) {
			log.Warn().Str("path", root).Msg("Path does not exist, skipping.")
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	return total, nil
}
