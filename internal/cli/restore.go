package cli

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/cacherestore/internal/actions"
	"github.com/roach88/cacherestore/internal/provider"
	"github.com/roach88/cacherestore/internal/restore"
	"github.com/roach88/cacherestore/internal/runner"
	"github.com/roach88/cacherestore/internal/store"
)

// RestoreOptions holds flags for the restore commands.
type RestoreOptions struct {
	*RootOptions
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return newRestoreCommand(&RestoreOptions{RootOptions: rootOpts}, runner.ModeRestore)
}

// NewRestoreOnlyCommand creates the restore-only command.
func NewRestoreOnlyCommand(rootOpts *RootOptions) *cobra.Command {
	return newRestoreCommand(&RestoreOptions{RootOptions: rootOpts}, runner.ModeRestoreOnly)
}

func newRestoreCommand(opts *RestoreOptions, mode runner.Mode) *cobra.Command {
	cmd := &cobra.Command{
		Use:  mode.String(),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(cmd, opts, mode)
		},
	}

	switch mode {
	case runner.ModeRestoreOnly:
		cmd.Short = "Restore caches without saving state for a later save"
		cmd.Long = `Restore caches without saving state.

Use this when the job never saves the cache, for example in a job that only
consumes caches produced elsewhere.

Example:
  INPUT_PRIMARY-KEY=deps-abc cacherestore restore-only --store ./cache.db`
	default:
		cmd.Short = "Restore caches and save state for the save command"
		cmd.Long = `Restore caches by primary key, then by first-match prefixes, then by
all-matches prefixes.

The primary key and the restored key are saved as state so that the save
command can skip saving after an exact hit.

Example:
  INPUT_PRIMARY-KEY=deps-abc INPUT_RESTORE-PREFIXES-FIRST-MATCH=deps- \
    cacherestore restore --store ./cache.db`
	}

	return cmd
}

func runRestore(cmd *cobra.Command, opts *RestoreOptions, mode runner.Mode) error {
	log := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	env, err := opts.environment()
	if err != nil {
		return err
	}
	inputs, err := opts.loadInputs(env)
	if err != nil {
		return err
	}

	sink := actions.NewWorkflow(env, cmd.OutOrStdout())

	var p restore.Provider
	if opts.Store != "" {
		st, err := store.Open(opts.Store)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open store", err)
		}
		defer closeStore(st, log)

		local := provider.NewLocal(st,
			provider.WithPaths(inputs.Paths),
			provider.WithLogger(log),
		)
		log.Debug().Str("run_id", local.RunID()).Str("store", opts.Store).Msg("cache store ready")
		p = local
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	res := runner.Run(ctx, runner.Options{
		Mode:         mode,
		Inputs:       inputs,
		Provider:     p,
		Environment:  actions.NewProbe(env, p != nil),
		Sink:         sink,
		ExplicitExit: opts.ExplicitExit,
		Logger:       log,
	})

	if code := res.ExitCode(); code != ExitSuccess {
		if res.Err != nil {
			return WrapExitError(code, "restore failed", res.Err)
		}
		return WrapExitError(code, "restore failed", res.Failure)
	}
	return nil
}

func closeStore(st *store.Store, log zerolog.Logger) {
	if err := st.Close(); err != nil {
		log.Error().Err(err).Msg("error closing cache store")
	}
}
