package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/roach88/cacherestore/internal/actions"
	"github.com/roach88/cacherestore/internal/config"
	"github.com/roach88/cacherestore/internal/restore"
)

// Mode selects whether the run persists state for a later save.
type Mode int

const (
	// ModeRestore persists state for the post phase.
	ModeRestore Mode = iota
	// ModeRestoreOnly discards state.
	ModeRestoreOnly
)

func (m Mode) String() string {
	switch m {
	case ModeRestore:
		return "restore"
	case ModeRestoreOnly:
		return "restore-only"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Sink receives outputs, state and the failure signal.
type Sink interface {
	restore.OutputSink
	restore.StateSink
}

// Options configures a run.
type Options struct {
	Mode        Mode
	Inputs      config.Inputs
	Provider    restore.Provider
	Environment restore.Environment
	Sink        Sink

	// ExplicitExit makes the caller terminate the process as soon as the run
	// completes, instead of letting pending work finish.
	ExplicitExit bool

	Logger zerolog.Logger
}

// Result is what a run produced.
type Result struct {
	Outcome restore.Outcome

	// Failure is the error reported through the failure signal.
	Failure error

	// Err is an error that escaped the orchestrator: a sink that could not
	// signal failure, or a recovered panic.
	Err error

	ExplicitExit bool
}

// ExitCode maps the result to a process exit code.
//
// With explicit exit a handled failure exits 0, since the failure signal
// already failed the step. Without it, any failure exits 1.
func (r Result) ExitCode() int {
	if r.Err != nil {
		return 1
	}
	if r.ExplicitExit {
		return 0
	}
	if r.Failure != nil {
		return 1
	}
	return 0
}

// Run executes one restore.
func Run(ctx context.Context, opts Options) (res Result) {
	res.ExplicitExit = opts.ExplicitExit
	log := opts.Logger.With().Str("mode", opts.Mode.String()).Logger()

	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			res.Err = fmt.Errorf("panic during %s: %w", opts.Mode, err)
			log.Error().Err(res.Err).Msg("Restore aborted.")
		}
	}()

	if opts.Sink == nil {
		res.Err = errors.New("no output sink configured")
		log.Error().Err(res.Err).Msg("Restore aborted.")
		return res
	}

	var state restore.StateSink = opts.Sink
	if opts.Mode == ModeRestoreOnly {
		state = actions.NullState{}
	}

	o := restore.New(opts.Inputs, restore.Deps{
		Provider:    opts.Provider,
		Environment: opts.Environment,
		Outputs:     opts.Sink,
		State:       state,
		Logger:      log,
	})

	report, err := o.Run(ctx)
	res.Outcome = report.Outcome
	res.Failure = report.Failure
	if err != nil {
		res.Err = err
		log.Error().Err(err).Msg("Restore aborted.")
		return res
	}
	if report.Failure != nil {
		log.Debug().Err(report.Failure).Msg("restore failed")
	}
	return res
}
