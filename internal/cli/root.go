package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cacherestore/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose      bool
	Format       string // "json" | "text"
	ConfigFile   string
	EnvFile      string
	Store        string
	ExplicitExit bool

	// Environ overrides the process environment (for testing).
	// If nil, defaults to os.Environ().
	Environ []string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the cacherestore CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

// Execute runs the CLI with args and returns the process exit code.
// Errors are reported on stderr, or on stdout as JSON with --format json.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		// flag and argument errors from cobra
		err = WrapExitError(ExitCommandError, "command error", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: stdout, ErrWriter: stderr}
	if !isValidFormat(opts.Format) {
		formatter.Format = "text"
	}
	_ = formatter.Error(err)
	return GetExitCode(err)
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cacherestore",
		Short: "Restore CI caches by primary key and prefixes",
		Long: `Restore CI caches for a pipeline step.

Inputs are read from INPUT_* environment variables, optionally layered over a
YAML config file and a .env file. Outputs and state are written as GitHub
Actions file commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to a YAML file with input values")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "path to a .env file merged into the environment")
	cmd.PersistentFlags().StringVar(&opts.Store, "store", "", "path to the SQLite cache store (caching is unavailable without it)")
	cmd.PersistentFlags().BoolVar(&opts.ExplicitExit, "explicit-exit", false, "exit 0 after a handled failure; the failure signal fails the step")

	cmd.AddCommand(NewRestoreCommand(opts))
	cmd.AddCommand(NewRestoreOnlyCommand(opts))
	cmd.AddCommand(NewSaveCommand(opts))
	cmd.AddCommand(NewListCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// environment returns the process environment merged with the .env file.
func (o *RootOptions) environment() (config.Env, error) {
	environ := o.Environ
	if environ == nil {
		environ = os.Environ()
	}
	env, err := config.LoadDotEnv(config.EnvFromList(environ), o.EnvFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load env file", err)
	}
	return env, nil
}

// loadInputs reads the step inputs.
func (o *RootOptions) loadInputs(env config.Env) (config.Inputs, error) {
	in, err := config.Load(config.LoadOptions{Env: env, ConfigFile: o.ConfigFile})
	if err != nil {
		return config.Inputs{}, WrapExitError(ExitCommandError, "invalid inputs", err)
	}
	return in, nil
}
