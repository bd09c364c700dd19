package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"

	"github.com/roach88/cacherestore/internal/store"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Version string
}

// ListEntry is one row of the list command.
type ListEntry struct {
	Key       string `json:"key"`
	Version   string `json:"version"`
	SizeBytes int64  `json:"size_bytes"`
	CreatedAt string `json:"created_at"`
	Restored  int    `json:"restored"`
}

// ListResult is the output of the list command.
type ListResult struct {
	Prefix  string      `json:"prefix"`
	Entries []ListEntry `json:"entries"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list [prefix]",
		Short: "List saved cache entries",
		Long: `List saved cache entries whose key starts with prefix, newest first.

Example:
  cacherestore list --store ./cache.db deps-
  cacherestore list --store ./cache.db --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			return runList(cmd, opts, prefix)
		},
	}

	cmd.Flags().StringVar(&opts.Version, "version", "", "only list entries of this cache version")

	return cmd
}

func runList(cmd *cobra.Command, opts *ListOptions, prefix string) error {
	if opts.Store == "" {
		return NewExitError(ExitCommandError, "--store is required")
	}
	log := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	st, err := openExistingStore(opts.Store)
	if err != nil {
		return err
	}
	defer closeStore(st, log)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	entries, err := st.ListByPrefix(ctx, opts.Version, prefix)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list entries", err)
	}

	result := ListResult{Prefix: prefix, Entries: make([]ListEntry, 0, len(entries))}
	for _, e := range entries {
		result.Entries = append(result.Entries, ListEntry{
			Key:       e.Key,
			Version:   e.Version,
			SizeBytes: e.Size,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
			Restored:  e.Restored,
		})
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(result)
	}
	return outputListText(cmd, result)
}

func outputListText(cmd *cobra.Command, result ListResult) error {
	out := cmd.OutOrStdout()
	if len(result.Entries) == 0 {
		if result.Prefix == "" {
			fmt.Fprintln(out, "No cache entries found.")
		} else {
			fmt.Fprintf(out, "No cache entries found for prefix: %s\n", result.Prefix)
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVERSION\tSIZE\tCREATED\tRESTORED")
	for _, e := range result.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			e.Key,
			shortVersion(e.Version),
			strings.ReplaceAll(datasize.ByteSize(e.SizeBytes).HumanReadable(), " ", ""),
			e.CreatedAt,
			e.Restored,
		)
	}
	return w.Flush()
}

// shortVersion truncates a version hash for display.
func shortVersion(v string) string {
	if len(v) > 12 {
		return v[:12]
	}
	return v
}

// openExistingStore opens a store without creating it.
func openExistingStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	return st, nil
}
