package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/playlore/playlore-server/internal/domain"
	"github.com/playlore/playlore-server/internal/metasync"
	"github.com/playlore/playlore-server/internal/service"
)

func newSyncCommand(opts *rootOptions) *cobra.Command {
	var tagged bool

	cmd := &cobra.Command{
		Use:   "sync <source>",
		Short: "Pull changes from a metadata source",
		Long: `Pull platforms, tags and games changed at a metadata source since the stored
watermarks. Interrupting a run keeps every phase that already finished; the next run
resumes from there.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return opts.withContainer(func(i do.Injector) error {
				svc, err := do.Invoke[*service.SyncService](i)
				if err != nil {
					return err
				}
				res, err := svc.Run(ctx, args[0], tagged)
				if res != nil {
					if printErr := opts.print(cmd.OutOrStdout(), res, func(w io.Writer) { printSyncResult(w, res) }); printErr != nil {
						return printErr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&tagged, "tagged", false, "sync only platforms and tags")

	cmd.AddCommand(newSyncInfoCommand(opts))
	cmd.AddCommand(newSyncListCommand(opts))
	return cmd
}

func newSyncInfoCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info <source>",
		Short: "Show how many records changed at a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(func(i do.Injector) error {
				svc, err := do.Invoke[*service.SyncService](i)
				if err != nil {
					return err
				}
				info, err := svc.Info(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), info, func(w io.Writer) {
					mode := "incremental"
					if info.Full {
						mode = "full"
					}
					fmt.Fprintf(w, "%s (%s): %d changed\n", info.Source, mode, info.Total)
					for _, kind := range domain.SyncKinds {
						fmt.Fprintf(w, "  %-10s %d\n", kind, info.Counts[kind])
					}
				})
			})
		},
	}
}

func newSyncListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured metadata sources and their watermarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withContainer(func(i do.Injector) error {
				svc, err := do.Invoke[*service.SyncService](i)
				if err != nil {
					return err
				}
				sources, err := svc.Sources(cmd.Context())
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), sources, func(w io.Writer) {
					if len(sources) == 0 {
						fmt.Fprintln(w, "no metadata sources configured")
					}
					for _, src := range sources {
						fmt.Fprintf(w, "%s\t%s\n", src.Name, src.BaseURL)
					}
				})
			})
		},
	}
}

func printSyncResult(w io.Writer, res *metasync.Result) {
	status := "completed"
	switch {
	case res.Cancelled:
		status = "cancelled"
	case res.Failure != nil:
		status = "failed"
	}
	fmt.Fprintf(w, "sync %s of %s %s in %s (run %s)\n", kindOf(res), res.Source, status, res.Elapsed, res.RunID)
	printStats(w, "platforms", res.Platforms)
	printStats(w, "tags", res.Tags)
	printStats(w, "games", res.Games)
	if res.Failure != nil {
		fmt.Fprintf(w, "  failed at batch %d: %s\n", res.Failure.Batch, res.Failure.Error)
	}
}

func kindOf(res *metasync.Result) string {
	switch {
	case res.Tagged:
		return "tagged fields"
	case res.Full:
		return "full"
	default:
		return "incremental"
	}
}

func printStats(w io.Writer, label string, s domain.ApplyStats) {
	fmt.Fprintf(w, "  %-10s created=%d updated=%d deleted=%d flagged=%d skipped_aliases=%d\n",
		label, s.Created, s.Updated, s.Deleted, s.Flagged, s.SkippedAliases)
}
