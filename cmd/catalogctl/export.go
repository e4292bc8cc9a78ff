package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/playlore/playlore-server/internal/backup"
)

func newExportCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export catalog data",
	}
	cmd.AddCommand(newExportDBCommand(opts))
	cmd.AddCommand(newExportTagsCommand(opts))
	return cmd
}

func newExportDBCommand(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Export the whole catalog as a backup archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withContainer(func(i do.Injector) error {
				svc := do.MustInvoke[*backup.BackupService](i)
				if out == "" {
					res, err := svc.Create(cmd.Context(), backup.BackupOptions{})
					if err != nil {
						return err
					}
					return opts.print(cmd.OutOrStdout(), res, func(w io.Writer) {
						fmt.Fprintf(w, "backup written to %s (%d games, %d tags, %d platforms, %d playlists)\n",
							res.Path, res.Counts.Games, res.Counts.Tags, res.Counts.Platforms, res.Counts.Playlists)
					})
				}

				return writeFile(out, func(w io.Writer) error {
					manifest, err := svc.ExportDatabase(cmd.Context(), w)
					if err != nil {
						return err
					}
					return opts.print(cmd.ErrOrStderr(), manifest, func(w io.Writer) {
						fmt.Fprintf(w, "exported %d games to %s\n", manifest.Counts.Games, out)
					})
				})
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "archive path (default: a timestamped file in {data}/backups)")
	return cmd
}

func newExportTagsCommand(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Export categories and tags with their aliases as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withContainer(func(i do.Injector) error {
				svc := do.MustInvoke[*backup.BackupService](i)
				if out == "" || out == "-" {
					_, err := svc.ExportTags(cmd.Context(), cmd.OutOrStdout())
					return err
				}
				return writeFile(out, func(w io.Writer) error {
					_, err := svc.ExportTags(cmd.Context(), w)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import catalog data",
	}
	cmd.AddCommand(newImportTagsCommand(opts))
	return cmd
}

func newImportTagsCommand(opts *rootOptions) *cobra.Command {
	var merge bool
	cmd := &cobra.Command{
		Use:   "tags <file>",
		Short: "Import a tags document",
		Long: `Import a tags document written by "export tags". Tags are matched by alias. A tag
whose aliases belong to different existing tags is reported as a conflict unless
--merge is set, which merges those tags into the owner of the first alias.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0]) //#nosec G304 -- operator supplied path
			if err != nil {
				return err
			}
			defer f.Close()

			return opts.withContainer(func(i do.Injector) error {
				svc := do.MustInvoke[*backup.BackupService](i)
				res, err := svc.ImportTags(cmd.Context(), f, merge)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), res, func(w io.Writer) {
					fmt.Fprintf(w, "categories created=%d\n", res.CategoriesCreated)
					fmt.Fprintf(w, "tags created=%d updated=%d merged=%d unchanged=%d aliases added=%d\n",
						res.Created, res.Updated, res.Merged, res.Unchanged, res.AliasesAdded)
					for _, c := range res.Conflicts {
						fmt.Fprintf(w, "conflict: aliases %s belong to %s\n", strings.Join(c.Aliases, ", "), strings.Join(c.Owners, ", "))
					}
					for _, e := range res.Errors {
						fmt.Fprintf(w, "error: %s\n", e)
					}
				})
			})
		},
	}
	cmd.Flags().BoolVar(&merge, "merge", false, "merge tags whose aliases collide")
	return cmd
}

// writeFile creates path and passes a buffered writer to fn. A failed fn removes the file.
func writeFile(path string, fn func(w io.Writer) error) error {
	f, err := os.Create(path) //#nosec G304 -- operator supplied path
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	err = fn(bw)
	if err == nil {
		err = bw.Flush()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
	}
	return err
}
