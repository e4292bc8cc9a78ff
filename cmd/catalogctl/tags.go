package main

import (
	"fmt"
	"io"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/playlore/playlore-server/internal/service"
	"github.com/playlore/playlore-server/internal/store"
)

func newTagsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Tag and platform maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Split tags whose names hold comma-separated lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withContainer(func(i do.Injector) error {
				n, err := do.MustInvoke[*service.TagService](i).CleanupCommaTags(cmd.Context())
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), map[string]int{"split": n}, func(w io.Writer) {
					fmt.Fprintf(w, "split %d tags\n", n)
				})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "fix-primary",
		Short: "Repair tags and platforms whose primary alias is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withContainer(func(i do.Injector) error {
				tags, err := do.MustInvoke[*service.TagService](i).FixPrimaryAliases(cmd.Context())
				if err != nil {
					return err
				}
				platforms, err := do.MustInvoke[*service.PlatformService](i).FixPrimaryAliases(cmd.Context())
				if err != nil {
					return err
				}
				out := map[string]int{"tags": tags, "platforms": platforms}
				return opts.print(cmd.OutOrStdout(), out, func(w io.Writer) {
					fmt.Fprintf(w, "fixed %d tags and %d platforms\n", tags, platforms)
				})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "cleanup-aliases",
		Short: "Trim alias whitespace and drop empty or duplicate aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withContainer(func(i do.Injector) error {
				tags, err := do.MustInvoke[*service.TagService](i).CleanupAliases(cmd.Context())
				if err != nil {
					return err
				}
				platforms, err := do.MustInvoke[*service.PlatformService](i).CleanupAliases(cmd.Context())
				if err != nil {
					return err
				}
				out := map[string]store.AliasCleanupResult{"tags": tags, "platforms": platforms}
				return opts.print(cmd.OutOrStdout(), out, func(w io.Writer) {
					fmt.Fprintf(w, "tags: renamed=%d deleted=%d skipped=%d\n", tags.Renamed, tags.Deleted, tags.Skipped)
					fmt.Fprintf(w, "platforms: renamed=%d deleted=%d skipped=%d\n", platforms.Renamed, platforms.Deleted, platforms.Skipped)
				})
			})
		},
	})
	return cmd
}
