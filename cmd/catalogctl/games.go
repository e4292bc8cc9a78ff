package main

import (
	"fmt"
	"io"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/playlore/playlore-server/internal/browse"
	"github.com/playlore/playlore-server/internal/service"
)

func newGamesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "games",
		Short: "Game maintenance and queries",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rebuild-caches",
		Short: "Recompute the cached tag and platform strings of every game",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withContainer(func(i do.Injector) error {
				n, err := do.MustInvoke[*service.CatalogService](i).RebuildCaches(cmd.Context())
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), map[string]int{"games": n}, func(w io.Writer) {
					fmt.Fprintf(w, "rebuilt caches of %d games\n", n)
				})
			})
		},
	})
	cmd.AddCommand(newRandomCommand(opts))
	return cmd
}

func newRandomCommand(opts *rootOptions) *cobra.Command {
	var req browse.RandomRequest
	cmd := &cobra.Command{
		Use:   "random",
		Short: "Pick games uniformly at random",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withContainer(func(i do.Injector) error {
				games, err := do.MustInvoke[*browse.Service](i).RandomSample(cmd.Context(), req)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), games, func(w io.Writer) {
					for _, g := range games {
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", g.ID, g.Title, g.PrimaryPlatform(), g.Library)
					}
				})
			})
		},
	}
	cmd.Flags().IntVarP(&req.Count, "count", "n", 1, "number of games")
	cmd.Flags().BoolVar(&req.IncludeBroken, "include-broken", false, "include games marked broken")
	cmd.Flags().StringSliceVar(&req.ExcludedLibraries, "exclude-library", nil, "libraries to leave out")
	cmd.Flags().StringSliceVar(&req.ExcludedTags, "exclude-tag", nil, "tags to leave out")
	return cmd
}
