package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/playlore/playlore-server/internal/config"
	"github.com/playlore/playlore-server/internal/di"
	"github.com/playlore/playlore-server/internal/logger"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	DataPath    string
	SourcesFile string
	LogLevel    string
	Format      string // "json" | "text"
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Administer a Playlore game catalog",
		Long:          "Runs metadata syncs, exports and imports, and catalog maintenance against a local catalog database.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DataPath, "data-path", "", "directory holding the catalog database (default: $DATA_PATH or ~/Playlore)")
	cmd.PersistentFlags().StringVar(&opts.SourcesFile, "sources-file", "", "YAML file listing metadata sources")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newTagsCommand(opts))
	cmd.AddCommand(newGamesCommand(opts))

	return cmd
}

// container builds the DI container for one command. Logs go to stderr so command
// output on stdout stays parseable.
func (o *rootOptions) container() (*do.RootScope, error) {
	args := []string{"-log-level", o.LogLevel, "-env-file", ""}
	if o.DataPath != "" {
		args = append(args, "-data-path", o.DataPath)
	}
	if o.SourcesFile != "" {
		args = append(args, "-sources-file", o.SourcesFile)
	}
	cfg, err := config.Load(args)
	if err != nil {
		return nil, err
	}

	injector := di.NewContainer(version, cfg)
	do.OverrideValue(injector, logger.New(logger.Config{
		Writer:      os.Stderr,
		Format:      "pretty",
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	}))
	return injector, nil
}

// withContainer runs fn against a container and shuts it down afterwards.
func (o *rootOptions) withContainer(fn func(i do.Injector) error) error {
	injector, err := o.container()
	if err != nil {
		return err
	}
	runErr := fn(injector)
	if shutdownErr := di.Shutdown(injector); shutdownErr != nil && runErr == nil {
		return shutdownErr
	}
	return runErr
}

// print writes v as indented JSON, or calls text for the text format.
func (o *rootOptions) print(w io.Writer, v any, text func(w io.Writer)) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
