// Package providers contains dependency injection providers for the Playlore server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/playlore/playlore-server/internal/config"
	"github.com/playlore/playlore-server/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	version := do.MustInvokeNamed[string](i, VersionName)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting Playlore catalog server",
		"version", version,
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Data.Path,
		"sources_file", cfg.Data.SourcesFile,
	)

	return log, nil
}
