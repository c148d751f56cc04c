// Package providers contains dependency injection providers for the OpenShelf server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/openshelf/openshelf-server/internal/config"
	"github.com/openshelf/openshelf-server/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:  logger.ParseLevel(cfg.Logger.Level),
		Format: cfg.Logger.Format,
	})

	log.Info("Starting OpenShelf Server",
		"name", cfg.Server.Name,
		"version", cfg.Server.Version,
		"log_level", cfg.Logger.Level,
		"db_driver", cfg.DB.Driver,
		"data_dir", cfg.Data.Dir,
	)

	return log, nil
}
