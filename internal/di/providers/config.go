// Package providers contains dependency injection providers for chaptify.
package providers

import (
	"os"

	"github.com/samber/do/v2"

	"github.com/chaptifyapp/chaptify/internal/config"
	"github.com/chaptifyapp/chaptify/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.Load(os.Args[1:])
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	log.Debug("configuration loaded",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"search_limit", cfg.Pipeline.SearchLimit,
		"drift_tolerance", cfg.Pipeline.DriftTolerance,
	)

	return log, nil
}
