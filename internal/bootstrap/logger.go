package bootstrap

import (
	"context"

	"tb-storyboard/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// newLogger writes to stderr, or to LOG_FILE when set so the console REPL
// stays readable.
func newLogger(lc fx.Lifecycle, config *config.Config) (*zap.Logger, error) {
	var zapConfig zap.Config

	if config.AppConfig.Debug {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	zapConfig.DisableStacktrace = true

	if config.AppConfig.LogFile != "" {
		zapConfig.OutputPaths = []string{config.AppConfig.LogFile}
		zapConfig.ErrorOutputPaths = []string{config.AppConfig.LogFile}
	}

	level, err := zap.ParseAtomicLevel(config.AppConfig.LogLevel)
	if err == nil {
		zapConfig.Level = level
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = logger.Sync()

			return nil
		},
	})

	return logger, nil
}
