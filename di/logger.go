package di

import (
	"context"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects how the application logger is built.
type Config struct {
	Level       string
	Development bool
}

// NewLogger builds a zap logger at the configured level. An empty level
// means info.
func NewLogger(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", cfg.Level)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	return logger, nil
}

// LoggerOption supplies the logger to the graph, routes fx's own events
// through it and flushes it when the app stops. A bad config fails the app
// instead of panicking.
func LoggerOption(cfg Config) fx.Option {
	logger, err := NewLogger(cfg)
	if err != nil {
		return fx.Error(err)
	}
	return fx.Options(
		fx.Supply(logger),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l}
		}),
		fx.Invoke(syncOnStop),
	)
}

func syncOnStop(lc fx.Lifecycle, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			err := logger.Sync()
			// stdout and stderr reject fsync when they are a terminal or pipe.
			if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
				return nil
			}
			return errors.Wrap(err, "syncing logger")
		},
	})
}
