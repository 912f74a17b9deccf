package executor

import (
	"github.com/cirruslabs/breakpoint/internal/config"
	"go.uber.org/zap"
)

type Option func(*Executor)

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(executor *Executor) {
		executor.logger = logger
	}
}

func WithEnvironmentOverrides(overrides *config.EnvironmentOverrides) Option {
	return func(executor *Executor) {
		executor.overrides = overrides
	}
}
