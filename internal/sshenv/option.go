package sshenv

import (
	"go.uber.org/zap"
)

type Option func(*Configurator)

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(configurator *Configurator) {
		configurator.logger = logger
	}
}

func WithSSHDirectory(sshDir string) Option {
	return func(configurator *Configurator) {
		configurator.sshDir = sshDir
	}
}

func WithProbe(probe ProbeFunc) Option {
	return func(configurator *Configurator) {
		configurator.probe = probe
	}
}
