package session

import (
	"go.uber.org/zap"
)

type Option func(*Coordinator)

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(coordinator *Coordinator) {
		coordinator.logger = logger
	}
}

func WithLauncher(launcher Launcher) Option {
	return func(coordinator *Coordinator) {
		coordinator.launcher = launcher
	}
}

func WithQuerier(querier Querier) Option {
	return func(coordinator *Coordinator) {
		coordinator.querier = querier
	}
}

func WithPoller(poller *Poller) Option {
	return func(coordinator *Coordinator) {
		coordinator.poller = poller
	}
}

func WithConnectionCallback(connectionCallback ConnectionCallback) Option {
	return func(coordinator *Coordinator) {
		coordinator.connectionCallback = connectionCallback
	}
}
