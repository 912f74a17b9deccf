package command

import (
	"cloud.google.com/go/compute/metadata"
	"github.com/blendle/zapdriver"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(logLevel string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}

	// GCE-backed CI workers get Stackdriver-shaped log entries
	if metadata.OnGCE() {
		config := zapdriver.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(level)

		return config.Build(zapdriver.WrapCore())
	}

	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(level)

	return config.Build()
}
