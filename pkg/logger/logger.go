// Package logger wires the shared ectologger interface onto a zap core.
package logger

import (
	"github.com/Gobusters/ectologger"
	"go.uber.org/zap"
)

// New builds the service logger. Pretty mode uses zap's console development
// encoder; otherwise structured JSON suitable for log shipping.
func New(appName string, pretty bool) ectologger.Logger {
	var zl *zap.Logger
	var err error
	if pretty {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		zl = zap.NewNop()
	}
	zl = zl.With(zap.String("app", appName))

	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		zl.Info("log", zap.Any("entry", msg))
	})
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}
