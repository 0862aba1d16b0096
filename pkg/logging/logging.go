package logging

import (
	"github.com/Gobusters/ectologger"
	"go.uber.org/zap"
)

// NewLogger builds the application logger. Structured entries are forwarded
// to a zap core so output format matches the rest of our services.
func NewLogger(appName string, pretty bool) (ectologger.Logger, error) {
	var zlog *zap.Logger
	var err error
	if pretty {
		zlog, err = zap.NewDevelopment()
	} else {
		zlog, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}

	zlog = zlog.Named(appName)

	logger := ectologger.NewEctoLogger(func(m ectologger.EctoLogMessage) {
		zlog.Info("log", zap.Any("entry", m))
	})

	return logger, nil
}

// NewNopLogger returns a logger that discards everything. Used in tests.
func NewNopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}
