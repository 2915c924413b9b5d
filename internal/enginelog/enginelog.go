// Package enginelog holds the engine's structured logger. Library code
// logs through L() so a host bridge can swap the backend or silence it
// entirely; the default is a no-op logger, and the CLI installs a real
// one at startup.
package enginelog

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger atomic.Pointer[zap.SugaredLogger]

func init() {
	logger.Store(zap.NewNop().Sugar())
}

// L returns the current engine logger.
func L() *zap.SugaredLogger {
	return logger.Load()
}

// Set replaces the engine logger. Passing nil restores the no-op logger.
func Set(l *zap.SugaredLogger) {
	if l == nil {
		l = zap.NewNop().Sugar()
	}
	logger.Store(l)
}

// Init builds a production-encoded logger at the given level ("debug",
// "info", "warn", "error") writing to file, or stderr when file is
// empty, and installs it as the engine logger.
func Init(level, file string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	if file != "" {
		cfg.OutputPaths = []string{file}
		cfg.ErrorOutputPaths = []string{file}
	} else {
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
	}

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Set(l.Sugar())
	return nil
}
