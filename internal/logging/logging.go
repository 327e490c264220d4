// Package logging builds the process-wide zap logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/parisxmas/sangha/internal/gelf"
)

// New returns a production zap logger at the given level. verbose forces
// debug. When gelfAddr is set, entries are also shipped over GELF UDP; a
// GELF setup failure is logged as a warning and otherwise ignored.
func New(level string, verbose bool, gelfAddr string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl := zapcore.InfoLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
		lvl = parsed
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	var gelfErr error
	var opts []zap.Option
	if gelfAddr != "" {
		w, err := gelf.New(gelfAddr, "sangha")
		if err != nil {
			gelfErr = err
		} else {
			gelfCore := zapcore.NewCore(zapcore.NewJSONEncoder(cfg.EncoderConfig), w, cfg.Level)
			opts = append(opts, zap.WrapCore(func(c zapcore.Core) zapcore.Core {
				return zapcore.NewTee(c, gelfCore)
			}))
		}
	}

	logger, err := cfg.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("logging: build: %w", err)
	}
	if gelfErr != nil {
		logger.Warn("GELF init failed", zap.String("addr", gelfAddr), zap.Error(gelfErr))
	} else if gelfAddr != "" {
		logger.Info("GELF logging enabled", zap.String("addr", gelfAddr))
	}
	return logger, nil
}
