package app

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds the diagnostics logger. The TUI owns the terminal, so
// structured output goes to a file; with no path configured, diagnostics
// are dropped.
func NewLogger(path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return logger, nil
}
