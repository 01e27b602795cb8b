package log

import (
	"context"

	"github.com/contractcheck/contractcheck/internal/core/ports"
)

type noopLogger struct{}

// Noop returns a logger that discards everything, for tests and defaults.
func Noop() ports.Logger {
	return noopLogger{}
}

func (noopLogger) Debugf(context.Context, string, ...any)        {}
func (noopLogger) Infof(context.Context, string, ...any)         {}
func (noopLogger) Warnf(context.Context, string, ...any)         {}
func (noopLogger) Errorf(context.Context, error, string, ...any) {}

func (n noopLogger) WithFields(map[string]any) ports.Logger { return n }
