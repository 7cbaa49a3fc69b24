// Package comm defines the Communicator sink consumed by long-running
// analyses: progress reporting, cooperative cancellation, and
// warning/error logging. The core never constructs one — it is supplied by
// the host.
package comm

import (
	"context"
	"log/slog"
)

// MessageKind enumerates the progress message kinds a Communicator accepts.
type MessageKind int

const (
	NumSteps MessageKind = iota
	CurrentStep
	NumRecords
	CurrentRecord
)

// Communicator is the minimal progress/cancellation/logging sink an
// analysis reports to.
type Communicator interface {
	PostMessage(kind MessageKind, value int64)
	IsCancelled() bool
	LogWarning(s string)
	LogError(s string)
}

// Noop is a Communicator that discards every message and never cancels;
// the zero value is ready to use.
type Noop struct{}

func (Noop) PostMessage(MessageKind, int64) {}
func (Noop) IsCancelled() bool              { return false }
func (Noop) LogWarning(string)              {}
func (Noop) LogError(string)                {}

// Logging is a Communicator backed by a context.Context for cancellation
// and log/slog for warnings/errors.
type Logging struct {
	Ctx    context.Context
	Logger *slog.Logger
}

// NewLogging returns a Logging Communicator. If logger is nil, slog.Default
// is used; if ctx is nil, context.Background is used.
func NewLogging(ctx context.Context, logger *slog.Logger) *Logging {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Logging{Ctx: ctx, Logger: logger}
}

func (l *Logging) PostMessage(kind MessageKind, value int64) {
	l.Logger.Debug("analysis progress", "kind", kind, "value", value)
}

func (l *Logging) IsCancelled() bool {
	select {
	case <-l.Ctx.Done():
		return true
	default:
		return false
	}
}

func (l *Logging) LogWarning(s string) { l.Logger.Warn(s) }
func (l *Logging) LogError(s string)   { l.Logger.Error(s) }
