package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger.
// Accepted accesses go out at Debug, rejected writes at Warn and error
// events at Error, so a default Info handler shows only what went wrong.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	level := slog.LevelDebug
	attrs := []slog.Attr{
		slog.String("source", event.Source.String()),
		slog.String("category", event.Category.String()),
	}

	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", event.SessionID))
	}
	if event.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", event.RequestID))
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote_addr", event.RemoteAddr))
	}

	switch {
	case event.Access != nil:
		attrs = append(attrs,
			slog.String("op", event.Access.Op.String()),
			slog.String("attribute", event.Access.Attribute),
			slog.Int64("value", event.Access.Value),
			slog.String("outcome", event.Access.Outcome.String()),
		)
		if event.Access.Op == OpWrite {
			attrs = append(attrs,
				slog.String("input", string(event.Access.Input)),
				slog.Int("consumed", event.Access.Consumed),
			)
		}
		if event.Access.Outcome.Rejected() {
			level = slog.LevelWarn
		}
	case event.Lifecycle != nil:
		attrs = append(attrs,
			slog.String("action", event.Lifecycle.Action.String()),
			slog.String("base_name", event.Lifecycle.BaseName),
			slog.Int("entries", event.Lifecycle.Entries),
		)
		if event.Lifecycle.Path != "" {
			attrs = append(attrs, slog.String("path", event.Lifecycle.Path))
		}
		if event.Lifecycle.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Lifecycle.Reason))
		}
		level = slog.LevelInfo
		if event.Lifecycle.Action == ActionRollback {
			level = slog.LevelWarn
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_source", event.Error.Source.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		level = slog.LevelError
	}

	a.logger.LogAttrs(context.Background(), level, "attribute event", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
