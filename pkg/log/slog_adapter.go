package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.ConnectionID != "" {
		attrs = append(attrs, slog.String("conn_id", event.ConnectionID))
	}
	if event.Channel != ChannelNone {
		attrs = append(attrs, slog.String("channel", event.Channel.String()))
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.String("cmd", event.Frame.Command.String()),
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.Command != nil:
		attrs = append(attrs,
			slog.String("cmd", event.Command.Command.String()),
			slog.Bool("replied", event.Command.Replied),
		)
		if event.Command.Controller != nil {
			attrs = append(attrs, slog.Uint64("ctrl", uint64(*event.Command.Controller)))
		}
		if event.Command.Address != nil {
			attrs = append(attrs, slog.Uint64("addr", uint64(*event.Command.Address)))
		}
		if event.Command.Length != nil {
			attrs = append(attrs, slog.Uint64("len", uint64(*event.Command.Length)))
		}
		if event.Command.Error != "" {
			attrs = append(attrs, slog.String("error", event.Command.Error))
		}
		if event.Command.ProcessingTime != nil {
			attrs = append(attrs, slog.Duration("processing_time", *event.Command.ProcessingTime))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Class != "" {
			attrs = append(attrs, slog.String("error_class", event.Error.Class))
		}
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
