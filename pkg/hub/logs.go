package hub

import (
	"context"
	"log/slog"
	"time"

	"github.com/chamburr/soccer/pkg/protocol"
)

// LogHandler is a slog.Handler that broadcasts every record as a protocol
// log message. It never blocks the caller.
type LogHandler struct {
	hub   *Hub
	level slog.Leveler
	attrs []slog.Attr
	group string
}

// NewLogHandler mirrors records at or above level into h.
func NewLogHandler(h *Hub, level slog.Leveler) *LogHandler {
	return &LogHandler{hub: h, level: level}
}

func (l *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= l.level.Level()
}

func (l *LogHandler) Handle(_ context.Context, r slog.Record) error {
	entry := protocol.LogData{
		Time:    r.Time.Format(time.TimeOnly),
		Level:   r.Level.String(),
		Message: r.Message,
	}

	if len(l.attrs) > 0 || r.NumAttrs() > 0 {
		entry.Attrs = make(map[string]any, len(l.attrs)+r.NumAttrs())
		for _, a := range l.attrs {
			entry.Attrs[a.Key] = a.Value.Any()
		}
		r.Attrs(func(a slog.Attr) bool {
			entry.Attrs[l.key(a.Key)] = a.Value.Resolve().Any()
			return true
		})
	}

	msg, err := protocol.NewLogMessage(entry)
	if err != nil {
		return err
	}
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	l.hub.Broadcast(NewJSONMessage(data))
	return nil
}

func (l *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *l
	next.attrs = make([]slog.Attr, 0, len(l.attrs)+len(attrs))
	next.attrs = append(next.attrs, l.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: l.key(a.Key), Value: a.Value.Resolve()})
	}
	return &next
}

func (l *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return l
	}
	next := *l
	next.group = l.key(name)
	return &next
}

func (l *LogHandler) key(k string) string {
	if l.group == "" {
		return k
	}
	return l.group + "." + k
}
