package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// LevelTrace sits below debug; used for per-frame chatter.
const LevelTrace = slog.LevelDebug - 2

// Config captures the settings needed to build the service logger.
type Config struct {
	// Level is the textual level (trace, debug, info, warn, error).
	Level string
	// Format is json or text.
	Format    string
	AddSource bool
}

// LookupLevel maps a textual level to slog. ok is false for anything unrecognised.
func LookupLevel(raw string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return LevelTrace, true
	case "debug", "dbg":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error", "err":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// ParseLevel is LookupLevel defaulting to info.
func ParseLevel(raw string) slog.Level {
	level, _ := LookupLevel(raw)
	return level
}

func ValidFormat(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", FormatText, FormatJSON:
		return true
	}
	return false
}

// New builds a slog.Logger writing to w. Record times are rendered in UTC so log lines line up
// with the timestamps sent to clients.
func New(w io.Writer, cfg Config) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				return slog.String(slog.TimeKey, a.Value.Time().UTC().Format(time.RFC3339Nano))
			}
			if len(groups) == 0 && a.Key == slog.LevelKey {
				if level, ok := a.Value.Any().(slog.Level); ok && level == LevelTrace {
					return slog.String(slog.LevelKey, "TRACE")
				}
			}
			return a
		},
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Format), FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
