package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"
)

// logSettings is the logging part of the command line. The level comes from
// --log-level or HUSTSYNC_LOG_LEVEL, then LOG_LEVEL.
type logSettings struct {
	level   string
	debug   bool
	systemd bool
}

func logSettingsFrom(v *viper.Viper) logSettings {
	s := logSettings{level: os.Getenv("LOG_LEVEL")}
	if v == nil {
		return s
	}
	if lvl := v.GetString("log-level"); lvl != "" {
		s.level = lvl
	}
	s.debug = v.GetBool("debug")
	s.systemd = v.GetBool("with-systemd")
	return s
}

// parseLevel accepts the slog names, case-insensitively, plus "warning"
func parseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// newLogger writes JSON lines, or logfmt without timestamps when journald
// already stamps every line
func newLogger(w io.Writer, s logSettings) (*slog.Logger, error) {
	level, err := parseLevel(s.level)
	if s.debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if s.systemd {
		opts.ReplaceAttr = dropTime
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(spanContextHandler{h}), err
}

func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}

// SetupLogging installs the process-wide logger on stderr, keeping stdout
// for command output. A nil viper uses the environment only.
func SetupLogging(v *viper.Viper) {
	logger, err := newLogger(os.Stderr, logSettingsFrom(v))
	slog.SetDefault(logger)
	if err != nil {
		slog.Warn("Falling back to info level", "error", err)
	}
}

// spanContextHandler adds trace_id and span_id to records logged with a
// context that carries a sampled or remote span
type spanContextHandler struct {
	slog.Handler
}

func (h spanContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h spanContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return spanContextHandler{h.Handler.WithAttrs(attrs)}
}

func (h spanContextHandler) WithGroup(name string) slog.Handler {
	return spanContextHandler{h.Handler.WithGroup(name)}
}
