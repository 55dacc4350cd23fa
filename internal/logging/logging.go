// Package logging builds the zerolog loggers injected into every component.
package logging

import (
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alfredjeanlab/secondscreen/internal/ui"
)

// Options selects the log level, output format, and destination.
type Options struct {
	Level  string    // debug, info, warn, error (default info)
	Format string    // auto, console, json (default auto)
	Out    io.Writer // default os.Stderr
}

// New returns a logger configured by opts. The auto format writes
// human-readable lines on a terminal and JSON otherwise.
func New(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	console := false
	color := false
	switch opts.Format {
	case "console":
		console = true
		if f, ok := out.(*os.File); ok {
			color = ui.ShouldUseColorFor(f)
		}
	case "json":
	default:
		if f, ok := out.(*os.File); ok && ui.IsTerminal(f) {
			console = true
			color = ui.ShouldUseColorFor(f)
		}
	}

	w := out
	if console {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
			NoColor:    !color,
		}
	}

	return zerolog.New(w).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel converts a level name to a zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// zerologWriter adapts a logger to io.Writer for stdlib integrations.
type zerologWriter struct {
	logger zerolog.Logger
}

func (w zerologWriter) Write(p []byte) (int, error) {
	w.logger.Warn().Msg(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

// StdErrorLogger returns a standard library *log.Logger that writes to
// logger at warn level. Useful for http.Server.ErrorLog.
func StdErrorLogger(logger zerolog.Logger) *stdlog.Logger {
	return stdlog.New(zerologWriter{logger: logger}, "", 0)
}
