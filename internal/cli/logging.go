package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ValidLogFormats defines the allowed --log-format values.
var ValidLogFormats = []string{"text", "json", "pretty"}

// LogOptions selects the slog handler installed by the CLI.
type LogOptions struct {
	Level  string // debug, info, warn or error
	Format string // text, json or pretty; empty picks pretty on a terminal
	File   string // rotated log file; empty logs to Stderr
}

// NewLogger builds a logger writing to stderr, or to a rotated file when
// opts.File is set. The returned closer releases the file and is a no-op
// for stderr.
func NewLogger(stderr io.Writer, opts LogOptions) (*slog.Logger, io.Closer, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = stderr
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		w, closer = rotated, rotated
	}

	format := opts.Format
	if format == "" {
		format = "text"
		if opts.File == "" && isTerminal(stderr) {
			format = "pretty"
		}
	}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "pretty":
		handler = charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(level),
			ReportTimestamp: true,
			Prefix:          "eventsheet",
		})
	default:
		_ = closer.Close()
		return nil, nil, fmt.Errorf("invalid log format %q: must be one of %v", format, ValidLogFormats)
	}
	return slog.New(handler), closer, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q", s)
}

// isTerminal reports whether w is a terminal file descriptor.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
