package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/rs/zerolog"
)

// Supported values of the log_format setting.
const (
	FormatText    = "text"
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New builds a Logger for the given format. debug lowers the level to Debug.
func New(format string, w io.Writer, debug bool) (Logger, error) {
	switch format {
	case FormatText, "":
		return NewTextLogger(w, slogLevel(debug)), nil
	case FormatJSON:
		return NewJSONLogger(w, slogLevel(debug)), nil
	case FormatConsole:
		level := zerolog.InfoLevel
		if debug {
			level = zerolog.DebugLevel
		}
		return NewConsoleLogger(w, level), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func slogLevel(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
