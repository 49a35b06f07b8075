// Package logger provides structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log is the global logger instance.
var Log zerolog.Logger

var (
	output     io.Writer = os.Stdout
	jsonFormat bool
)

func init() {
	rebuild()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// rebuild replaces Log from the current writer and format.
func rebuild() {
	if jsonFormat {
		Log = zerolog.New(output).With().Timestamp().Logger()
		return
	}

	console := zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	Log = zerolog.New(console).With().Timestamp().Caller().Logger()
}

// SetLevel sets the global log level. Unknown names mean info.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// SetJSON switches to JSON output (for production).
func SetJSON() {
	jsonFormat = true
	rebuild()
}

// Setup applies LOG_LEVEL and LOG_FORMAT ("console" or "json").
func Setup(level, format string) {
	SetLevel(level)
	jsonFormat = strings.EqualFold(format, "json")
	rebuild()
}

// SetOutput redirects logging to w, keeping the current format.
// The CLI points it at stderr so command output stays clean.
func SetOutput(w io.Writer) {
	output = w
	rebuild()
}
