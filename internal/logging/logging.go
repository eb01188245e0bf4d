package logging

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New creates a new zerolog logger with console and file output at info level
func New() zerolog.Logger {
	return NewWithLevel("info")
}

// NewWithLevel creates the console + file logger filtered at the given level.
// Unknown levels fall back to info.
func NewWithLevel(level string) zerolog.Logger {
	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339},
	}

	logPath := LogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err == nil {
		// The console logger is still usable if the file cannot be opened
		if logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
			writers = append(writers, logFile)
		}
	}

	multi := zerolog.MultiLevelWriter(writers...)
	return zerolog.New(multi).Level(ParseLevel(level)).With().Timestamp().Caller().Logger()
}

// ParseLevel maps a config string to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// LogPath returns platform-specific log file path
func LogPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Logs"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/state"
		}
	}

	return filepath.Join(base, "whisper-desk", "whisper-desk.log")
}
