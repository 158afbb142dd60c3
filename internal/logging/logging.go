// Package logging configures the process-wide slog logger for hwpcat.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	slogmulti "github.com/samber/slog-multi"
)

// Setup configures the global slog logger. Console output goes to stderr so
// extracted text on stdout stays clean. If logOutputDir is non-empty, logs
// are also written as JSON to a timestamped file in that directory.
func Setup(levelStr string, logOutputDir string) error {
	logger, path, err := New(os.Stderr, levelStr, logOutputDir)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	if path != "" {
		fmt.Fprintf(os.Stderr, "Logging to file: %s\n", path)
	}
	return nil
}

// New builds the logger Setup installs and returns the log file path, if any.
func New(console io.Writer, levelStr string, logOutputDir string) (*slog.Logger, string, error) {
	level := ParseLevel(levelStr)

	consoleHandler := tint.NewHandler(console, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !isTerminal(console),
	})

	if logOutputDir == "" {
		return slog.New(consoleHandler), "", nil
	}

	logDir := os.ExpandEnv(logOutputDir)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create log output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	logFilePath := filepath.Join(logDir, fmt.Sprintf("hwpcat_%s.log", timestamp))

	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create log file: %w", err)
	}

	fileHandler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(consoleHandler, fileHandler)), logFilePath, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ParseLevel converts a string log level to slog.Level. Unknown names mean info.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug", "trace":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
