package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"trace", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"fatal", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, path, err := New(&buf, "warn", "")
	if err != nil {
		t.Fatal(err)
	}
	if path != "" {
		t.Errorf("path = %q", path)
	}
	logger.Info("hidden")
	logger.Warn("shown", "stream", "BodyText/Section0")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("output = %q", out)
	}
	// Buffers are not terminals, so no escape codes.
	if strings.Contains(out, "\x1b[") {
		t.Errorf("colored output to a buffer: %q", out)
	}
}

func TestFanoutToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var buf bytes.Buffer
	logger, path, err := New(&buf, "debug", dir)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("section decoded", "records", 12)

	if !strings.Contains(buf.String(), "section decoded") {
		t.Errorf("console = %q", buf.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &rec); err != nil {
		t.Fatalf("log file is not JSON: %q", data)
	}
	if rec["msg"] != "section decoded" || rec["records"] != float64(12) {
		t.Errorf("record = %v", rec)
	}
}
