package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/hanpama/hwarang"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{hwarang.ErrPasswordProtected, 3},
		{fmt.Errorf("a.hwp: %w", hwarang.ErrFile), 2},
		{hwarang.ErrInvalidSignature, 1},
		{errors.New("flag"), 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteSummary(t *testing.T) {
	color.NoColor = true
	results := map[string]hwarang.BatchResult{
		"ok.hwp":      {Text: "Hello"},
		"corrupt.hwp": {Error: "invalid signature: unknown leading magic"},
	}
	var buf bytes.Buffer
	writeSummary(&buf, []string{"ok.hwp", "corrupt.hwp", "ok.hwp"}, results)

	want := "FAIL corrupt.hwp: invalid signature: unknown leading magic\n1 ok, 1 failed\n"
	if buf.String() != want {
		t.Errorf("summary = %q, want %q", buf.String(), want)
	}
}

func TestWriteStreams(t *testing.T) {
	var buf bytes.Buffer
	writeStreams(&buf, []hwarang.Stream{
		{Name: "FileHeader", Size: 256},
		{Name: "\x05HwpSummaryInformation", Size: 512},
	})
	out := buf.String()
	for _, want := range []string{"FileHeader", `\x05HwpSummaryInformation`, "256"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x05") {
		t.Error("raw control byte in table output")
	}
}
