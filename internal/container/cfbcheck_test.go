package container

import (
	"errors"
	"testing"
	"time"

	"github.com/hanpama/hwarang/internal/hwperr"
)

func TestChainLengths(t *testing.T) {
	// 0 -> 1 -> 2 -> end, 3 <-> 4, 5 -> beyond the table, 6 -> 0
	table := []uint32{1, 2, endOfChain, 4, 3, 99, 0}
	got := chainLengths(table, uint32(len(table)))
	want := []int64{3, 2, 1, chainCycle, chainCycle, chainOutOfRange, 4}
	if len(got) != len(want) {
		t.Fatalf("got %d lengths, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sector %d: length %d, want %d", i, got[i], want[i])
		}
	}
}

func TestCheckStreamChain(t *testing.T) {
	table := []uint32{1, 2, endOfChain, 4, 3, 99, 0}
	lengths := chainLengths(table, uint32(len(table)))

	tests := []struct {
		name  string
		entry dirEntry
		ok    bool
	}{
		{"fits", dirEntry{name: "A", start: 0, size: 3 * 512}, true},
		{"shorter than declared", dirEntry{name: "B", start: 1, size: 3 * 512}, false},
		{"cycle", dirEntry{name: "C", start: 3, size: 1}, false},
		{"leaves the file", dirEntry{name: "D", start: 5, size: 1}, false},
		{"start out of range", dirEntry{name: "E", start: 7, size: 1}, false},
		{"joins another chain", dirEntry{name: "F", start: 6, size: 4 * 512}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkStreamChain(tt.entry, lengths, 512)
			if tt.ok {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, hwperr.ErrParse) {
				t.Fatalf("err = %v, want ParseError", err)
			}
			var he *hwperr.Error
			if errors.As(err, &he) && he.Stream != tt.entry.name {
				t.Errorf("stream = %q, want %q", he.Stream, tt.entry.name)
			}
		})
	}
}

// Many directory entries pointing into one long chain must not cost a walk
// each.
func TestSharedChainIsLinear(t *testing.T) {
	const n = 1 << 16
	table := make([]uint32, n)
	for i := range table {
		table[i] = uint32(i + 1)
	}
	table[n-1] = endOfChain

	entries := make([]dirEntry, n)
	for i := range entries {
		entries[i] = dirEntry{name: "S", typ: objStream, start: 0, size: n * 512}
	}

	start := time.Now()
	lengths := chainLengths(table, n)
	for _, e := range entries {
		if err := checkStreamChain(e, lengths, 512); err != nil {
			t.Fatal(err)
		}
	}
	if d := time.Since(start); d > 2*time.Second {
		t.Errorf("checking %d entries over a %d sector chain took %v", len(entries), n, d)
	}
}
