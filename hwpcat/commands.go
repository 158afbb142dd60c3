package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hanpama/hwarang"
)

var streamsCmd = &cobra.Command{
	Use:   "streams <file>",
	Short: "List the streams of a document in container order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, x, err := setup()
		if err != nil {
			return err
		}
		streams, err := x.Streams(args[0])
		if err != nil {
			return err
		}
		writeStreams(cmd.OutOrStdout(), streams)
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show format, version, flags and metadata of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, x, err := setup()
		if err != nil {
			return err
		}
		info, err := x.Inspect(args[0])
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}
		writeInfo(cmd.OutOrStdout(), info)
		return nil
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch <file>...",
	Short: "Extract many documents concurrently and print JSON results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, x, err := setup()
		if err != nil {
			return err
		}
		results := x.ExtractBatch(args)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
		writeSummary(cmd.ErrOrStderr(), args, results)
		return nil
	},
}

func init() {
	infoCmd.Flags().Bool("json", false, "print JSON instead of a table")

	// The batch summary goes to stderr; color follows that stream, not stdout.
	fd := os.Stderr.Fd()
	color.NoColor = os.Getenv("NO_COLOR") != "" || !(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
}

func writeStreams(w io.Writer, streams []hwarang.Stream) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Stream", "Size"})
	for i, s := range streams {
		t.AppendRow(table.Row{i, printableName(s.Name), s.Size})
	}
	t.Render()
}

func writeInfo(w io.Writer, info *hwarang.Info) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendRow(table.Row{"Format", info.Format})
	t.AppendRow(table.Row{"Version", info.Version})
	t.AppendRow(table.Row{"Flags", strings.Join(info.Flags, ", ")})
	t.AppendRow(table.Row{"Protected", info.Protected})
	t.AppendRow(table.Row{"Sections", len(info.Sections)})
	t.AppendSeparator()

	m := info.Metadata
	for _, kv := range []struct{ k, v string }{
		{"Title", m.Title},
		{"Subject", m.Subject},
		{"Author", m.Author},
		{"Keywords", m.Keywords},
		{"Comments", m.Comments},
		{"Last author", m.LastAuthor},
		{"Created", formatTime(m.Created)},
		{"Modified", formatTime(m.Modified)},
	} {
		if kv.v != "" {
			t.AppendRow(table.Row{kv.k, kv.v})
		}
	}
	t.Render()

	fmt.Fprintln(w)
	writeStreams(w, info.Streams)
}

// writeSummary prints one colored line per failed path and a count.
func writeSummary(w io.Writer, paths []string, results map[string]hwarang.BatchResult) {
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)

	seen := slices.Compact(slices.Sorted(slices.Values(paths)))
	failed := 0
	for _, p := range seen {
		if r := results[p]; r.Error != "" {
			failed++
			red.Fprintf(w, "FAIL ")
			fmt.Fprintf(w, "%s: %s\n", p, r.Error)
		}
	}
	ok := len(seen) - failed
	green.Fprintf(w, "%d ok", ok)
	fmt.Fprint(w, ", ")
	if failed > 0 {
		red.Fprintf(w, "%d failed", failed)
	} else {
		fmt.Fprintf(w, "%d failed", failed)
	}
	fmt.Fprintln(w)
}

// printableName shows the 0x05 prefix of property set streams.
func printableName(name string) string {
	if strings.HasPrefix(name, "\x05") {
		return `\x05` + name[1:]
	}
	return name
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
