package render

import (
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/hanpama/hwarang/internal/document"
)

// TableMode selects how tables are written.
type TableMode int

const (
	// TableText writes each cell's text on its own line, row by row.
	TableText TableMode = iota
	// TableGrid draws tables as ASCII grids.
	TableGrid
)

// Options controls rendering.
type Options struct {
	Tables TableMode
	// Normalize applies Unicode NFC, composing decomposed Hangul jamo.
	Normalize bool
}

// Text renders a document to plain text. Paragraphs are separated by a
// newline and sections by a blank line.
func Text(doc *document.Document, opts Options) string {
	var sections []string
	for _, sec := range doc.Sections {
		if len(sec.Blocks) == 0 {
			continue
		}
		sections = append(sections, strings.Join(blockLines(sec.Blocks, opts), "\n"))
	}
	out := strings.Join(sections, "\n\n")
	if opts.Normalize {
		out = norm.NFC.String(out)
	}
	return out
}

// Write renders doc to w followed by a newline.
func Write(w io.Writer, doc *document.Document, opts Options) error {
	text := Text(doc, opts)
	if text == "" {
		return nil
	}
	_, err := io.WriteString(w, text+"\n")
	return err
}

func blockLines(blocks []document.Block, opts Options) []string {
	var lines []string
	for _, b := range blocks {
		switch n := b.(type) {
		case *document.Paragraph:
			lines = append(lines, n.Text)
		case *document.Object:
			lines = append(lines, n.Placeholder())
		case *document.Table:
			if opts.Tables == TableGrid {
				if g := renderGrid(n); g != "" {
					lines = append(lines, strings.TrimSuffix(g, "\n"))
					continue
				}
			}
			for _, c := range n.Cells {
				lines = append(lines, blockLines(c.Blocks, opts)...)
			}
		}
	}
	return lines
}
