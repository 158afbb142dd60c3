package document

import (
	"strings"
	"time"
)

// Block is one unit of content in reading order.
type Block interface {
	isBlock()
}

// Paragraph represents a paragraph with text
type Paragraph struct {
	Text string
}

func (p *Paragraph) isBlock() {}

// Table represents a table with cells
type Table struct {
	Rows  int
	Cols  int
	Cells []*Cell
}

func (t *Table) isBlock() {}

// Cell represents a table cell. Its content is itself a block list, so
// tables nest.
type Cell struct {
	Row     int
	Col     int
	RowSpan int
	ColSpan int
	Blocks  []Block
}

// Text flattens the cell content, one line per paragraph.
func (c *Cell) Text() string {
	return strings.Join(Lines(c.Blocks), "\n")
}

// ObjectKind names a non-text inline object.
type ObjectKind int

const (
	ObjectImage ObjectKind = iota
	ObjectOLE
	ObjectChart
	ObjectVideo
	ObjectEquation
)

func (k ObjectKind) String() string {
	switch k {
	case ObjectImage:
		return "IMAGE"
	case ObjectOLE:
		return "OLE"
	case ObjectChart:
		return "CHART"
	case ObjectVideo:
		return "VIDEO"
	case ObjectEquation:
		return "EQUATION"
	}
	return "OBJECT"
}

// Object represents an image, embedded object or equation. Text holds the
// equation script when there is one.
type Object struct {
	Kind ObjectKind
	Text string
}

func (o *Object) isBlock() {}

// Placeholder is the plain text stand-in for the object.
func (o *Object) Placeholder() string {
	if o.Text != "" {
		return o.Text
	}
	return "[" + o.Kind.String() + "]"
}

// Section is one body section.
type Section struct {
	Name   string
	Blocks []Block
}

// Metadata holds optional document properties.
type Metadata struct {
	Title      string
	Subject    string
	Author     string
	Keywords   string
	Comments   string
	LastAuthor string
	Created    time.Time
	Modified   time.Time
}

// Document is the format independent result of decoding.
type Document struct {
	Sections []Section
	Metadata Metadata
}

// Lines flattens blocks to text lines: paragraphs as they are, objects as
// placeholders, tables cell by cell in row-major order.
func Lines(blocks []Block) []string {
	var lines []string
	for _, b := range blocks {
		switch n := b.(type) {
		case *Paragraph:
			lines = append(lines, n.Text)
		case *Object:
			lines = append(lines, n.Placeholder())
		case *Table:
			for _, c := range n.Cells {
				lines = append(lines, Lines(c.Blocks)...)
			}
		}
	}
	return lines
}
