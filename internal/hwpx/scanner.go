package hwpx

import (
	"encoding/xml"
	"errors"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/hanpama/hwarang/internal/document"
	"github.com/hanpama/hwarang/internal/hwperr"
)

type scopeKind int

const (
	scopeRoot scopeKind = iota
	scopePara
	scopeText
	scopeTable
	scopeCell
	scopeList
	scopeEquation
	scopeScript
)

// scope is one open element the scanner tracks. Elements without a scope
// are transparent: their children belong to the enclosing scope.
type scope struct {
	kind scopeKind
	name string
	sink *[]document.Block

	para       *document.Paragraph
	text       strings.Builder
	hasControl bool

	table *document.Table
	cell  *document.Cell

	object *document.Object
}

// ContentScanner parses HWPX section XML into blocks
type ContentScanner struct {
	decoder *xml.Decoder
	section document.Section
	stack   []*scope
}

// NewContentScanner creates a new ContentScanner from a section XML reader
func NewContentScanner(name string, r io.Reader) *ContentScanner {
	s := &ContentScanner{decoder: xml.NewDecoder(r)}
	s.section.Name = name
	s.stack = []*scope{{kind: scopeRoot, sink: &s.section.Blocks}}
	return s
}

// ParseSection decodes one section part.
func ParseSection(name string, r io.Reader) (document.Section, error) {
	return NewContentScanner(name, r).Scan()
}

// Scan consumes the whole section.
func (s *ContentScanner) Scan() (document.Section, error) {
	for {
		token, err := s.decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return document.Section{}, hwperr.Hwpx("XML parse error", err)
		}

		switch elem := token.(type) {
		case xml.StartElement:
			s.handleStartElement(elem)
		case xml.EndElement:
			if top := s.top(); top.kind != scopeRoot && top.name == elem.Name.Local {
				s.pop()
			}
		case xml.CharData:
			s.handleCharData(elem)
		}
	}
	for len(s.stack) > 1 {
		s.pop()
	}
	return s.section, nil
}

func (s *ContentScanner) top() *scope { return s.stack[len(s.stack)-1] }

func (s *ContentScanner) push(sc *scope) { s.stack = append(s.stack, sc) }

func (s *ContentScanner) pop() {
	sc := s.top()
	s.stack = s.stack[:len(s.stack)-1]
	if sc.kind != scopePara {
		return
	}
	sc.para.Text = sc.text.String()
	if sc.hasControl && sc.para.Text == "" {
		*sc.sink = slices.DeleteFunc(*sc.sink, func(b document.Block) bool {
			return b == document.Block(sc.para)
		})
	}
}

// nearest returns the innermost open scope of kind.
func (s *ContentScanner) nearest(kind scopeKind) *scope {
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i].kind == kind {
			return s.stack[i]
		}
	}
	return nil
}

// childSink is the block list of the innermost scope: a cell, a nested
// paragraph list, or the section itself.
func (s *ContentScanner) childSink() *[]document.Block {
	return s.top().sink
}

func (s *ContentScanner) handleStartElement(elem xml.StartElement) {
	name := elem.Name.Local
	switch name {
	case "p":
		p := &document.Paragraph{}
		sink := s.childSink()
		*sink = append(*sink, p)
		s.push(&scope{kind: scopePara, name: name, sink: sink, para: p})

	case "t":
		if s.nearest(scopePara) != nil {
			s.push(&scope{kind: scopeText, name: name, sink: s.childSink()})
		}

	case "tab":
		s.write("\t")
	case "lineBreak":
		s.write("\n")
	case "nbSpace", "fwSpace":
		s.write(" ")
	case "hyphen":
		s.write("-")

	case "tbl":
		t := &document.Table{
			Rows: attrInt(elem, "rowCnt"),
			Cols: attrInt(elem, "colCnt"),
		}
		sink := s.controlSink()
		*sink = append(*sink, t)
		s.push(&scope{kind: scopeTable, name: name, sink: sink, table: t})

	case "tc":
		tbl := s.nearest(scopeTable)
		if tbl == nil {
			return
		}
		cell := &document.Cell{RowSpan: 1, ColSpan: 1}
		tbl.table.Cells = append(tbl.table.Cells, cell)
		s.push(&scope{kind: scopeCell, name: name, sink: &cell.Blocks, table: tbl.table, cell: cell})

	case "cellAddr":
		if c := s.nearest(scopeCell); c != nil {
			c.cell.Col = attrInt(elem, "colAddr")
			c.cell.Row = attrInt(elem, "rowAddr")
			growTable(c.table, c.cell)
		}
	case "cellSpan":
		if c := s.nearest(scopeCell); c != nil {
			c.cell.ColSpan = max(attrInt(elem, "colSpan"), 1)
			c.cell.RowSpan = max(attrInt(elem, "rowSpan"), 1)
			growTable(c.table, c.cell)
		}

	case "subList":
		if s.top().kind == scopeCell {
			return
		}
		s.push(&scope{kind: scopeList, name: name, sink: s.controlSink()})

	case "pic":
		s.placeObject(document.ObjectImage)
	case "ole":
		s.placeObject(document.ObjectOLE)
	case "chart":
		s.placeObject(document.ObjectChart)
	case "video":
		s.placeObject(document.ObjectVideo)
	case "equation":
		o := s.placeObject(document.ObjectEquation)
		s.push(&scope{kind: scopeEquation, name: name, sink: s.childSink(), object: o})
	case "script":
		// Script text outside an open equation is dropped.
		if s.nearest(scopeEquation) != nil {
			s.push(&scope{kind: scopeScript, name: name, sink: s.childSink()})
		}
	}
}

func (s *ContentScanner) handleCharData(data xml.CharData) {
	switch s.top().kind {
	case scopeText:
		s.write(string(data))
	case scopeScript:
		if eq := s.nearest(scopeEquation); eq != nil {
			eq.object.Text += strings.TrimSpace(string(data))
		}
	}
}

// write appends to the innermost paragraph.
func (s *ContentScanner) write(text string) {
	if p := s.nearest(scopePara); p != nil {
		p.text.WriteString(text)
	}
}

// controlSink marks the current paragraph as a control anchor and returns
// the list its nested content follows.
func (s *ContentScanner) controlSink() *[]document.Block {
	if p := s.nearest(scopePara); p != nil {
		p.hasControl = true
		return p.sink
	}
	return s.childSink()
}

func (s *ContentScanner) placeObject(kind document.ObjectKind) *document.Object {
	o := &document.Object{Kind: kind}
	sink := s.controlSink()
	*sink = append(*sink, o)
	return o
}

func growTable(t *document.Table, c *document.Cell) {
	t.Rows = max(t.Rows, c.Row+c.RowSpan)
	t.Cols = max(t.Cols, c.Col+c.ColSpan)
}

func attrInt(elem xml.StartElement, name string) int {
	for _, a := range elem.Attr {
		if a.Name.Local == name {
			n, err := strconv.Atoi(strings.TrimSpace(a.Value))
			if err != nil {
				return 0
			}
			return n
		}
	}
	return 0
}
