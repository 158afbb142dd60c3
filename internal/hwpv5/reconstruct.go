package hwpv5

import (
	"slices"

	"github.com/hanpama/hwarang/internal/document"
)

type frameKind int

const (
	frameRoot frameKind = iota
	framePara
	frameCtrl
	frameTable
	frameList
)

// frame is one open scope on the level stack. sink is the block list new
// content of the scope is appended to.
type frame struct {
	kind  frameKind
	level int
	sink  *[]document.Block

	para       *document.Paragraph
	hasControl bool

	table  *document.Table
	object *document.Object
}

type reconstructor struct {
	section document.Section
	stack   []*frame
}

// Reconstruct rebuilds the block tree of a section from its flat record
// list. Records carry their nesting as a level number: a scope ends when a
// record at or above its level arrives. Paragraph lists (table cells,
// footnotes, text boxes) are sibling scoped and end at the next
// LIST_HEADER of the same level.
func Reconstruct(name string, recs []Rec) document.Section {
	r := &reconstructor{section: document.Section{Name: name}}
	r.stack = []*frame{{kind: frameRoot, level: -1, sink: &r.section.Blocks}}
	for _, rec := range recs {
		r.closeFrames(rec)
		r.handle(rec)
	}
	for len(r.stack) > 1 {
		r.pop()
	}
	return r.section
}

func (r *reconstructor) top() *frame { return r.stack[len(r.stack)-1] }

func (r *reconstructor) closeFrames(rec Rec) {
	lvl := int(rec.Lvl())
	_, isList := rec.(RecListHeader)
	for len(r.stack) > 1 {
		f := r.top()
		closes := lvl <= f.level
		if f.kind == frameList {
			closes = lvl < f.level || (lvl == f.level && isList)
		}
		if !closes {
			return
		}
		r.pop()
	}
}

func (r *reconstructor) pop() {
	f := r.top()
	r.stack = r.stack[:len(r.stack)-1]
	// A paragraph that only anchors controls carries no text of its own.
	if f.kind == framePara && f.hasControl && f.para.Text == "" {
		*f.sink = slices.DeleteFunc(*f.sink, func(b document.Block) bool {
			return b == document.Block(f.para)
		})
	}
}

func (r *reconstructor) push(f *frame) { r.stack = append(r.stack, f) }

func (r *reconstructor) handle(rec Rec) {
	cur := r.top()
	switch rec := rec.(type) {
	case RecParaHeader:
		p := &document.Paragraph{}
		*cur.sink = append(*cur.sink, p)
		r.push(&frame{kind: framePara, level: int(rec.Lvl()), sink: cur.sink, para: p})

	case RecParaText:
		f := cur
		if f.kind != framePara {
			// PARA_TEXT without a header: keep the text in an implicit paragraph.
			p := &document.Paragraph{}
			*cur.sink = append(*cur.sink, p)
			f = &frame{kind: framePara, level: int(rec.Lvl()), sink: cur.sink, para: p}
			r.push(f)
		}
		text, hasControl := paraTextString(rec.Els)
		f.para.Text += text
		f.hasControl = f.hasControl || hasControl

	case RecCtrlHeader:
		if rec.CtrlID == ctrlTable {
			t := &document.Table{}
			*cur.sink = append(*cur.sink, t)
			r.push(&frame{kind: frameTable, level: int(rec.Lvl()), sink: cur.sink, table: t})
			return
		}
		r.push(&frame{kind: frameCtrl, level: int(rec.Lvl()), sink: cur.sink})

	case RecTable:
		if cur.kind == frameTable {
			cur.table.Rows = max(cur.table.Rows, int(rec.RowCount))
			cur.table.Cols = max(cur.table.Cols, int(rec.ColCount))
		}

	case RecListHeader:
		if cur.kind == frameTable {
			cell := &document.Cell{RowSpan: 1, ColSpan: 1}
			if rec.HasCell {
				cell.Row, cell.Col = int(rec.RowIndex), int(rec.ColIndex)
				cell.RowSpan, cell.ColSpan = int(rec.RowSpan), int(rec.ColSpan)
			}
			t := cur.table
			t.Rows = max(t.Rows, cell.Row+cell.RowSpan)
			t.Cols = max(t.Cols, cell.Col+cell.ColSpan)
			t.Cells = append(t.Cells, cell)
			r.push(&frame{kind: frameList, level: int(rec.Lvl()), sink: &cell.Blocks})
			return
		}
		r.push(&frame{kind: frameList, level: int(rec.Lvl()), sink: cur.sink})

	case RecShapeComponentPicture:
		r.placeObject(document.ObjectImage)
	case RecShapeComponentOLE:
		r.placeObject(document.ObjectOLE)
	case RecChartData:
		if o := r.ownerObject(); o != nil && o.Kind == document.ObjectOLE {
			o.Kind = document.ObjectChart
			return
		}
		r.placeObject(document.ObjectChart)
	case RecVideoData:
		r.placeObject(document.ObjectVideo)
	case RecEqEdit:
		o := r.placeObject(document.ObjectEquation)
		o.Text = rec.Script
	}
}

// ctrlFrame returns the innermost open control scope, if any.
func (r *reconstructor) ctrlFrame() *frame {
	for i := len(r.stack) - 1; i > 0; i-- {
		if r.stack[i].kind == frameCtrl {
			return r.stack[i]
		}
	}
	return nil
}

func (r *reconstructor) ownerObject() *document.Object {
	if f := r.ctrlFrame(); f != nil {
		return f.object
	}
	return nil
}

// placeObject emits one object per control. Records repeated inside the
// same control (grouped shapes) reuse it.
func (r *reconstructor) placeObject(kind document.ObjectKind) *document.Object {
	f := r.ctrlFrame()
	if f != nil && f.object != nil {
		return f.object
	}
	o := &document.Object{Kind: kind}
	sink := r.top().sink
	if f != nil {
		sink = f.sink
		f.object = o
	}
	*sink = append(*sink, o)
	return o
}
