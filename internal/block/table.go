package block

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/starford/berkana/internal/dom"
	"github.com/starford/berkana/internal/inline"
)

// table keeps its header row in <thead> and the body grid in <tbody>.
type table struct{}

func (table) Type() Type          { return Table }
func (table) Triggers() []Trigger { return nil }

func (table) DisabledButtons() []string {
	out := append([]string(nil), headingButtons...)
	out = append(out, listButtons...)
	return append(out, string(Code), string(Quote))
}

func (t table) Transform(el *html.Node) *html.Node {
	reset(el, Table, true)
	el.AppendChild(t.grid([]string{"", ""}, [][]string{{"", ""}}))
	return t.Lines(el)[0]
}

func (table) grid(headers []string, rows [][]string) *html.Node {
	tbl := dom.Element("table")
	thead := dom.Element("thead")
	tr := dom.Element("tr")
	for _, h := range headers {
		th := dom.Element("th")
		fill(th, h)
		tr.AppendChild(th)
	}
	thead.AppendChild(tr)
	tbl.AppendChild(thead)
	tbody := dom.Element("tbody")
	for _, row := range rows {
		tr := dom.Element("tr")
		for i := range headers {
			td := dom.Element("td")
			if i < len(row) {
				fill(td, row[i])
			}
			tr.AppendChild(td)
		}
		tbody.AppendChild(tr)
	}
	tbl.AppendChild(tbody)
	return tbl
}

func (table) Lines(el *html.Node) []*html.Node {
	return dom.Query(el, "th, td")
}

// RemoveLine clears a cell instead of dropping it so the grid stays intact.
func (table) RemoveLine(_, line *html.Node) {
	dom.RemoveChildren(line)
}

func (t table) Render(b *Block) *html.Node {
	el := wrapper(Table, true)
	headers := b.Headers
	if len(headers) == 0 {
		headers = []string{""}
	}
	el.AppendChild(t.grid(headers, b.Rows))
	return el
}

func (t table) Read(el *html.Node) *Block {
	b := &Block{Type: Table}
	for i, tr := range dom.Query(el, "tr") {
		var cells []string
		for _, cell := range dom.Query(tr, "th, td") {
			cells = append(cells, strings.ReplaceAll(inline.FromNode(cell), "\n", " "))
		}
		if i == 0 {
			b.Headers = cells
		} else {
			b.Rows = append(b.Rows, cells)
		}
	}
	b.Content = GridContent(b.Headers, b.Rows)
	b.HTML = t.HTML(b)
	return b
}

// GridContent joins a table into its pipe-delimited content form.
func GridContent(headers []string, rows [][]string) string {
	lines := []string{strings.Join(headers, " | ")}
	for _, r := range rows {
		lines = append(lines, strings.Join(r, " | "))
	}
	return strings.Join(lines, "\n")
}

func (table) Markdown(b *Block) string {
	row := func(cells []string, n int) string {
		out := make([]string, n)
		for i := range out {
			if i < len(cells) {
				out[i] = strings.ReplaceAll(cells[i], "|", `\|`)
			}
		}
		return "| " + strings.Join(out, " | ") + " |"
	}
	n := len(b.Headers)
	sep := make([]string, n)
	for i := range sep {
		sep[i] = "---"
	}
	lines := []string{row(b.Headers, n), "| " + strings.Join(sep, " | ") + " |"}
	for _, r := range b.Rows {
		lines = append(lines, row(r, n))
	}
	return strings.Join(lines, "\n")
}

func (t table) HTML(b *Block) string {
	return dom.OuterHTML(t.grid(b.Headers, b.Rows))
}

// HandleKeyPress moves between cells with Tab and Shift+Tab, adding a row
// when tabbing past the last cell.
func (t table) HandleKeyPress(s Surface, ev *KeyEvent, _ string) bool {
	if ev.Key != KeyTab {
		return false
	}
	el := s.CurrentBlock()
	cells := t.Lines(el)
	cell, idx := lineAt(s, cells)
	if cell == nil {
		return false
	}
	ev.PreventDefault()
	switch {
	case ev.Shift && idx > 0:
		s.SetCursor(dom.PositionAt(cells[idx-1], dom.TextLen(cells[idx-1])))
	case ev.Shift:
	case idx+1 < len(cells):
		s.SetCursor(dom.PositionAt(cells[idx+1], dom.TextLen(cells[idx+1])))
	default:
		first := t.addRow(el)
		s.SetCursor(dom.Position{Node: first})
		s.Changed(el)
	}
	return true
}

// HandleEnterKey moves to the same column of the next row.
func (t table) HandleEnterKey(s Surface, ev *KeyEvent) bool {
	el := s.CurrentBlock()
	cells := t.Lines(el)
	cell, _ := lineAt(s, cells)
	if cell == nil {
		return false
	}
	ev.PreventDefault()
	col := dom.Index(cell)
	tr := cell.Parent
	next := nextRow(tr)
	if next == nil {
		t.addRow(el)
		next = nextRow(tr)
		s.Changed(el)
	}
	if target := dom.ChildAt(next, col); target != nil {
		s.SetCursor(dom.PositionAt(target, dom.TextLen(target)))
	}
	return true
}

func nextRow(tr *html.Node) *html.Node {
	for n := tr.NextSibling; n != nil; n = n.NextSibling {
		if dom.IsElement(n, "tr") {
			return n
		}
	}
	if tr.Parent != nil && dom.IsElement(tr.Parent, "thead") {
		if body := tr.Parent.NextSibling; body != nil {
			for n := body.FirstChild; n != nil; n = n.NextSibling {
				if dom.IsElement(n, "tr") {
					return n
				}
			}
		}
	}
	return nil
}

// addRow appends an empty body row and returns its first cell.
func (table) addRow(el *html.Node) *html.Node {
	tbody := dom.QueryOne(el, "tbody")
	header := dom.QueryOne(el, "tr")
	if tbody == nil || header == nil {
		return nil
	}
	tr := dom.Element("tr")
	for range dom.Query(header, "th, td") {
		tr.AppendChild(dom.Element("td"))
	}
	tbody.AppendChild(tr)
	return tr.FirstChild
}
