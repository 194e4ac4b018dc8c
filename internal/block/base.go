package block

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/starford/berkana/internal/dom"
	"github.com/starford/berkana/internal/inline"
)

// reset turns el into an empty wrapper of type t.
func reset(el *html.Node, t Type, editable bool) {
	dom.RemoveChildren(el)
	dom.RemoveAttr(el, LanguageAttr)
	dom.SetAttr(el, "class", BlockClass)
	dom.SetAttr(el, TypeAttr, string(t))
	if editable {
		dom.SetAttr(el, EditableAttr, "true")
	} else {
		dom.SetAttr(el, EditableAttr, "false")
	}
}

func wrapper(t Type, editable bool) *html.Node {
	el := dom.Element("div")
	reset(el, t, editable)
	return el
}

// fill appends the rendered inline markdown md to n.
func fill(n *html.Node, md string) {
	if md == "" {
		return
	}
	dom.Append(n, dom.Fragment(inline.ToHTML(md))...)
}

// SplitLine cuts line at the rune offset and returns the detached nodes
// that followed it.
func SplitLine(line *html.Node, offset int) []*html.Node {
	tail := dom.Clone(line)
	dom.Truncate(line, offset)
	dom.TrimStart(tail, offset)
	return dom.RemoveChildren(tail)
}

// cursorOffset returns the cursor offset inside line when the selection is
// a collapsed cursor within it.
func cursorOffset(s Surface, line *html.Node) (int, bool) {
	sel := s.Selection()
	if !sel.Collapsed() {
		return 0, false
	}
	return dom.TextOffset(line, sel.Start)
}

// lineAt returns the line of el holding the cursor and its index.
func lineAt(s Surface, lines []*html.Node) (*html.Node, int) {
	p := s.Selection().Start
	for i, l := range lines {
		if p.Node != nil && dom.Contains(l, p.Node) {
			return l, i
		}
	}
	return nil, -1
}

var leadingMarkers = []string{"#", ">", "- ", "* ", "+ ", "```", "~~~", "---", "***", "___", "|", "![", "[ ] ", "[] ", "[x] "}

// escapeLeading protects paragraph text that would otherwise be read back
// as another block type.
func escapeLeading(s string) string {
	for _, m := range leadingMarkers {
		if strings.HasPrefix(s, m) {
			return `\` + s
		}
	}
	if i := strings.IndexAny(s, ".)"); i > 0 && i+1 < len(s) && s[i+1] == ' ' && isDigits(s[:i]) {
		return s[:i] + `\` + s[i:]
	}
	return s
}

func unescapeNumber(s string) (string, bool) {
	i := strings.IndexByte(s, '\\')
	if i > 0 && i+2 < len(s) && (s[i+1] == '.' || s[i+1] == ')') && s[i+2] == ' ' && isDigits(s[:i]) {
		return s[:i] + s[i+1:], true
	}
	return s, false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// UnescapeLeading reverses escapeLeading for a paragraph line read back
// from Markdown.
func UnescapeLeading(s string) string {
	if u, ok := unescapeNumber(s); ok {
		return u
	}
	if !strings.HasPrefix(s, `\`) {
		return s
	}
	for _, m := range leadingMarkers {
		if strings.HasPrefix(s[1:], m) {
			return s[1:]
		}
	}
	return s
}
