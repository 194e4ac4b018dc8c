package dom

import (
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Position is a boundary point. For a text node Offset counts runes into
// its data; for an element it counts children.
type Position struct {
	Node   *html.Node
	Offset int
}

// Range is a selection between two boundary points. A collapsed range is a
// plain cursor.
type Range struct {
	Start Position
	End   Position
}

// Caret returns a collapsed range at p.
func Caret(p Position) Range {
	return Range{Start: p, End: p}
}

// Collapsed reports whether the range is a plain cursor.
func (r Range) Collapsed() bool {
	return r.Start == r.End
}

// Valid reports whether both ends reference nodes.
func (r Range) Valid() bool {
	return r.Start.Node != nil && r.End.Node != nil
}

// Before is the boundary point immediately before n in its parent.
func Before(n *html.Node) Position {
	return Position{Node: n.Parent, Offset: Index(n)}
}

// After is the boundary point immediately after n in its parent.
func After(n *html.Node) Position {
	return Position{Node: n.Parent, Offset: Index(n) + 1}
}

// Spanning returns the range from before first to after last.
func Spanning(first, last *html.Node) Range {
	return Range{Start: Before(first), End: After(last)}
}

// Contents returns the range covering all children of n.
func Contents(n *html.Node) Range {
	return Range{Start: Position{Node: n}, End: Position{Node: n, Offset: ChildCount(n)}}
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func leafLen(n *html.Node) int {
	switch {
	case n.Type == html.TextNode:
		return runeLen(n.Data)
	case IsElement(n, "br"):
		return 1
	}
	total := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		total += leafLen(c)
	}
	return total
}

// TextOffset converts p into a rune offset within Text(container). The
// second result is false when p does not lie inside container.
func TextOffset(container *html.Node, p Position) (int, bool) {
	if p.Node == nil || !Contains(container, p.Node) {
		return 0, false
	}
	count := 0
	found := false
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if n == p.Node {
			found = true
			if n.Type == html.TextNode {
				count += clamp(p.Offset, 0, runeLen(n.Data))
				return
			}
			i := 0
			for c := n.FirstChild; c != nil && i < p.Offset; c = c.NextSibling {
				count += leafLen(c)
				i++
			}
			return
		}
		switch {
		case n.Type == html.TextNode:
			count += runeLen(n.Data)
			return
		case IsElement(n, "br"):
			count++
			return
		}
		for c := n.FirstChild; c != nil && !found; c = c.NextSibling {
			walk(c)
		}
	}
	walk(container)
	return count, found
}

// PositionAt resolves a rune offset in Text(container) to a boundary point.
// Offsets on a boundary between nodes resolve to the end of the preceding
// text node so that inserted text continues it.
func PositionAt(container *html.Node, offset int) Position {
	if offset < 0 {
		offset = 0
	}
	count := 0
	var result *Position
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil && result == nil; c = c.NextSibling {
			switch {
			case c.Type == html.TextNode:
				l := runeLen(c.Data)
				if offset <= count+l {
					result = &Position{Node: c, Offset: offset - count}
					return
				}
				count += l
			case IsElement(c, "br"):
				if offset == count {
					p := Before(c)
					result = &p
					return
				}
				count++
			case c.Type == html.ElementNode:
				walk(c)
			}
		}
	}
	walk(container)
	if result != nil {
		return *result
	}
	return Position{Node: container, Offset: ChildCount(container)}
}

// InsertText inserts s at p and returns the position just after it.
func InsertText(p Position, s string) Position {
	n := p.Node
	if n.Type == html.TextNode {
		r := []rune(n.Data)
		off := clamp(p.Offset, 0, len(r))
		n.Data = string(r[:off]) + s + string(r[off:])
		return Position{Node: n, Offset: off + runeLen(s)}
	}
	if prev := ChildAt(n, p.Offset-1); prev != nil && prev.Type == html.TextNode {
		prev.Data += s
		return Position{Node: prev, Offset: runeLen(prev.Data)}
	}
	t := NewText(s)
	n.InsertBefore(t, ChildAt(n, p.Offset))
	return Position{Node: t, Offset: runeLen(s)}
}

// InsertNode inserts n at p, splitting a text node when needed, and returns
// the position just after n.
func InsertNode(p Position, n *html.Node) Position {
	Detach(n)
	at := p.Node
	if at.Type == html.TextNode {
		r := []rune(at.Data)
		off := clamp(p.Offset, 0, len(r))
		tail := NewText(string(r[off:]))
		at.Data = string(r[:off])
		at.Parent.InsertBefore(tail, at.NextSibling)
		at.Parent.InsertBefore(n, tail)
		return Position{Node: tail}
	}
	at.InsertBefore(n, ChildAt(at, p.Offset))
	return After(n)
}

// DeleteText removes the runes [from, to) of Text(container). Inline
// elements emptied by the deletion are removed as well.
func DeleteText(container *html.Node, from, to int) {
	if to <= from {
		return
	}
	count := 0
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			switch {
			case c.Type == html.TextNode:
				r := []rune(c.Data)
				start, end := count, count+len(r)
				lo, hi := clamp(from-start, 0, len(r)), clamp(to-start, 0, len(r))
				if lo < hi {
					c.Data = string(r[:lo]) + string(r[hi:])
					if c.Data == "" {
						n.RemoveChild(c)
					}
				}
				count = end
			case IsElement(c, "br"):
				if count >= from && count < to {
					n.RemoveChild(c)
				}
				count++
			case c.Type == html.ElementNode:
				before := count
				walk(c)
				if count > before && count > from && before < to && c.FirstChild == nil && !isVoid(c) {
					n.RemoveChild(c)
				}
			}
			c = next
		}
	}
	walk(container)
}

// Truncate keeps only Text(container)[:offset].
func Truncate(container *html.Node, offset int) {
	DeleteText(container, offset, TextLen(container))
}

// TrimStart drops Text(container)[:offset].
func TrimStart(container *html.Node, offset int) {
	DeleteText(container, 0, offset)
}

func isVoid(n *html.Node) bool {
	switch n.Data {
	case "img", "input", "hr", "br":
		return true
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Compare orders two positions in document order, returning -1, 0 or 1.
// Both positions must belong to the same tree.
func Compare(a, b Position) int {
	pa, pb := path(a), path(b)
	for i := 0; i < len(pa) && i < len(pb); i++ {
		switch {
		case pa[i] < pb[i]:
			return -1
		case pa[i] > pb[i]:
			return 1
		}
	}
	switch {
	case len(pa) < len(pb):
		return -1
	case len(pa) > len(pb):
		return 1
	}
	return 0
}

// path lists child indices from the top of the tree down to p.Node,
// followed by p.Offset.
func path(p Position) []int {
	var out []int
	for n := p.Node; n != nil && n.Parent != nil; n = n.Parent {
		out = append(out, Index(n))
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return append(out, p.Offset)
}
