// Package dom provides the small set of tree operations the editor needs on
// top of golang.org/x/net/html: element construction, attribute and class
// access, text extraction, and goquery-backed queries.
package dom

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NBSP is the non-breaking space browsers insert into contenteditable text.
const NBSP = "\u00a0"

var tagRe = regexp.MustCompile(`<[^>]*>`)

// Element creates a detached element. attrs are key/value pairs.
func Element(tag string, attrs ...string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// NewText creates a detached text node.
func NewText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// IsElement reports whether n is an element with one of the given tags.
// With no tags it reports whether n is an element at all.
func IsElement(n *html.Node, tags ...string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if n.Data == t {
			return true
		}
	}
	return false
}

// Attr returns the value of the attribute key, or "".
func Attr(n *html.Node, key string) string {
	v, _ := LookupAttr(n, key)
	return v
}

// LookupAttr returns the attribute value and whether it is present.
func LookupAttr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces the attribute key.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes the attribute key if present.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// HasClass reports whether the class attribute of n contains class.
func HasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// Children returns the child nodes of n as a slice.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// Index returns the position of n among its parent's children, or -1.
func Index(n *html.Node) int {
	if n == nil || n.Parent == nil {
		return -1
	}
	i := 0
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c == n {
			return i
		}
		i++
	}
	return -1
}

// ChildAt returns the i-th child of n, or nil.
func ChildAt(n *html.Node, i int) *html.Node {
	if i < 0 {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if i == 0 {
			return c
		}
		i--
	}
	return nil
}

// ChildCount returns the number of children of n.
func ChildCount(n *html.Node) int {
	i := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		i++
	}
	return i
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// RemoveChildren detaches and returns every child of n.
func RemoveChildren(n *html.Node) []*html.Node {
	kids := Children(n)
	for _, c := range kids {
		n.RemoveChild(c)
	}
	return kids
}

// Append attaches nodes to the end of parent, detaching them first.
func Append(parent *html.Node, nodes ...*html.Node) {
	for _, c := range nodes {
		Detach(c)
		parent.AppendChild(c)
	}
}

// InsertAfter attaches n directly after ref.
func InsertAfter(n, ref *html.Node) {
	Detach(n)
	ref.Parent.InsertBefore(n, ref.NextSibling)
}

// Contains reports whether n is ancestor or equal to other.
func Contains(n, other *html.Node) bool {
	for c := other; c != nil; c = c.Parent {
		if c == n {
			return true
		}
	}
	return false
}

// Text returns the visible text of n: text node data with <br> rendered as
// a newline. Offsets used throughout the package index runes of this string.
func Text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch {
		case c.Type == html.TextNode:
			b.WriteString(c.Data)
			return
		case IsElement(c, "br"):
			b.WriteByte('\n')
			return
		}
		for k := c.FirstChild; k != nil; k = k.NextSibling {
			walk(k)
		}
	}
	walk(n)
	return b.String()
}

// TextLen returns the rune length of Text(n).
func TextLen(n *html.Node) int {
	return utf8.RuneCountInString(Text(n))
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// OuterHTML renders n itself.
func OuterHTML(n *html.Node) string {
	var buf bytes.Buffer
	_ = html.Render(&buf, n)
	return buf.String()
}

// Fragment parses s as children of a <div>.
func Fragment(s string) []*html.Node {
	nodes, err := html.ParseFragment(strings.NewReader(s), Element("div"))
	if err != nil {
		return []*html.Node{NewText(s)}
	}
	return nodes
}

// SetInnerHTML replaces the children of n with the parsed fragment s.
func SetInnerHTML(n *html.Node, s string) {
	RemoveChildren(n)
	Append(n, Fragment(s)...)
}

// StrippedText is the text used for trigger matching: markup removed,
// entities decoded, non-breaking spaces turned into plain spaces and
// leading whitespace trimmed. It works from the serialized markup so that
// escaped characters such as &gt; compare as the character they stand for.
func StrippedText(n *html.Node) string {
	s := tagRe.ReplaceAllString(InnerHTML(n), "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, NBSP, " ")
	return strings.TrimLeft(s, " \t\r\n")
}

// IsBlank reports whether the visible text of n is empty once whitespace
// and non-breaking spaces are removed.
func IsBlank(n *html.Node) bool {
	t := strings.ReplaceAll(Text(n), NBSP, " ")
	return strings.TrimSpace(t) == ""
}

// Normalize merges adjacent text nodes and drops empty ones beneath n.
func Normalize(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch c.Type {
		case html.TextNode:
			if c.Data == "" {
				n.RemoveChild(c)
			} else {
				for next != nil && next.Type == html.TextNode {
					c.Data += next.Data
					after := next.NextSibling
					n.RemoveChild(next)
					next = after
				}
			}
		case html.ElementNode:
			Normalize(c)
		}
		c = next
	}
}

// Query returns the descendants of n matching the CSS selector.
func Query(n *html.Node, selector string) []*html.Node {
	return goquery.NewDocumentFromNode(n).Find(selector).Nodes
}

// QueryOne returns the first descendant of n matching selector, or nil.
func QueryOne(n *html.Node, selector string) *html.Node {
	nodes := goquery.NewDocumentFromNode(n).Find(selector).First().Nodes
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// ByID returns the element with the given id attribute beneath doc.
func ByID(doc *html.Node, id string) *html.Node {
	var found *html.Node
	goquery.NewDocumentFromNode(doc).Find("[id]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, _ := s.Attr("id"); v == id {
			found = s.Nodes[0]
			return false
		}
		return true
	})
	return found
}

// Clone returns a deep, detached copy of n.
func Clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for k := n.FirstChild; k != nil; k = k.NextSibling {
		c.AppendChild(Clone(k))
	}
	return c
}
