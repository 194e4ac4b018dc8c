// Package inline converts the inline subset of Markdown used inside block
// content (strong, emphasis, code spans, strike-through, links, underline and
// hard breaks) to HTML and back.
package inline

import (
	"html"
	"log/slog"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type marker struct {
	open, close string
	tag         string
}

var markers = []marker{
	{open: "**", close: "**", tag: "strong"},
	{open: "~~", close: "~~", tag: "s"},
	{open: "<u>", close: "</u>", tag: "u"},
	{open: "*", close: "*", tag: "em"},
}

// ToHTML renders inline Markdown as an HTML fragment. Unmatched markers are
// kept as literal text.
func ToHTML(md string) string {
	var b strings.Builder
	render(&b, md)
	return b.String()
}

func render(b *strings.Builder, s string) {
	for i := 0; i < len(s); {
		rest := s[i:]
		switch {
		case rest[0] == '\\' && len(rest) > 1 && isEscapable(rest[1]):
			b.WriteString(html.EscapeString(rest[1:2]))
			i += 2
			continue
		case rest[0] == '\n':
			b.WriteString("<br>")
			i++
			continue
		case rest[0] == '`':
			if end := strings.IndexByte(rest[1:], '`'); end >= 0 {
				b.WriteString("<code>")
				b.WriteString(html.EscapeString(rest[1 : 1+end]))
				b.WriteString("</code>")
				i += end + 2
				continue
			}
		case rest[0] == '[':
			if text, href, n, ok := link(rest); ok {
				b.WriteString(`<a href="`)
				b.WriteString(html.EscapeString(href))
				b.WriteString(`">`)
				render(b, text)
				b.WriteString("</a>")
				i += n
				continue
			}
		}
		if m, inner, n, ok := span(rest); ok {
			b.WriteString("<" + m.tag + ">")
			render(b, inner)
			b.WriteString("</" + m.tag + ">")
			i += n
			continue
		}
		b.WriteString(html.EscapeString(rest[:1]))
		i++
	}
}

func span(s string) (marker, string, int, bool) {
	for _, m := range markers {
		if !strings.HasPrefix(s, m.open) {
			continue
		}
		body := s[len(m.open):]
		end := strings.Index(body, m.close)
		if m.tag == "em" {
			// Skip a closing star that is really the start of "**".
			for end >= 0 && end+1 < len(body) && body[end+1] == '*' {
				next := strings.Index(body[end+2:], m.close)
				if next < 0 {
					end = -1
					break
				}
				end += 2 + next
			}
		}
		if end <= 0 {
			continue
		}
		return m, body[:end], len(m.open) + end + len(m.close), true
	}
	return marker{}, "", 0, false
}

func link(s string) (text, href string, n int, ok bool) {
	mid := strings.Index(s, "](")
	if mid < 0 {
		return "", "", 0, false
	}
	end := strings.IndexByte(s[mid+2:], ')')
	if end < 0 {
		return "", "", 0, false
	}
	return s[1:mid], s[mid+2 : mid+2+end], mid + 3 + end, true
}

func isEscapable(c byte) bool {
	return strings.IndexByte("\\`*_[]~#>|-.)+!", c) >= 0
}

// FromNode renders the children of n as inline Markdown.
func FromNode(n *xhtml.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		write(&b, c)
	}
	return b.String()
}

func write(b *strings.Builder, n *xhtml.Node) {
	switch n.Type {
	case xhtml.TextNode:
		b.WriteString(Escape(strings.ReplaceAll(n.Data, "\u00a0", " ")))
		return
	case xhtml.ElementNode:
	default:
		return
	}
	wrap := func(open, close string) {
		b.WriteString(open)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			write(b, c)
		}
		b.WriteString(close)
	}
	switch n.Data {
	case "br":
		b.WriteByte('\n')
	case "strong", "b":
		wrap("**", "**")
	case "em", "i":
		wrap("*", "*")
	case "s", "strike", "del":
		wrap("~~", "~~")
	case "u":
		wrap("<u>", "</u>")
	case "code":
		b.WriteString("`" + textOf(n) + "`")
	case "a":
		href := ""
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = a.Val
			}
		}
		wrap("[", "]("+href+")")
	case "input", "script", "style":
	default:
		wrap("", "")
	}
}

func textOf(n *xhtml.Node) string {
	if n.Type == xhtml.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textOf(c))
	}
	return b.String()
}

var escaper = strings.NewReplacer(`\`, `\\`, "`", "\\`", "*", `\*`, "[", `\[`, "~~", `\~\~`)

// Escape protects literal text from being read back as inline markup.
func Escape(s string) string {
	return escaper.Replace(s)
}

// fragmentContext returns the element inline fragments are parsed in.
// ParseFragment rejects a context whose DataAtom does not match its Data.
func fragmentContext() *xhtml.Node {
	return &xhtml.Node{Type: xhtml.ElementNode, Data: "div", DataAtom: atom.Div}
}

// Plain strips inline markup, returning only the text.
func Plain(md string) string {
	nodes, err := xhtml.ParseFragment(strings.NewReader(ToHTML(md)), fragmentContext())
	if err != nil {
		slog.Warn("inline: parse fragment", slog.String("error", err.Error()))
		return html.UnescapeString(md)
	}
	var b strings.Builder
	for _, n := range nodes {
		if n.Type == xhtml.ElementNode && n.Data == "br" {
			b.WriteByte('\n')
			continue
		}
		b.WriteString(textWithBreaks(n))
	}
	return b.String()
}

func textWithBreaks(n *xhtml.Node) string {
	if n.Type == xhtml.TextNode {
		return n.Data
	}
	if n.Type == xhtml.ElementNode && n.Data == "br" {
		return "\n"
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textWithBreaks(c))
	}
	return b.String()
}
