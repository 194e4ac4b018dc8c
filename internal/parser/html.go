package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/berkana/internal/block"
	"github.com/starford/berkana/internal/dom"
	"github.com/starford/berkana/internal/inline"
)

var spaceRe = regexp.MustCompile(`[ \t\r\n]+`)

// containers are descended into; their children are read as top-level
// elements.
var containers = map[string]bool{
	"html": true, "body": true, "div": true, "section": true, "article": true,
	"main": true, "header": true, "footer": true, "figure": true, "aside": true, "nav": true,
}

var inlineTags = map[string]bool{
	"a": true, "b": true, "strong": true, "i": true, "em": true, "u": true,
	"s": true, "strike": true, "del": true, "code": true, "span": true,
	"sub": true, "sup": true, "mark": true, "small": true, "kbd": true,
}

var skipped = map[string]bool{
	"script": true, "style": true, "meta": true, "link": true, "head": true, "title": true,
}

type htmlState struct {
	p       *Parser
	out     []*block.Block
	pending []*html.Node
}

// ParseHTML reads a trusted HTML fragment into one block per top-level
// block element. Only a pre > code pairing is a code block; runs of inline
// content outside any block element become paragraphs; editor block
// wrappers are read through their registered kind.
func (p *Parser) ParseHTML(text string) []*block.Block {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(text), body)
	if err != nil {
		return []*block.Block{p.paragraph(text)}
	}
	st := &htmlState{p: p, out: make([]*block.Block, 0)}
	for _, n := range nodes {
		collapse(n)
		st.node(n)
	}
	st.flush()
	return st.out
}

func (st *htmlState) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		st.pending = append(st.pending, n)
		return
	case html.ElementNode:
	default:
		return
	}
	tag := n.Data
	switch {
	case skipped[tag]:
		return
	case block.IsBlock(n) && dom.Attr(n, block.TypeAttr) != "":
		st.flush()
		st.emit(st.p.reg.KindOf(n).Read(n))
		return
	case inlineTags[tag]:
		st.pending = append(st.pending, n)
		return
	case tag == "br":
		st.flush()
		return
	case containers[tag]:
		st.flush()
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			st.node(c)
		}
		st.flush()
		return
	}
	st.flush()
	if b := st.element(n); b != nil {
		st.emit(b)
	}
}

func (st *htmlState) element(n *html.Node) *block.Block {
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level, _ := strconv.Atoi(n.Data[1:])
		return &block.Block{Type: block.HeadingType(level), Level: level, Content: strings.TrimSpace(inline.FromNode(n))}
	case "p":
		if img := soleImage(n); img != nil {
			return readImage(img)
		}
		return st.p.paragraph(strings.TrimSpace(inline.FromNode(n)))
	case "ul", "ol":
		return readList(n)
	case "pre":
		if c := dom.QueryOne(n, "pre > code"); c != nil && c.Parent == n {
			return &block.Block{Type: block.Code, Content: strings.TrimSuffix(dom.Text(c), "\n"), Language: block.LanguageOf(c)}
		}
		return st.p.paragraph(inline.Escape(strings.TrimSpace(dom.Text(n))))
	case "blockquote":
		return &block.Block{Type: block.Quote, Content: quoteContent(n)}
	case "table":
		return readTable(n)
	case "img":
		return readImage(n)
	case "hr":
		return &block.Block{Type: block.Delimiter}
	}
	content := strings.TrimSpace(inline.FromNode(n))
	if content == "" {
		return nil
	}
	return st.p.paragraph(content)
}

// soleImage returns the <img> of a paragraph that holds nothing else.
func soleImage(n *html.Node) *html.Node {
	var img *html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case dom.IsElement(c, "img") && img == nil:
			img = c
		case c.Type == html.TextNode && strings.TrimSpace(c.Data) == "":
		default:
			return nil
		}
	}
	return img
}

func readImage(img *html.Node) *block.Block {
	b := &block.Block{Type: block.Image}
	block.ReadImage(b, img)
	return b
}

func readList(n *html.Node) *block.Block {
	sel := goquery.NewDocumentFromNode(n)
	t := block.UnorderedList
	if n.Data == "ol" {
		t = block.OrderedList
	}
	if dom.HasClass(n, "task-list") || sel.ChildrenFiltered("li").Has("input[type=checkbox]").Length() > 0 ||
		sel.ChildrenFiltered("li."+block.TaskItemClass).Length() > 0 {
		t = block.TaskList
	}
	b := &block.Block{Type: t}
	var items []string
	sel.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		node := li.Nodes[0]
		items = append(items, strings.ReplaceAll(strings.TrimSpace(inline.FromNode(node)), "\n", " "))
		if t == block.TaskList {
			_, checked := dom.LookupAttr(dom.QueryOne(node, "input[type=checkbox]"), "checked")
			checked = checked || dom.Attr(node, block.CheckedAttr) == "true"
			b.Checked = append(b.Checked, checked)
		}
	})
	b.Content = strings.Join(items, "\n")
	return b
}

// quoteContent joins the paragraphs of a blockquote with newlines, or reads
// its inline content directly.
func quoteContent(n *html.Node) string {
	paras := dom.Query(n, "p")
	if len(paras) == 0 {
		return strings.TrimSpace(inline.FromNode(n))
	}
	lines := make([]string, 0, len(paras))
	for _, p := range paras {
		lines = append(lines, strings.TrimSpace(inline.FromNode(p)))
	}
	return strings.Join(lines, "\n")
}

func readTable(n *html.Node) *block.Block {
	b := &block.Block{Type: block.Table}
	for i, tr := range dom.Query(n, "tr") {
		var row []string
		for _, cell := range dom.Query(tr, "th, td") {
			row = append(row, strings.ReplaceAll(strings.TrimSpace(inline.FromNode(cell)), "\n", " "))
		}
		if i == 0 {
			b.Headers = row
		} else {
			b.Rows = append(b.Rows, row)
		}
	}
	b.Content = block.GridContent(b.Headers, b.Rows)
	return b
}

// collapse folds whitespace runs in text outside <pre> the way a browser
// renders them.
func collapse(n *html.Node) {
	switch {
	case n.Type == html.TextNode:
		n.Data = spaceRe.ReplaceAllString(n.Data, " ")
		return
	case dom.IsElement(n, "pre"):
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collapse(c)
	}
}

// flush turns buffered inline nodes into a paragraph.
func (st *htmlState) flush() {
	if len(st.pending) == 0 {
		return
	}
	holder := dom.Element("p")
	for _, n := range st.pending {
		holder.AppendChild(dom.Clone(n))
	}
	st.pending = nil
	content := strings.TrimSpace(inline.FromNode(holder))
	if content != "" {
		st.emit(st.p.paragraph(content))
	}
}

func (st *htmlState) emit(b *block.Block) {
	b.HTML = st.p.reg.Kind(b.Type).HTML(b)
	st.out = append(st.out, b)
}

func (p *Parser) paragraph(content string) *block.Block {
	b := &block.Block{Type: block.Paragraph, Content: content}
	b.HTML = p.reg.Kind(block.Paragraph).HTML(b)
	return b
}
