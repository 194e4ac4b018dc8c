package block

import (
	"html"
	"strconv"
	"strings"

	xhtml "golang.org/x/net/html"

	"github.com/starford/berkana/internal/dom"
)

type image struct{}

func (image) Type() Type          { return Image }
func (image) Triggers() []Trigger { return nil }

func (image) DisabledButtons() []string {
	out := append([]string(nil), InlineActions...)
	return append(out, listButtons...)
}

func (image) Transform(el *xhtml.Node) *xhtml.Node {
	reset(el, Image, false)
	el.AppendChild(dom.Element("img", "src", "", "alt", ""))
	return nil
}

func (image) Lines(*xhtml.Node) []*xhtml.Node { return nil }

func (i image) Render(b *Block) *xhtml.Node {
	el := wrapper(Image, false)
	i.Transform(el)
	img := el.FirstChild
	dom.SetAttr(img, "src", b.Src)
	dom.SetAttr(img, "alt", b.Alt)
	if b.Width > 0 {
		dom.SetAttr(img, "width", strconv.Itoa(b.Width))
	}
	if b.Height > 0 {
		dom.SetAttr(img, "height", strconv.Itoa(b.Height))
	}
	return el
}

func (i image) Read(el *xhtml.Node) *Block {
	b := &Block{Type: Image}
	if img := dom.QueryOne(el, "img"); img != nil {
		ReadImage(b, img)
	}
	b.HTML = i.HTML(b)
	return b
}

// ReadImage copies src, alt and dimensions of an <img> into b.
func ReadImage(b *Block, img *xhtml.Node) {
	b.Src = dom.Attr(img, "src")
	b.Alt = dom.Attr(img, "alt")
	b.Width, _ = strconv.Atoi(dom.Attr(img, "width"))
	b.Height, _ = strconv.Atoi(dom.Attr(img, "height"))
	b.Content = b.Alt
}

func (image) Markdown(b *Block) string {
	return "![" + strings.ReplaceAll(b.Alt, "]", `\]`) + "](" + b.Src + ")"
}

func (image) HTML(b *Block) string {
	var sb strings.Builder
	sb.WriteString(`<img src="` + html.EscapeString(b.Src) + `" alt="` + html.EscapeString(b.Alt) + `"`)
	if b.Width > 0 {
		sb.WriteString(` width="` + strconv.Itoa(b.Width) + `"`)
	}
	if b.Height > 0 {
		sb.WriteString(` height="` + strconv.Itoa(b.Height) + `"`)
	}
	sb.WriteString(">")
	return sb.String()
}
