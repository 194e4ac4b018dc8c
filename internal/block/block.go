// Package block defines the block content model and the per-type behaviour
// of the editor: markdown triggers, key handling, in-place transformation of
// a live element, rendering, and serialization.
package block

import (
	"golang.org/x/net/html"

	"github.com/starford/berkana/internal/dom"
)

// Type is the tag stored in data-block-type.
type Type string

// Block types.
const (
	Paragraph     Type = "p"
	H1            Type = "h1"
	H2            Type = "h2"
	H3            Type = "h3"
	H4            Type = "h4"
	H5            Type = "h5"
	H6            Type = "h6"
	Code          Type = "code"
	Delimiter     Type = "delimiter"
	Quote         Type = "quote"
	UnorderedList Type = "ul"
	OrderedList   Type = "ol"
	TaskList      Type = "sq"
	Table         Type = "table"
	Image         Type = "image"
)

// HeadingType returns the type tag for a heading level, clamped to 1-6.
func HeadingType(level int) Type {
	switch {
	case level <= 1:
		return H1
	case level >= 6:
		return H6
	}
	return Type("h" + string(rune('0'+level)))
}

// Block is the serialization unit of a document.
type Block struct {
	Type    Type   `json:"type"`
	Content string `json:"content"`
	HTML    string `json:"html"`
	Nested  bool   `json:"nested"`

	Level    int        `json:"level,omitempty"`
	Language string     `json:"language,omitempty"`
	Checked  []bool     `json:"checked,omitempty"`
	Src      string     `json:"src,omitempty"`
	Alt      string     `json:"alt,omitempty"`
	Width    int        `json:"width,omitempty"`
	Height   int        `json:"height,omitempty"`
	Headers  []string   `json:"headers,omitempty"`
	Rows     [][]string `json:"rows,omitempty"`
}

// Trigger is a literal prefix that requests a conversion. OnEnter triggers
// only fire when Enter is pressed with the block holding exactly the
// trigger, optionally followed by an info string.
type Trigger struct {
	Text    string
	OnEnter bool
}

// Class and attribute names of the live markup.
const (
	BlockClass    = "block"
	TypeAttr      = "data-block-type"
	EditableAttr  = "contenteditable"
	LanguageAttr  = "data-language"
	CheckedAttr   = "data-checked"
	TaskItemClass = "task-item"
)

// Kind is the behaviour shared by every block variant.
type Kind interface {
	Type() Type
	Triggers() []Trigger
	// DisabledButtons lists toolbar actions that make no sense for the type.
	DisabledButtons() []string
	// Transform rewrites the wrapper el in place into this type's markup
	// and returns the node that receives editable content, or nil when the
	// type has none.
	Transform(el *html.Node) *html.Node
	// Lines returns the editable containers of a live element in document
	// order. Cursor offsets are always relative to one line.
	Lines(el *html.Node) []*html.Node
	Render(b *Block) *html.Node
	Read(el *html.Node) *Block
	Markdown(b *Block) string
	HTML(b *Block) string
}

// Surface is the part of the editor that type-specific key handlers act on.
type Surface interface {
	Selection() dom.Range
	SetCursor(p dom.Position)
	CurrentBlock() *html.Node
	// InsertBlockAfter renders b after ref and returns the new element.
	InsertBlockAfter(ref *html.Node, b *Block) *html.Node
	RemoveBlock(el *html.Node)
	// FocusStart and FocusEnd move the cursor into el and make it current.
	FocusStart(el *html.Node)
	FocusEnd(el *html.Node)
	// RequestFrame defers fn until the current event turn has committed.
	RequestFrame(fn func())
	Changed(el *html.Node)
}

// KeyPressHandler intercepts printable keys and Tab.
type KeyPressHandler interface {
	HandleKeyPress(s Surface, ev *KeyEvent, text string) bool
}

// EnterHandler overrides the default Enter behaviour.
type EnterHandler interface {
	HandleEnterKey(s Surface, ev *KeyEvent) bool
}

// BackspaceHandler overrides Backspace on a non-empty block.
type BackspaceHandler interface {
	HandleBackspaceKey(s Surface, ev *KeyEvent) bool
}

// DeleteHandler overrides Delete on a non-empty block.
type DeleteHandler interface {
	HandleDeleteKey(s Surface, ev *KeyEvent) bool
}

// LineAdder is implemented by types holding several lines (lists).
type LineAdder interface {
	AddLine(el, after *html.Node) *html.Node
}

// LineRemover overrides how a line is dropped during a merge.
type LineRemover interface {
	RemoveLine(el, line *html.Node)
}

// InfoSetter receives the text after an OnEnter trigger, such as the
// language of a code fence.
type InfoSetter interface {
	SetInfo(el *html.Node, info string)
}

// TypeOf returns the data-block-type of a live element.
func TypeOf(el *html.Node) Type {
	return Type(dom.Attr(el, TypeAttr))
}

// IsBlock reports whether n is a block wrapper.
func IsBlock(n *html.Node) bool {
	return dom.IsElement(n, "div") && dom.HasClass(n, BlockClass)
}

// Lines returns the editable lines of el using its registered kind.
func (r *Registry) Lines(el *html.Node) []*html.Node {
	return r.KindOf(el).Lines(el)
}

// IsEmpty reports whether the block holds no visible content. Blocks
// without editable lines (delimiter, image) count as empty.
func (r *Registry) IsEmpty(el *html.Node) bool {
	for _, l := range r.Lines(el) {
		if !dom.IsBlank(l) || dom.QueryOne(l, "img") != nil {
			return false
		}
	}
	return true
}
