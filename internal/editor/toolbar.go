package editor

import (
	"log/slog"

	"golang.org/x/net/html"

	"github.com/starford/berkana/internal/block"
	"github.com/starford/berkana/internal/dom"
	"github.com/starford/berkana/internal/events"
)

const (
	toolbarClass = "editor-toolbar"
	actionAttr   = "data-action"
	disabledAttr = "disabled"
)

// newToolbar renders one button per action directly before root.
func newToolbar(root *html.Node) *html.Node {
	bar := dom.Element("div", "class", toolbarClass)
	for _, a := range block.Actions() {
		btn := dom.Element("button", "type", "button", "class", toolbarClass+"-"+a, actionAttr, a)
		btn.AppendChild(dom.NewText(a))
		bar.AppendChild(btn)
	}
	if prev := root.PrevSibling; prev != nil && dom.HasClass(prev, toolbarClass) {
		dom.Detach(prev)
	}
	if root.Parent != nil {
		root.Parent.InsertBefore(bar, root)
	}
	return bar
}

// Toolbar returns the toolbar element, or nil when the editor has none.
func (e *Editor) Toolbar() *html.Node { return e.toolbar }

func (e *Editor) button(action string) *html.Node {
	if e.toolbar == nil {
		return nil
	}
	for c := e.toolbar.FirstChild; c != nil; c = c.NextSibling {
		if dom.Attr(c, actionAttr) == action {
			return c
		}
	}
	return nil
}

// ButtonDisabled reports whether the toolbar button for action is disabled.
func (e *Editor) ButtonDisabled(action string) bool {
	btn := e.button(action)
	if btn == nil {
		return false
	}
	_, ok := dom.LookupAttr(btn, disabledAttr)
	return ok
}

// UpdateToolbarButtonStates disables the buttons that do not apply to the
// current block and enables the rest.
func (e *Editor) UpdateToolbarButtonStates() {
	if e.toolbar == nil {
		return
	}
	el := e.CurrentBlock()
	if el == nil {
		e.EnableAllToolbarButtons()
		return
	}
	off := make(map[string]bool)
	for _, a := range e.reg.DisabledButtons(block.TypeOf(el)) {
		off[a] = true
	}
	for c := e.toolbar.FirstChild; c != nil; c = c.NextSibling {
		if off[dom.Attr(c, actionAttr)] {
			dom.SetAttr(c, disabledAttr, disabledAttr)
		} else {
			dom.RemoveAttr(c, disabledAttr)
		}
	}
}

// EnableAllToolbarButtons clears every disabled state.
func (e *Editor) EnableAllToolbarButtons() {
	if e.toolbar == nil {
		return
	}
	for c := e.toolbar.FirstChild; c != nil; c = c.NextSibling {
		dom.RemoveAttr(c, disabledAttr)
	}
}

// Click performs a toolbar action and reports whether it ran. Disabled
// buttons do nothing. The image action only announces itself; the host
// answers with InsertImage.
func (e *Editor) Click(action string) bool {
	if e.ButtonDisabled(action) {
		e.trace("editor: disabled toolbar action", slog.String("action", action))
		return false
	}
	ran := false
	e.turn(func() {
		var typ string
		if el := e.current(); el != nil {
			typ = string(block.TypeOf(el))
		}
		e.bus.Emit(events.ToolbarAction, events.Action{Action: action, Type: typ})
		switch {
		case block.IsInlineAction(action):
			ran = e.toggleInline(action)
		case block.Type(action) == block.Image:
			ran = true
		default:
			ran = e.ConvertCurrentBlockOrCreate(block.Type(action))
		}
	})
	return ran
}
