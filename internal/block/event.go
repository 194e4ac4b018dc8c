package block

import "unicode/utf8"

// Key names used by the dispatcher.
const (
	KeyEnter     = "Enter"
	KeyBackspace = "Backspace"
	KeyDelete    = "Delete"
	KeyTab       = "Tab"
)

// KeyEvent is a keydown as delivered by the host.
type KeyEvent struct {
	Key   string
	Shift bool
	Ctrl  bool
	Meta  bool
	Alt   bool

	prevented bool
}

// PreventDefault suppresses the native action for the event.
func (e *KeyEvent) PreventDefault() {
	e.prevented = true
}

// DefaultPrevented reports whether a handler suppressed the native action.
func (e *KeyEvent) DefaultPrevented() bool {
	return e.prevented
}

// Printable reports whether the key inserts a character.
func (e *KeyEvent) Printable() bool {
	return !e.Ctrl && !e.Meta && utf8.RuneCountInString(e.Key) == 1
}

// Command reports whether Ctrl or Meta is held.
func (e *KeyEvent) Command() bool {
	return e.Ctrl || e.Meta
}
