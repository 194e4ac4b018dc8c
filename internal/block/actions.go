package block

// Toolbar actions. A toolbar button carries the class
// "editor-toolbar-<action>".
const (
	ActionBold          = "bold"
	ActionItalic        = "italic"
	ActionUnderline     = "underline"
	ActionStrikethrough = "strikethrough"
)

// InlineActions are the native formatting commands.
var InlineActions = []string{ActionBold, ActionItalic, ActionUnderline, ActionStrikethrough}

// Actions returns every toolbar action in display order: inline formatting
// first, then one entry per structural type.
func Actions() []string {
	out := append([]string(nil), InlineActions...)
	for _, t := range []Type{Paragraph, H1, H2, H3, H4, H5, H6, UnorderedList, OrderedList, TaskList, Code, Quote, Delimiter, Table, Image} {
		out = append(out, string(t))
	}
	return out
}

// IsInlineAction reports whether action is a formatting command rather than
// a block conversion.
func IsInlineAction(action string) bool {
	for _, a := range InlineActions {
		if a == action {
			return true
		}
	}
	return false
}

// InlineTag returns the element an inline action wraps the selection in.
func InlineTag(action string) string {
	switch action {
	case ActionBold:
		return "strong"
	case ActionItalic:
		return "em"
	case ActionUnderline:
		return "u"
	case ActionStrikethrough:
		return "s"
	}
	return ""
}

var listButtons = []string{string(UnorderedList), string(OrderedList), string(TaskList)}

var headingButtons = []string{string(H1), string(H2), string(H3), string(H4), string(H5), string(H6)}
