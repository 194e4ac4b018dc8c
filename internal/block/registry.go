package block

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Precedence is the order in which trigger sets are consulted. Task-list
// triggers come first because "- [ ] " also starts with the unordered list
// trigger "- "; longer heading markers come before shorter ones.
var Precedence = []Type{
	TaskList,
	H6, H5, H4, H3, H2, H1,
	UnorderedList,
	OrderedList,
	Quote,
	Code,
	Delimiter,
}

var infoRe = regexp.MustCompile(`^[A-Za-z0-9_+#.-]+$`)

// Registry maps type tags to their behaviour.
type Registry struct {
	kinds map[Type]Kind
	order []Type
}

// NewRegistry returns a registry with every built-in type registered.
func NewRegistry() *Registry {
	r := &Registry{kinds: make(map[Type]Kind)}
	r.Register(paragraph{})
	for level := 1; level <= 6; level++ {
		r.Register(heading{level: level})
	}
	r.Register(list{typ: UnorderedList})
	r.Register(list{typ: OrderedList})
	r.Register(list{typ: TaskList})
	r.Register(code{})
	r.Register(quote{})
	r.Register(delimiter{})
	r.Register(table{})
	r.Register(image{})
	return r
}

// Register adds or replaces the behaviour for k.Type().
func (r *Registry) Register(k Kind) {
	if _, ok := r.kinds[k.Type()]; !ok {
		r.order = append(r.order, k.Type())
	}
	r.kinds[k.Type()] = k
}

// Kind resolves a type tag. Unknown tags fall back to Paragraph.
func (r *Registry) Kind(t Type) Kind {
	if k, ok := r.kinds[t]; ok {
		return k
	}
	return r.kinds[Paragraph]
}

// Has reports whether t is registered.
func (r *Registry) Has(t Type) bool {
	_, ok := r.kinds[t]
	return ok
}

// KindOf resolves the behaviour of a live block element.
func (r *Registry) KindOf(el *html.Node) Kind {
	return r.Kind(TypeOf(el))
}

// Kinds returns every registered kind in registration order.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.kinds[t])
	}
	return out
}

// ordered yields the kinds in trigger precedence, followed by any kinds
// registered outside the precedence list.
func (r *Registry) ordered() []Kind {
	seen := make(map[Type]bool, len(r.kinds))
	var out []Kind
	for _, t := range Precedence {
		if k, ok := r.kinds[t]; ok {
			out = append(out, k)
			seen[t] = true
		}
	}
	for _, t := range r.order {
		if !seen[t] {
			out = append(out, r.kinds[t])
		}
	}
	return out
}

// MatchTrigger returns the kind whose typing trigger is a prefix of text,
// together with the matched trigger.
func (r *Registry) MatchTrigger(text string) (Kind, string, bool) {
	for _, k := range r.ordered() {
		for _, t := range k.Triggers() {
			if !t.OnEnter && strings.HasPrefix(text, t.Text) {
				return k, t.Text, true
			}
		}
	}
	return nil, "", false
}

// MatchEnterTrigger returns the kind whose Enter trigger equals text, or
// prefixes it with an info string for kinds that accept one.
func (r *Registry) MatchEnterTrigger(text string) (k Kind, info string, ok bool) {
	text = strings.TrimRight(text, " \t\r\n")
	for _, k := range r.ordered() {
		for _, t := range k.Triggers() {
			if !t.OnEnter || !strings.HasPrefix(text, t.Text) {
				continue
			}
			rest := strings.TrimSpace(text[len(t.Text):])
			if rest == "" {
				return k, "", true
			}
			if _, accepts := k.(InfoSetter); accepts && infoRe.MatchString(rest) {
				return k, rest, true
			}
		}
	}
	return nil, "", false
}

// DisabledButtons returns the toolbar actions disabled for type t.
func (r *Registry) DisabledButtons(t Type) []string {
	return r.Kind(t).DisabledButtons()
}
