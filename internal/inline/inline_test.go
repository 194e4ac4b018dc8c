package inline

import (
	"strings"
	"testing"

	xhtml "golang.org/x/net/html"
)

func parse(t *testing.T, s string) *xhtml.Node {
	t.Helper()
	div := fragmentContext()
	nodes, err := xhtml.ParseFragment(strings.NewReader(s), div)
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range nodes {
		div.AppendChild(n)
	}
	return div
}

func TestToHTML(t *testing.T) {
	tests := []struct {
		md   string
		want string
	}{
		{"plain", "plain"},
		{"**b** *i*", "<strong>b</strong> <em>i</em>"},
		{"~~s~~ <u>u</u>", "<s>s</s> <u>u</u>"},
		{"`a<b`", "<code>a&lt;b</code>"},
		{"[text](http://x)", `<a href="http://x">text</a>`},
		{`\*lit\*`, "*lit*"},
		{"a\nb", "a<br>b"},
		{"2 * 3", "2 * 3"},
		{"a & b", "a &amp; b"},
	}
	for _, tt := range tests {
		if got := ToHTML(tt.md); got != tt.want {
			t.Errorf("ToHTML(%q) = %q, want %q", tt.md, got, tt.want)
		}
	}
}

func TestFromNodeRoundTrip(t *testing.T) {
	for _, md := range []string{
		"plain text",
		"**bold** and *em*",
		"~~gone~~ <u>under</u>",
		"`code` here",
		"[link](/x) after",
		`literal \* star`,
		"line\nbreak",
	} {
		got := FromNode(parse(t, ToHTML(md)))
		if got != md {
			t.Errorf("FromNode(ToHTML(%q)) = %q", md, got)
		}
	}
}

func TestFromNode_Aliases(t *testing.T) {
	got := FromNode(parse(t, "<b>x</b> <i>y</i> <del>z</del>&nbsp;w"))
	if got != "**x** *y* ~~z~~ w" {
		t.Errorf("FromNode = %q", got)
	}
}

func TestPlain_StripsMarkup(t *testing.T) {
	tests := []struct {
		md   string
		want string
	}{
		{"My **Heading**", "My Heading"},
		{"[link](/x)", "link"},
		{"*a* ~~b~~ `c` <u>d</u>", "a b c d"},
		{"one\ntwo", "one\ntwo"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := Plain(tt.md); got != tt.want {
			t.Errorf("Plain(%q) = %q, want %q", tt.md, got, tt.want)
		}
	}
}

func TestEscapeAndPlain(t *testing.T) {
	if got := Escape("a*b[c]`d`"); got != "a\\*b\\[c]\\`d\\`" {
		t.Errorf("Escape = %q", got)
	}
	if got := Plain("**Title** with [link](/x)"); got != "Title with link" {
		t.Errorf("Plain = %q", got)
	}
}
