package editor

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"

	"github.com/starford/berkana/internal/block"
	"github.com/starford/berkana/internal/dom"
	"github.com/starford/berkana/internal/events"
)

type shape struct {
	Type    block.Type
	Content string
}

func shapes(e *Editor) []shape {
	var out []shape
	for _, b := range e.GetBlocks() {
		out = append(out, shape{Type: b.Type, Content: b.Content})
	}
	return out
}

func hostDoc(t *testing.T, inner string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(`<html><body><div id="ed">` + inner + `</div></body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func newEditor(t *testing.T, markdown string) *Editor {
	t.Helper()
	e, err := New(hostDoc(t, ""), Options{ID: "ed"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Close)
	if markdown != "" {
		e.SetMarkdown(markdown)
	}
	return e
}

// checkInvariant asserts that the root holds only block wrappers and at
// least one of them.
func checkInvariant(t *testing.T, e *Editor) {
	t.Helper()
	if len(e.Blocks()) == 0 {
		t.Fatal("editor has no blocks")
	}
	for c := e.Root().FirstChild; c != nil; c = c.NextSibling {
		if !block.IsBlock(c) {
			t.Fatalf("non-block child under root: %q", dom.OuterHTML(c))
		}
	}
}

func TestNew_RootNotFound(t *testing.T) {
	_, err := New(hostDoc(t, ""), Options{ID: "missing"})
	if !errors.Is(err, ErrRootNotFound) {
		t.Fatalf("err = %v, want ErrRootNotFound", err)
	}
}

func TestNew_ReadsExistingMarkup(t *testing.T) {
	doc := hostDoc(t, "<h2>Intro</h2><p>Body <strong>text</strong></p>")
	e, err := New(doc, Options{ID: "ed"})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	want := []shape{{block.H2, "Intro"}, {block.Paragraph, "Body **text**"}}
	if diff := cmp.Diff(want, shapes(e)); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
	if !dom.HasClass(e.Root(), RootClass) {
		t.Error("root is missing the editor class")
	}
	checkInvariant(t, e)
}

func TestNew_ReplacesPreviousInstance(t *testing.T) {
	doc := hostDoc(t, "")
	first, err := New(doc, Options{ID: "ed"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := New(doc, Options{ID: "ed"})
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	if got := Lookup(second.Root()); got != second {
		t.Errorf("Lookup = %p, want the newest editor %p", got, second)
	}
	first.Close()
	if got := Lookup(second.Root()); got != second {
		t.Error("closing a replaced editor unbound the current one")
	}
}

func TestEmptyEditor_HasDefaultBlock(t *testing.T) {
	e := newEditor(t, "")
	want := []shape{{block.Paragraph, ""}}
	if diff := cmp.Diff(want, shapes(e)); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
	checkInvariant(t, e)
}

func TestBackspace_WholeBlockSelection(t *testing.T) {
	e := newEditor(t, "Block one\n\nBlock two\n\nBlock three")
	if !e.SelectBlocks(1, 2) {
		t.Fatal("SelectBlocks failed")
	}
	e.Press(block.KeyBackspace)

	if got := e.GetMarkdown(); got != "Block one" {
		t.Errorf("markdown = %q, want %q", got, "Block one")
	}
	if i, off := e.Caret(); i != 0 || off != len("Block one") {
		t.Errorf("caret = (%d, %d), want end of first block", i, off)
	}
	checkInvariant(t, e)
}

func TestBackspace_PartialSelectionMergesBlocks(t *testing.T) {
	e := newEditor(t, "AAABBB\n\nCCCDDD\n\nEEEFFFGGG")
	if !e.SelectText(0, 3, 2, 3) {
		t.Fatal("SelectText failed")
	}
	e.Press(block.KeyBackspace)

	want := []shape{{block.Paragraph, "AAAFFFGGG"}}
	if diff := cmp.Diff(want, shapes(e)); diff != "" {
		t.Fatalf("after delete (-want +got):\n%s", diff)
	}
	if i, off := e.Caret(); i != 0 || off != 3 {
		t.Errorf("caret = (%d, %d), want (0, 3)", i, off)
	}

	e.Type("XYZ")
	if got := e.BlockText(0); got != "AAAXYZFFFGGG" {
		t.Errorf("text = %q, want AAAXYZFFFGGG", got)
	}
	checkInvariant(t, e)
}

func TestBackspace_SelectAllLeavesOneParagraph(t *testing.T) {
	e := newEditor(t, "# Title\n\ntext\n\n- a\n- b\n\n---")
	e.KeyDown(&block.KeyEvent{Key: "a", Ctrl: true})
	e.Press(block.KeyBackspace)

	want := []shape{{block.Paragraph, ""}}
	if diff := cmp.Diff(want, shapes(e)); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
	checkInvariant(t, e)
}

func TestTypingSelectionReplacesIt(t *testing.T) {
	e := newEditor(t, "one\n\ntwo")
	e.SelectText(0, 1, 1, 2)
	e.Type("X")
	if got := e.GetMarkdown(); got != "oXo" {
		t.Errorf("markdown = %q, want oXo", got)
	}
}

func TestTriggers(t *testing.T) {
	tests := []struct {
		typed string
		want  block.Type
	}{
		{"# ", block.H1},
		{"### ", block.H3},
		{"###### ", block.H6},
		{"- ", block.UnorderedList},
		{"* ", block.UnorderedList},
		{"1. ", block.OrderedList},
		{"[x] ", block.TaskList},
		{"[] ", block.TaskList},
		{"> ", block.Quote},
		{"  # ", block.H1},
	}
	for _, tt := range tests {
		t.Run(tt.typed, func(t *testing.T) {
			e := newEditor(t, "")
			e.Type(tt.typed)
			want := []shape{{tt.want, ""}}
			if diff := cmp.Diff(want, shapes(e)); diff != "" {
				t.Errorf("blocks mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTrigger_ListHasOneEmptyItem(t *testing.T) {
	e := newEditor(t, "")
	e.Type("- ")
	if n := len(dom.Query(e.Root(), "li")); n != 1 {
		t.Fatalf("items = %d, want 1", n)
	}

	// A second check on the converted block changes nothing.
	e.Input()
	if n := len(dom.Query(e.Root(), "li")); n != 1 {
		t.Errorf("items after re-check = %d, want 1", n)
	}
	if got := block.TypeOf(e.Blocks()[0]); got != block.UnorderedList {
		t.Errorf("type = %q, want ul", got)
	}
}

func TestTrigger_KeepsTextAfterMarker(t *testing.T) {
	e := newEditor(t, "")
	e.Type("# Title")
	want := []shape{{block.H1, "Title"}}
	if diff := cmp.Diff(want, shapes(e)); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestTrigger_OnlyFromParagraph(t *testing.T) {
	e := newEditor(t, "")
	e.Type("> - ")
	want := []shape{{block.Quote, "- "}}
	if diff := cmp.Diff(want, shapes(e)); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestCodeFence(t *testing.T) {
	e := newEditor(t, "")
	e.Type("```python\nx=1")

	blocks := e.GetBlocks()
	if len(blocks) != 1 || blocks[0].Type != block.Code {
		t.Fatalf("blocks = %v, want one code block", shapes(e))
	}
	if blocks[0].Language != "python" || blocks[0].Content != "x=1" {
		t.Errorf("code = %q (%q), want x=1 (python)", blocks[0].Content, blocks[0].Language)
	}
	if got := e.GetMarkdown(); got != "```python\nx=1\n```" {
		t.Errorf("markdown = %q", got)
	}

	// Newlines stay inside the block until the third Enter at its end.
	e.Type("\n\n\n")
	want := []shape{{block.Code, "x=1"}, {block.Paragraph, ""}}
	if diff := cmp.Diff(want, shapes(e)); diff != "" {
		t.Errorf("after leaving code (-want +got):\n%s", diff)
	}
	if i, _ := e.Caret(); i != 1 {
		t.Errorf("caret block = %d, want 1", i)
	}
}

func TestCodeFence_PastedThenEnter(t *testing.T) {
	e := newEditor(t, "")
	e.Paste(Clipboard{Text: "```go"})
	if got := shapes(e); len(got) != 1 || got[0].Type != block.Paragraph {
		t.Fatalf("fence converted before Enter: %v", got)
	}

	e.Press(block.KeyEnter)
	blocks := e.GetBlocks()
	if len(blocks) != 1 || blocks[0].Type != block.Code || blocks[0].Language != "go" {
		t.Fatalf("blocks = %+v, want one go code block", blocks)
	}
	checkInvariant(t, e)
}

func TestDelimiter(t *testing.T) {
	e := newEditor(t, "")
	e.Type("---\nnext")
	want := []shape{{block.Delimiter, ""}, {block.Paragraph, "next"}}
	if diff := cmp.Diff(want, shapes(e)); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
	if got := e.GetMarkdown(); got != "---\n\nnext" {
		t.Errorf("markdown = %q", got)
	}
}

func TestEnter_SplitsAndExitsList(t *testing.T) {
	e := newEditor(t, "")
	e.Type("- a\nb\n\nafter")
	want := []shape{{block.UnorderedList, "a\nb"}, {block.Paragraph, "after"}}
	if diff := cmp.Diff(want, shapes(e)); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestEnter_AtEndOfParagraphAddsBlock(t *testing.T) {
	e := newEditor(t, "one")
	e.SelectText(0, 3, 0, 3)
	e.Type("\ntwo")
	want := []shape{{block.Paragraph, "one"}, {block.Paragraph, "two"}}
	if diff := cmp.Diff(want, shapes(e)); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestBackspace_EmptyBlock(t *testing.T) {
	e := newEditor(t, "one\n\ntwo")
	e.SelectText(0, 3, 0, 3)
	e.Press(block.KeyEnter)
	if n := len(e.Blocks()); n != 3 {
		t.Fatalf("blocks = %d, want 3", n)
	}

	e.Press(block.KeyBackspace)
	if n := len(e.Blocks()); n != 2 {
		t.Fatalf("blocks after backspace = %d, want 2", n)
	}
	if i, off := e.Caret(); i != 0 || off != 3 {
		t.Errorf("caret = (%d, %d), want end of previous block", i, off)
	}

	e.Press(block.KeyEnter)
	e.Press(block.KeyDelete)
	if n := len(e.Blocks()); n != 2 {
		t.Fatalf("blocks after delete = %d, want 2", n)
	}
	if i, off := e.Caret(); i != 1 || off != 0 {
		t.Errorf("caret = (%d, %d), want start of next block", i, off)
	}
}

func TestBackspace_LastBlockRevertsToParagraph(t *testing.T) {
	e := newEditor(t, "")
	e.Type("# ")
	e.Press(block.KeyBackspace)
	want := []shape{{block.Paragraph, ""}}
	if diff := cmp.Diff(want, shapes(e)); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}

	e.Press(block.KeyBackspace)
	if diff := cmp.Diff(want, shapes(e)); diff != "" {
		t.Errorf("backspace in the only paragraph changed it (-want +got):\n%s", diff)
	}
	checkInvariant(t, e)
}

func TestBackspace_MergesWithPreviousBlock(t *testing.T) {
	e := newEditor(t, "one\n\ntwo")
	e.SelectText(1, 0, 1, 0)
	e.Press(block.KeyBackspace)

	want := []shape{{block.Paragraph, "onetwo"}}
	if diff := cmp.Diff(want, shapes(e)); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
	if i, off := e.Caret(); i != 0 || off != 3 {
		t.Errorf("caret = (%d, %d), want (0, 3)", i, off)
	}
}

func TestDelete_MergesNextBlock(t *testing.T) {
	e := newEditor(t, "# Head\n\ntail")
	e.SelectText(0, 4, 0, 4)
	e.Press(block.KeyDelete)

	want := []shape{{block.H1, "Headtail"}}
	if diff := cmp.Diff(want, shapes(e)); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestBackspace_DeletesCharacter(t *testing.T) {
	e := newEditor(t, "abc")
	e.SelectText(0, 2, 0, 2)
	e.Press(block.KeyBackspace)
	e.Press(block.KeyDelete)
	if got := e.BlockText(0); got != "a" {
		t.Errorf("text = %q, want a", got)
	}
}

func TestConvertCurrentBlockOrCreate(t *testing.T) {
	e := newEditor(t, "hello")
	e.SelectText(0, 0, 0, 0)
	if !e.ConvertCurrentBlockOrCreate(block.Quote) {
		t.Fatal("conversion reported false")
	}
	if e.ConvertCurrentBlockOrCreate(block.Quote) {
		t.Error("converting to the same type reported true")
	}
	want := []shape{{block.Quote, "hello"}}
	if diff := cmp.Diff(want, shapes(e)); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestPaste(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		clip Clipboard
		want []shape
	}{
		{
			name: "single block replaces empty block",
			clip: Clipboard{HTML: "<h2>Sub</h2>"},
			want: []shape{{block.H2, "Sub"}},
		},
		{
			name: "paragraph into empty block inline",
			clip: Clipboard{HTML: "<p>plain <em>text</em></p>"},
			want: []shape{{block.Paragraph, "plain *text*"}},
		},
		{
			name: "several blocks drop empty paragraph",
			clip: Clipboard{HTML: "<p>one</p><ul><li>two</li></ul>"},
			want: []shape{{block.Paragraph, "one"}, {block.UnorderedList, "two"}},
		},
		{
			name: "multi-line text",
			clip: Clipboard{Text: "alpha\n\nbeta\n"},
			want: []shape{{block.Paragraph, "alpha"}, {block.Paragraph, "beta"}},
		},
		{
			name: "single line text inline",
			doc:  "ab",
			clip: Clipboard{Text: "XY"},
			want: []shape{{block.Paragraph, "abXY"}},
		},
		{
			name: "blocks after non-empty block",
			doc:  "keep",
			clip: Clipboard{HTML: "<hr><p>x</p>"},
			want: []shape{{block.Paragraph, "keep"}, {block.Delimiter, ""}, {block.Paragraph, "x"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEditor(t, tt.doc)
			if tt.doc != "" {
				e.SelectText(0, len(tt.doc), 0, len(tt.doc))
			}
			e.Paste(tt.clip)
			if diff := cmp.Diff(tt.want, shapes(e)); diff != "" {
				t.Errorf("blocks mismatch (-want +got):\n%s", diff)
			}
			checkInvariant(t, e)
		})
	}
}

func TestPaste_EmitsEvent(t *testing.T) {
	e := newEditor(t, "")
	var got []events.Paste
	e.On(events.UserPaste, func(ev events.Event) { got = append(got, ev.Payload.(events.Paste)) })
	e.Paste(Clipboard{HTML: "<p>a</p><p>b</p>"})
	if len(got) != 1 || !got[0].HTML || got[0].Blocks != 2 {
		t.Errorf("paste events = %+v", got)
	}
}

func TestInsertImageAndToggleTask(t *testing.T) {
	e := newEditor(t, "- [ ] one\n- [x] two")
	e.SelectText(0, 0, 0, 0)
	if !e.ToggleTask(0, 0) {
		t.Fatal("ToggleTask returned false")
	}
	if e.ToggleTask(0, 5) {
		t.Error("ToggleTask accepted an out-of-range item")
	}
	if got := e.GetMarkdown(); got != "- [x] one\n- [x] two" {
		t.Errorf("markdown = %q", got)
	}

	e.InsertImage("/a.png", "A")
	blocks := e.GetBlocks()
	if len(blocks) != 3 || blocks[1].Type != block.Image || blocks[1].Src != "/a.png" {
		t.Fatalf("blocks = %v", shapes(e))
	}
	if i, _ := e.Caret(); i != 2 {
		t.Errorf("caret block = %d, want the paragraph after the image", i)
	}
}

func TestToolbar(t *testing.T) {
	e, err := New(hostDoc(t, ""), Options{ID: "ed", Toolbar: true})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	bar := e.Toolbar()
	if bar == nil || bar.NextSibling != e.Root() {
		t.Fatal("toolbar not rendered before the root")
	}
	if n := len(dom.Query(bar, "button")); n != len(block.Actions()) {
		t.Errorf("buttons = %d, want %d", n, len(block.Actions()))
	}

	e.Type("# ")
	for _, a := range []string{block.ActionBold, string(block.UnorderedList)} {
		if !e.ButtonDisabled(a) {
			t.Errorf("%s enabled in a heading", a)
		}
	}
	if e.Click(block.ActionBold) {
		t.Error("disabled button ran")
	}

	var actions []string
	e.On(events.ToolbarAction, func(ev events.Event) { actions = append(actions, ev.Payload.(events.Action).Action) })
	if !e.Click(string(block.Quote)) {
		t.Fatal("quote click did not run")
	}
	if got := block.TypeOf(e.Blocks()[0]); got != block.Quote {
		t.Errorf("type = %q, want quote", got)
	}
	if e.ButtonDisabled(block.ActionBold) {
		t.Error("bold still disabled in a quote")
	}
	if !e.Click(string(block.Image)) {
		t.Error("image click did not run")
	}
	if diff := cmp.Diff([]string{"quote", "image"}, actions); diff != "" {
		t.Errorf("toolbar events (-want +got):\n%s", diff)
	}

	e.EnableAllToolbarButtons()
	if e.ButtonDisabled(string(block.UnorderedList)) {
		t.Error("EnableAllToolbarButtons left a button disabled")
	}
}

func TestToolbar_AbsentIsSafe(t *testing.T) {
	e := newEditor(t, "x")
	e.UpdateToolbarButtonStates()
	e.EnableAllToolbarButtons()
	if e.ButtonDisabled(block.ActionBold) {
		t.Error("button reported disabled without a toolbar")
	}
}

func TestInlineFormatting(t *testing.T) {
	e := newEditor(t, "hello world")
	e.SelectText(0, 0, 0, 5)
	if !e.Click(block.ActionBold) {
		t.Fatal("bold click did not run")
	}
	if got := e.GetMarkdown(); got != "**hello** world" {
		t.Fatalf("markdown = %q", got)
	}

	e.SelectText(0, 0, 0, 5)
	e.KeyDown(&block.KeyEvent{Key: "b", Ctrl: true})
	if got := e.GetMarkdown(); got != "hello world" {
		t.Errorf("markdown after toggle = %q", got)
	}

	e.SelectText(0, 6, 0, 11)
	e.KeyDown(&block.KeyEvent{Key: "i", Meta: true})
	if got := e.GetMarkdown(); got != "hello *world*" {
		t.Errorf("markdown after italic = %q", got)
	}
}

func TestEvents(t *testing.T) {
	e, err := New(hostDoc(t, ""), Options{ID: "ed", Debounce: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	var changes, typeChanges int
	e.On(events.ContentChanged, func(events.Event) { changes++ })
	e.On(events.BlockTypeChanged, func(ev events.Event) {
		tc := ev.Payload.(events.TypeChange)
		if tc.From != "p" || tc.To != "h1" {
			t.Errorf("type change = %+v", tc)
		}
		typeChanges++
	})

	e.Type("# abc")
	if changes != 0 {
		t.Errorf("content.changed delivered before the debounce elapsed")
	}
	e.Flush()
	if changes != 1 {
		t.Errorf("content.changed deliveries = %d, want 1", changes)
	}
	if typeChanges != 1 {
		t.Errorf("block.type.changed deliveries = %d, want 1", typeChanges)
	}
}

func TestRequestFrame_RunsAfterTurn(t *testing.T) {
	e := newEditor(t, "")
	var order []string
	e.turn(func() {
		e.RequestFrame(func() {
			order = append(order, "first")
			e.RequestFrame(func() { order = append(order, "nested") })
		})
		e.RequestFrame(func() { order = append(order, "second") })
		order = append(order, "turn")
	})
	if diff := cmp.Diff([]string{"turn", "first", "second", "nested"}, order); diff != "" {
		t.Errorf("frame order (-want +got):\n%s", diff)
	}
}

func TestTurn_RecoversFromPanic(t *testing.T) {
	e := newEditor(t, "x")
	e.turn(func() {
		dom.RemoveChildren(e.Root())
		panic("boom")
	})
	checkInvariant(t, e)
}

func TestSanitizeRoot_WrapsOrphans(t *testing.T) {
	e := newEditor(t, "x")
	e.Root().AppendChild(dom.NewText("stray"))
	e.Root().AppendChild(dom.Element("br"))
	e.Focus()

	want := []shape{{block.Paragraph, "x"}, {block.Paragraph, "stray"}}
	if diff := cmp.Diff(want, shapes(e)); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
	checkInvariant(t, e)
}

func TestSetHTMLAndMarkdownRoundTrip(t *testing.T) {
	e := newEditor(t, "")
	e.SetHTML("<h1>T</h1><ol><li>a</li><li>b</li></ol><blockquote>q</blockquote>")
	md := e.GetMarkdown()
	want := "# T\n\n1. a\n2. b\n\n> q"
	if md != want {
		t.Fatalf("markdown = %q, want %q", md, want)
	}
	e.SetMarkdown(md)
	if got := e.GetHTML(); got != "<h1>T</h1>\n<ol><li>a</li><li>b</li></ol>\n<blockquote>q</blockquote>" {
		t.Errorf("html = %q", got)
	}
	e.Clear()
	if diff := cmp.Diff([]shape{{block.Paragraph, ""}}, shapes(e)); diff != "" {
		t.Errorf("after Clear (-want +got):\n%s", diff)
	}
}

func TestKeyBuffer(t *testing.T) {
	var b keyBuffer
	for _, k := range []string{"a", "b", "Enter", "Enter"} {
		b.push(k)
	}
	if !b.endsWith("Enter", "Enter") || b.endsWith("b", "Enter", "Enter", "Enter") {
		t.Errorf("endsWith mismatch for %q", b.String())
	}
	for i := 0; i < keyBufferSize+3; i++ {
		b.push("x")
	}
	if got := len(b.last(100)); got != keyBufferSize {
		t.Errorf("last = %d keys, want %d", got, keyBufferSize)
	}
}

// Random edit sequences must keep the root made of block wrappers only.
func TestInvariant_RandomEditSequences(t *testing.T) {
	tokens := []string{"a", "bc", " ", "# ", "## ", "- ", "* ", "1. ", "[ ] ", "> ", "```", "---", "x\ny", "**b**"}
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		e := newEditor(t, "# Title\n\nfirst para\n\n- one\n- two\n\n> quote\n\n---\n\nlast")
		for step := 0; step < 150; step++ {
			var op string
			switch r := rng.Intn(10); {
			case r < 3:
				op = "type"
				e.Type(tokens[rng.Intn(len(tokens))])
			case r < 4:
				op = "enter"
				e.Press(block.KeyEnter)
			case r < 5:
				op = "backspace"
				e.Press(block.KeyBackspace)
			case r < 6:
				op = "delete"
				e.Press(block.KeyDelete)
			case r < 9:
				op = "select"
				n := len(e.Blocks())
				sb, eb := rng.Intn(n), rng.Intn(n)
				if sb > eb {
					sb, eb = eb, sb
				}
				so := rng.Intn(len([]rune(e.BlockText(sb))) + 1)
				eo := rng.Intn(len([]rune(e.BlockText(eb))) + 1)
				if sb == eb && so > eo {
					so, eo = eo, so
				}
				e.SelectText(sb, so, eb, eo)
			default:
				op = "select all"
				e.SelectAll()
			}
			if len(e.Blocks()) == 0 {
				t.Fatalf("seed %d step %d (%s): no blocks left", seed, step, op)
			}
			for c := e.Root().FirstChild; c != nil; c = c.NextSibling {
				if !block.IsBlock(c) {
					t.Fatalf("seed %d step %d (%s): non-block child %q", seed, step, op, dom.OuterHTML(c))
				}
			}
		}
	}
}
