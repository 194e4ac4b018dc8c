package parser

import (
	"regexp"
	"strings"

	"github.com/starford/berkana/internal/block"
)

var (
	fenceRe   = regexp.MustCompile("^(`{3,}|~{3,})\\s*([^`\\s]*)\\s*$")
	hrRe      = regexp.MustCompile(`^(?:(?:-\s*){3,}|(?:\*\s*){3,}|(?:_\s*){3,})$`)
	headingRe = regexp.MustCompile(`^(#{1,6})(?:\s+(.*?))?(?:\s+#+)?\s*$`)
	taskRe    = regexp.MustCompile(`^(?:[-*+]\s+)?\[([ xX]?)\](?:\s(.*))?$`)
	bulletRe  = regexp.MustCompile(`^[-*+]\s(.*)$`)
	orderedRe = regexp.MustCompile(`^\d{1,9}[.)]\s(.*)$`)
	quoteRe   = regexp.MustCompile(`^>\s?(.*)$`)
	imageRe   = regexp.MustCompile(`^!\[((?:\\.|[^\]\\])*)\]\(([^)\s]*)(?:\s+"[^"]*")?\)$`)
	tableSep  = regexp.MustCompile(`^\|?\s*:?-+:?\s*(?:\|\s*:?-+:?\s*)*\|?$`)
)

// mdState accumulates the block being built while lines are consumed.
type mdState struct {
	p   *Parser
	out []*block.Block

	para     []string
	paraOpen bool // last paragraph line ended with a hard break

	list  *block.Block
	items []string

	quote []string

	fence     string
	fenceLang string
	code      []string
	inFence   bool
}

// ParseMarkdown splits text into blocks. Fenced code suppresses every other
// rule until the matching close fence; consecutive list items of one kind
// and consecutive quote lines coalesce; anything unrecognized becomes a
// paragraph. Empty input yields an empty slice.
func (p *Parser) ParseMarkdown(text string) []*block.Block {
	st := &mdState{p: p, out: make([]*block.Block, 0)}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i := 0; i < len(lines); i++ {
		raw := strings.TrimRight(lines[i], "\r")
		if st.inFence {
			if st.closes(raw) {
				st.flushCode()
			} else {
				st.code = append(st.code, raw)
			}
			continue
		}
		line := strings.TrimLeft(raw, " \t")
		if strings.TrimSpace(line) == "" {
			st.flush()
			continue
		}
		if n := st.table(lines, i); n > 0 {
			i += n - 1
			continue
		}
		st.line(line)
	}
	if st.inFence {
		st.flushCode()
	}
	st.flush()
	return st.out
}

func (st *mdState) line(line string) {
	trimmed := strings.TrimSpace(line)
	if m := fenceRe.FindStringSubmatch(trimmed); m != nil {
		st.flush()
		st.inFence = true
		st.fence = m[1]
		st.fenceLang = m[2]
		st.code = nil
		return
	}
	if hrRe.MatchString(trimmed) {
		st.flush()
		st.emit(&block.Block{Type: block.Delimiter})
		return
	}
	if m := headingRe.FindStringSubmatch(trimmed); m != nil {
		st.flush()
		level := len(m[1])
		st.emit(&block.Block{Type: block.HeadingType(level), Level: level, Content: m[2]})
		return
	}
	if m := taskRe.FindStringSubmatch(line); m != nil {
		st.item(block.TaskList, strings.TrimSpace(m[2]), m[1] == "x" || m[1] == "X")
		return
	}
	if m := bulletRe.FindStringSubmatch(line); m != nil {
		st.item(block.UnorderedList, strings.TrimSpace(m[1]), false)
		return
	}
	if m := orderedRe.FindStringSubmatch(line); m != nil {
		st.item(block.OrderedList, strings.TrimSpace(m[1]), false)
		return
	}
	if m := quoteRe.FindStringSubmatch(line); m != nil {
		if st.quote == nil {
			st.flush()
		}
		st.quote = append(st.quote, strings.TrimRight(m[1], " "))
		return
	}
	if m := imageRe.FindStringSubmatch(trimmed); m != nil {
		st.flush()
		alt := strings.ReplaceAll(m[1], `\]`, "]")
		st.emit(&block.Block{Type: block.Image, Src: m[2], Alt: alt, Content: alt})
		return
	}
	st.paragraph(line)
}

// paragraph starts a new paragraph unless the previous line ended with a
// hard break, in which case the line continues it.
func (st *mdState) paragraph(line string) {
	if !st.paraOpen {
		st.flush()
	}
	text, hard := hardBreak(line)
	st.para = append(st.para, block.UnescapeLeading(text))
	st.paraOpen = hard
}

func hardBreak(line string) (string, bool) {
	if strings.HasSuffix(line, "  ") {
		return strings.TrimRight(line, " "), true
	}
	trimmed := strings.TrimRight(line, " \t")
	n := len(trimmed) - len(strings.TrimRight(trimmed, `\`))
	if n%2 == 1 {
		return trimmed[:len(trimmed)-1], true
	}
	return trimmed, false
}

func (st *mdState) item(t block.Type, text string, checked bool) {
	if st.list == nil || st.list.Type != t {
		st.flush()
		st.list = &block.Block{Type: t}
	}
	st.items = append(st.items, text)
	if t == block.TaskList {
		st.list.Checked = append(st.list.Checked, checked)
	}
}

// closes reports whether raw closes the open fence: same character, at
// least as long, nothing after it.
func (st *mdState) closes(raw string) bool {
	t := strings.TrimSpace(raw)
	if len(t) < len(st.fence) || t[0] != st.fence[0] {
		return false
	}
	return strings.Trim(t, st.fence[:1]) == ""
}

func (st *mdState) flushCode() {
	st.emit(&block.Block{
		Type:     block.Code,
		Content:  strings.Join(st.code, "\n"),
		Language: st.fenceLang,
	})
	st.inFence = false
	st.code = nil
	st.fence = ""
	st.fenceLang = ""
}

// table consumes a header line, a separator line and the body rows that
// follow. It returns the number of lines consumed, or 0.
func (st *mdState) table(lines []string, i int) int {
	header := strings.TrimSpace(lines[i])
	if !strings.Contains(header, "|") || i+1 >= len(lines) {
		return 0
	}
	sep := strings.TrimSpace(lines[i+1])
	if !strings.Contains(sep, "|") || !tableSep.MatchString(sep) {
		return 0
	}
	st.flush()
	b := &block.Block{Type: block.Table, Headers: cells(header)}
	n := 2
	for ; i+n < len(lines); n++ {
		row := strings.TrimSpace(lines[i+n])
		if row == "" || !strings.Contains(row, "|") {
			break
		}
		b.Rows = append(b.Rows, cells(row))
	}
	b.Content = block.GridContent(b.Headers, b.Rows)
	st.emit(b)
	return n
}

// cells splits a pipe row on unescaped pipes.
func cells(row string) []string {
	row = strings.TrimPrefix(row, "|")
	if strings.HasSuffix(row, "|") && !strings.HasSuffix(row, `\|`) {
		row = row[:len(row)-1]
	}
	var out []string
	var cur strings.Builder
	for i := 0; i < len(row); i++ {
		switch {
		case row[i] == '\\' && i+1 < len(row) && row[i+1] == '|':
			cur.WriteByte('|')
			i++
		case row[i] == '|':
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(row[i])
		}
	}
	return append(out, strings.TrimSpace(cur.String()))
}

func (st *mdState) flush() {
	if st.para != nil {
		st.emit(&block.Block{Type: block.Paragraph, Content: strings.Join(st.para, "\n")})
		st.para = nil
		st.paraOpen = false
	}
	if st.list != nil {
		st.list.Content = strings.Join(st.items, "\n")
		st.emit(st.list)
		st.list = nil
		st.items = nil
	}
	if st.quote != nil {
		st.emit(&block.Block{Type: block.Quote, Content: strings.Join(st.quote, "\n")})
		st.quote = nil
	}
}

func (st *mdState) emit(b *block.Block) {
	b.HTML = st.p.reg.Kind(b.Type).HTML(b)
	st.out = append(st.out, b)
}
