package markdown

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrMalformedEvents is returned by Render when the event sequence cannot
// describe a markdown document.
var ErrMalformedEvents = errors.New("malformed event sequence")

// Render writes events back out as CommonMark text. The output is a faithful
// re-encoding of the structure, not a copy of the original source.
//
// End events with no open Start are skipped and containers left open are
// closed at the end, so a slice cut out of a longer stream still renders.
func Render(events []Event) (string, error) {
	r := &renderer{lineStart: true, contentStart: true}
	for i, e := range events {
		r.next = nil
		if i+1 < len(events) {
			r.next = events[i+1]
		}
		if err := r.event(e); err != nil {
			return "", fmt.Errorf("event %d: %w", i, err)
		}
	}
	for len(r.open) > 0 {
		if err := r.end(r.open[len(r.open)-1]); err != nil {
			return "", err
		}
	}
	out := strings.TrimRight(r.out.String(), "\n")
	if out == "" {
		return "", nil
	}
	return out + "\n", nil
}

type listState struct {
	ordered bool
	marker  byte
	next    int
	tight   bool
}

type tableState struct {
	alignments []Alignment
	head       []string
	rows       [][]string
	row        []string
}

type renderer struct {
	out  strings.Builder
	cell *strings.Builder // set while inside a table cell

	open     []Tag
	prefixes []string
	lists    []listState
	table    *tableState
	code     *strings.Builder // set while inside a code block
	codeTag  CodeBlock
	autolink int
	next     Event // the event after the current one, nil at the end

	lineStart    bool // nothing, not even the prefix, written on this line
	contentStart bool // at the start of a line's content, block markers are live
	fresh        bool // a container was just opened
	started      bool // some content has been written
	closed       bool // a block just ended and inline content needs a new line
}

func (r *renderer) event(e Event) error {
	switch ev := e.(type) {
	case Start:
		return r.start(ev.Tag)
	case End:
		if len(r.open) == 0 {
			return nil
		}
		top := r.open[len(r.open)-1]
		if top.Name() != ev.Tag.Name() {
			return fmt.Errorf("%w: end of %s while %s is open", ErrMalformedEvents, ev.Tag.Name(), top.Name())
		}
		return r.end(top)
	case Text:
		switch {
		case r.code != nil:
			r.code.WriteString(ev.Text)
		case r.autolink > 0:
		default:
			r.inline()
			r.write(r.text(ev.Text))
		}
	case Code:
		r.inline()
		if r.cell != nil {
			r.write(codeSpan(strings.ReplaceAll(ev.Text, "|", `\|`)))
		} else {
			r.write(codeSpan(ev.Text))
		}
	case HTML:
		r.block(r.tight())
		r.writeLines(strings.TrimSuffix(ev.Text, "\n"))
		r.closed = true
	case InlineHTML:
		r.inline()
		r.writeLines(ev.Text)
	case FootnoteReference:
		r.inline()
		r.write("[^" + ev.Label + "]")
	case SoftBreak:
		if r.cell != nil {
			r.write(" ")
		} else {
			r.newline()
		}
	case HardBreak:
		if r.cell != nil {
			r.write(" ")
		} else {
			r.write("\\")
			r.newline()
		}
	case Rule:
		r.block(r.tight())
		r.write("***")
		r.closed = true
	case TaskListMarker:
		r.inline()
		if ev.Checked {
			r.write("[x] ")
		} else {
			r.write("[ ] ")
		}
	default:
		return fmt.Errorf("%w: unknown event %T", ErrMalformedEvents, e)
	}
	return nil
}

func (r *renderer) start(tag Tag) error {
	switch t := tag.(type) {
	case Paragraph:
		r.block(r.tight())
	case Heading:
		r.block(r.tight())
		level := min(max(t.Level, 1), 6)
		r.write(strings.Repeat("#", level) + " ")
		r.contentStart = false
	case BlockQuote:
		r.block(r.tight())
		r.prefixes = append(r.prefixes, "> ")
		r.fresh = true
	case CodeBlock:
		r.block(r.tight())
		r.code = &strings.Builder{}
		r.codeTag = t
	case List:
		r.block(r.tight())
		next := t.Start
		if t.Ordered && next < 0 {
			next = 1
		}
		r.lists = append(r.lists, listState{ordered: t.Ordered, marker: t.Marker, next: next, tight: t.Tight})
		r.fresh = true
	case Item:
		if len(r.open) == 0 || r.open[len(r.open)-1].Name() != (List{}).Name() {
			// An item whose list began in an earlier slice.
			if err := r.start(List{Marker: '-', Tight: true}); err != nil {
				return err
			}
		}
		l := &r.lists[len(r.lists)-1]
		r.block(l.tight)
		marker := listMarker(l)
		if l.ordered {
			l.next++
		}
		r.write(marker)
		r.contentStart = true
		r.prefixes = append(r.prefixes, strings.Repeat(" ", len(marker)))
		r.fresh = true
	case FootnoteDefinition:
		r.block(false)
		r.write("[^" + t.Label + "]: ")
		r.contentStart = true
		r.prefixes = append(r.prefixes, "    ")
		r.fresh = true
	case Table:
		r.block(r.tight())
		r.table = &tableState{alignments: t.Alignments}
	case TableHead, TableRow:
		if r.table == nil || len(r.open) == 0 || r.open[len(r.open)-1].Name() != (Table{}).Name() {
			return fmt.Errorf("%w: %s outside a table", ErrMalformedEvents, tag.Name())
		}
		r.table.row = nil
	case TableCell:
		if len(r.open) == 0 {
			return fmt.Errorf("%w: table cell outside a row", ErrMalformedEvents)
		}
		if parent := r.open[len(r.open)-1].Name(); parent != (TableHead{}).Name() && parent != (TableRow{}).Name() {
			return fmt.Errorf("%w: table cell inside %s", ErrMalformedEvents, parent)
		}
		r.cell = &strings.Builder{}
	case Emphasis:
		r.inline()
		r.write("*")
	case Strong:
		r.inline()
		r.write("**")
	case Link:
		r.inline()
		switch t.Kind {
		case LinkAutoURL, LinkAutoEmail:
			r.write("<" + t.Destination + ">")
			r.autolink++
		default:
			r.write("[")
		}
	case Image:
		r.inline()
		r.write("![")
	default:
		return fmt.Errorf("%w: unknown tag %T", ErrMalformedEvents, tag)
	}
	r.open = append(r.open, tag)
	return nil
}

func (r *renderer) end(tag Tag) error {
	r.open = r.open[:len(r.open)-1]
	switch t := tag.(type) {
	case Paragraph:
		r.closed = true
	case Heading:
		if attrs := headingAttributes(t); attrs != "" {
			r.write(" " + attrs)
		}
		r.closed = true
	case BlockQuote, Item, FootnoteDefinition:
		r.prefixes = r.prefixes[:len(r.prefixes)-1]
		r.fresh = false
		r.closed = true
	case CodeBlock:
		content := r.code.String()
		r.code = nil
		r.codeBlock(r.codeTag, content)
		r.closed = true
	case List:
		r.lists = r.lists[:len(r.lists)-1]
		r.fresh = false
		r.closed = true
	case TableCell:
		if r.table != nil {
			r.table.row = append(r.table.row, strings.TrimSpace(r.cell.String()))
		}
		r.cell = nil
	case TableHead:
		r.table.head = r.table.row
		r.table.row = nil
	case TableRow:
		r.table.rows = append(r.table.rows, r.table.row)
		r.table.row = nil
	case Table:
		r.renderTable(r.table)
		r.table = nil
		r.closed = true
	case Emphasis:
		r.write("*")
	case Strong:
		r.write("**")
	case Link:
		if t.Kind != LinkInline {
			r.autolink--
			return nil
		}
		r.write("](" + linkTarget(t.Destination, t.Title) + ")")
	case Image:
		r.write("](" + linkTarget(t.Destination, t.Title) + ")")
	}
	return nil
}

// tight reports whether blocks at the current position sit in a tight list
// item and so are separated by a line break instead of a blank line.
func (r *renderer) tight() bool {
	for i := len(r.open) - 1; i >= 0; i-- {
		switch r.open[i].(type) {
		case Item:
			return len(r.lists) > 0 && r.lists[len(r.lists)-1].tight
		case BlockQuote, FootnoteDefinition:
			return false
		}
	}
	return false
}

// block separates a new block from whatever precedes it.
func (r *renderer) block(tight bool) {
	r.closed = false
	if r.fresh {
		r.fresh = false
		return
	}
	if !r.started {
		return
	}
	if !r.lineStart {
		r.newline()
	}
	if !tight {
		r.newline()
	}
}

// inline starts a new line for inline content that follows a closed block.
// Tight list items hold their text without a surrounding paragraph.
func (r *renderer) inline() {
	if r.closed {
		r.block(r.tight())
	}
}

// text escapes a run of text for its position in the output.
func (r *renderer) text(s string) string {
	out := escapeText(s, r.contentStart, r.cell != nil)
	switch next := r.next.(type) {
	case Start:
		if l, ok := next.Tag.(Link); ok && l.Kind == LinkInline && strings.HasSuffix(out, "!") {
			// "![" opens an image.
			out = out[:len(out)-1] + `\!`
		}
	case FootnoteReference:
		if strings.HasSuffix(out, "!") {
			out = out[:len(out)-1] + `\!`
		}
	case End:
		if _, ok := next.Tag.(Heading); ok {
			out = escapeClosingSequence(out)
		}
	}
	return out
}

func (r *renderer) write(s string) {
	if s == "" {
		return
	}
	if r.cell != nil {
		r.cell.WriteString(s)
		return
	}
	if r.lineStart {
		r.out.WriteString(strings.Join(r.prefixes, ""))
		r.lineStart = false
	}
	r.out.WriteString(s)
	r.contentStart = false
	r.started = true
	r.fresh = false
}

func (r *renderer) newline() {
	if r.lineStart {
		r.out.WriteString(strings.TrimRight(strings.Join(r.prefixes, ""), " "))
	}
	r.out.WriteByte('\n')
	r.lineStart = true
	r.contentStart = true
}

// writeLines writes raw text that may span several lines, repeating the
// container prefixes on each of them.
func (r *renderer) writeLines(s string) {
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			r.newline()
		}
		r.write(line)
	}
}

func (r *renderer) codeBlock(tag CodeBlock, content string) {
	fenceChar := "`"
	if strings.Contains(tag.Info, "`") {
		fenceChar = "~"
	}
	fence := strings.Repeat(fenceChar, max(3, longestRun(content, fenceChar[0])+1))
	r.write(fence + tag.Info)
	r.newline()
	content = strings.TrimSuffix(content, "\n")
	if content != "" {
		r.writeLines(content)
		r.newline()
	}
	r.write(fence)
}

func (r *renderer) renderTable(t *tableState) {
	cols := len(t.alignments)
	for _, row := range append([][]string{t.head}, t.rows...) {
		cols = max(cols, len(row))
	}
	widths := make([]int, cols)
	for i := range widths {
		widths[i] = 3
	}
	for _, row := range append([][]string{t.head}, t.rows...) {
		for i, cell := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}

	line := func(cells []string) string {
		var b strings.Builder
		b.WriteString("|")
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(" " + cell + strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)) + " |")
		}
		return b.String()
	}

	delim := make([]string, cols)
	for i := range delim {
		align := AlignNone
		if i < len(t.alignments) {
			align = t.alignments[i]
		}
		w := widths[i]
		switch align {
		case AlignLeft:
			delim[i] = ":" + strings.Repeat("-", w-1)
		case AlignRight:
			delim[i] = strings.Repeat("-", w-1) + ":"
		case AlignCenter:
			delim[i] = ":" + strings.Repeat("-", w-2) + ":"
		default:
			delim[i] = strings.Repeat("-", w)
		}
	}

	r.write(line(t.head))
	r.newline()
	r.write(line(delim))
	for _, row := range t.rows {
		r.newline()
		r.write(line(row))
	}
}

func listMarker(l *listState) string {
	if !l.ordered {
		m := l.marker
		if m != '*' && m != '+' {
			m = '-'
		}
		return string(m) + " "
	}
	delim := l.marker
	if delim != ')' {
		delim = '.'
	}
	return strconv.Itoa(l.next) + string(delim) + " "
}

func headingAttributes(h Heading) string {
	var parts []string
	if h.ID != "" {
		parts = append(parts, "#"+h.ID)
	}
	for _, c := range h.Classes {
		parts = append(parts, "."+c)
	}
	if len(parts) == 0 {
		return ""
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func linkTarget(dest, title string) string {
	if dest == "" || strings.ContainsAny(dest, " \t<>") || !balancedParens(dest) {
		dest = "<" + strings.NewReplacer("<", `\<`, ">", `\>`).Replace(dest) + ">"
	}
	if title == "" {
		return dest
	}
	var b strings.Builder
	b.WriteString(dest + ` "`)
	for i := 0; i < len(title); i++ {
		if title[i] == '"' && (i == 0 || title[i-1] != '\\') {
			b.WriteByte('\\')
		}
		b.WriteByte(title[i])
	}
	b.WriteByte('"')
	return b.String()
}

func balancedParens(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

func codeSpan(s string) string {
	fence := strings.Repeat("`", longestRun(s, '`')+1)
	pad := strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") ||
		(len(s) > 1 && s[0] == ' ' && s[len(s)-1] == ' ' && strings.TrimSpace(s) != "")
	if pad {
		return fence + " " + s + " " + fence
	}
	return fence + s + fence
}

func longestRun(s string, c byte) int {
	longest, run := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return longest
}
