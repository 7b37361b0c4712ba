// Package markdown converts markdown text into a flat stream of structural
// events and renders such a stream back into markdown.
package markdown

// Event is one structural unit of a parsed markdown document.
// The unexported marker method keeps the set of variants closed.
type Event interface {
	event()
}

// Start opens a container or inline span described by Tag.
type Start struct {
	Tag Tag
}

// End closes the container or span opened by the matching Start.
type End struct {
	Tag Tag
}

// Text is a run of literal text. Escapes and entities are already resolved.
type Text struct {
	Text string
}

// Code is an inline code span.
type Code struct {
	Text string
}

// HTML is a raw HTML block, including its trailing newline.
type HTML struct {
	Text string
}

// InlineHTML is raw HTML inside a paragraph.
type InlineHTML struct {
	Text string
}

// FootnoteReference is a `[^label]` reference.
type FootnoteReference struct {
	Label string
}

// SoftBreak is a line ending inside a paragraph.
type SoftBreak struct{}

// HardBreak is a forced line break inside a paragraph.
type HardBreak struct{}

// Rule is a thematic break.
type Rule struct{}

// TaskListMarker is the checkbox at the start of a task list item. Parse
// does not enable task lists, so only hand-built streams carry it.
type TaskListMarker struct {
	Checked bool
}

func (Start) event()             {}
func (End) event()               {}
func (Text) event()              {}
func (Code) event()              {}
func (HTML) event()              {}
func (InlineHTML) event()        {}
func (FootnoteReference) event() {}
func (SoftBreak) event()         {}
func (HardBreak) event()         {}
func (Rule) event()              {}
func (TaskListMarker) event()    {}

var (
	_ Event = Start{}
	_ Event = End{}
	_ Event = Text{}
	_ Event = Code{}
	_ Event = HTML{}
	_ Event = InlineHTML{}
	_ Event = FootnoteReference{}
	_ Event = SoftBreak{}
	_ Event = HardBreak{}
	_ Event = Rule{}
	_ Event = TaskListMarker{}
)

// Tag describes what a Start/End pair encloses.
type Tag interface {
	tag()
	// Name is a short identifier used in error messages.
	Name() string
}

// Paragraph encloses a paragraph.
type Paragraph struct{}

// Heading encloses a heading of Level 1-6.
type Heading struct {
	Level   int
	ID      string
	Classes []string
}

// BlockQuote encloses a block quote.
type BlockQuote struct{}

// CodeBlock encloses a code block. Its content is a single Text event.
type CodeBlock struct {
	Fenced bool
	Info   string
}

// List encloses a bullet or ordered list.
type List struct {
	Ordered bool
	Start   int  // first number of an ordered list
	Marker  byte // '-', '*', '+', '.' or ')'
	Tight   bool
}

// Item encloses one list item.
type Item struct{}

// FootnoteDefinition encloses the body of a `[^label]: ` definition.
type FootnoteDefinition struct {
	Label string
}

// Alignment is the column alignment of a table.
type Alignment int

const (
	AlignNone Alignment = iota
	AlignLeft
	AlignCenter
	AlignRight
)

// Table encloses a table.
type Table struct {
	Alignments []Alignment
}

// TableHead encloses the header row's cells.
type TableHead struct{}

// TableRow encloses one body row.
type TableRow struct{}

// TableCell encloses one cell.
type TableCell struct{}

// Emphasis encloses `*emphasis*`.
type Emphasis struct{}

// Strong encloses `**strong emphasis**`.
type Strong struct{}

// LinkKind distinguishes inline links from autolinks.
type LinkKind int

const (
	LinkInline LinkKind = iota
	LinkAutoURL
	LinkAutoEmail
)

// Link encloses the text of a link.
type Link struct {
	Kind        LinkKind
	Destination string
	Title       string
}

// Image encloses the alt text of an image.
type Image struct {
	Destination string
	Title       string
}

func (Paragraph) tag()          {}
func (Heading) tag()            {}
func (BlockQuote) tag()         {}
func (CodeBlock) tag()          {}
func (List) tag()               {}
func (Item) tag()               {}
func (FootnoteDefinition) tag() {}
func (Table) tag()              {}
func (TableHead) tag()          {}
func (TableRow) tag()           {}
func (TableCell) tag()          {}
func (Emphasis) tag()           {}
func (Strong) tag()             {}
func (Link) tag()               {}
func (Image) tag()              {}

func (Paragraph) Name() string          { return "paragraph" }
func (Heading) Name() string            { return "heading" }
func (BlockQuote) Name() string         { return "blockquote" }
func (CodeBlock) Name() string          { return "codeblock" }
func (List) Name() string               { return "list" }
func (Item) Name() string               { return "item" }
func (FootnoteDefinition) Name() string { return "footnote" }
func (Table) Name() string              { return "table" }
func (TableHead) Name() string          { return "tablehead" }
func (TableRow) Name() string           { return "tablerow" }
func (TableCell) Name() string          { return "tablecell" }
func (Emphasis) Name() string           { return "emphasis" }
func (Strong) Name() string             { return "strong" }
func (Link) Name() string               { return "link" }
func (Image) Name() string              { return "image" }

var (
	_ Tag = Paragraph{}
	_ Tag = Heading{}
	_ Tag = BlockQuote{}
	_ Tag = CodeBlock{}
	_ Tag = List{}
	_ Tag = Item{}
	_ Tag = FootnoteDefinition{}
	_ Tag = Table{}
	_ Tag = TableHead{}
	_ Tag = TableRow{}
	_ Tag = TableCell{}
	_ Tag = Emphasis{}
	_ Tag = Strong{}
	_ Tag = Link{}
	_ Tag = Image{}
)

// HeadingLevel reports the level of e when it opens a heading, or 0.
func HeadingLevel(e Event) int {
	s, ok := e.(Start)
	if !ok {
		return 0
	}
	h, ok := s.Tag.(Heading)
	if !ok {
		return 0
	}
	return h.Level
}
