package markdown

import (
	"html"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Options controls the grammar used by Parse.
type Options struct {
	// HeadingAttributes enables `# Title {#id .class}` attribute blocks.
	HeadingAttributes bool
}

// Parse converts markdown source into an ordered event stream. The grammar
// is CommonMark extended with footnotes, smart punctuation and tables. It has
// no reject state, so malformed input still yields events.
func Parse(src []byte, opts Options) []Event {
	var parserOpts []parser.Option
	if opts.HeadingAttributes {
		parserOpts = append(parserOpts, parser.WithAttribute())
	}
	md := goldmark.New(
		goldmark.WithExtensions(extension.Footnote, extension.Typographer, extension.Table),
		goldmark.WithParserOptions(parserOpts...),
	)
	doc := md.Parser().Parse(text.NewReader(src))

	c := &converter{src: src, footnotes: map[int]string{}}
	for _, n := range c.topLevel(doc) {
		c.block(n)
	}
	return c.events
}

type converter struct {
	src       []byte
	events    []Event
	footnotes map[int]string // footnote index -> label
}

func (c *converter) emit(e Event) {
	c.events = append(c.events, e)
}

// text appends literal text, merging it into a directly preceding Text.
func (c *converter) text(s string) {
	if s == "" {
		return
	}
	if n := len(c.events); n > 0 {
		if prev, ok := c.events[n-1].(Text); ok {
			c.events[n-1] = Text{Text: prev.Text + s}
			return
		}
	}
	c.emit(Text{Text: s})
}

// topLevel returns the document's blocks in source order. goldmark moves
// footnote definitions into a list at the end of the document; they are put
// back where they were written so they stay with the chapter defining them.
func (c *converter) topLevel(doc ast.Node) []ast.Node {
	type positioned struct {
		node ast.Node
		pos  int
	}
	var blocks, notes []positioned
	last := 0
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		list, ok := n.(*east.FootnoteList)
		if !ok {
			// Blocks without source lines (thematic breaks) inherit the
			// position of the block before them.
			if pos := sourceOffset(n); pos >= 0 {
				last = pos
			}
			blocks = append(blocks, positioned{n, last})
			continue
		}
		for fn := list.FirstChild(); fn != nil; fn = fn.NextSibling() {
			if f, ok := fn.(*east.Footnote); ok {
				c.footnotes[f.Index] = string(f.Ref)
			}
			notes = append(notes, positioned{fn, sourceOffset(fn)})
		}
	}
	if len(notes) == 0 {
		out := make([]ast.Node, len(blocks))
		for i, b := range blocks {
			out[i] = b.node
		}
		return out
	}

	// Definitions without content have no position and go last.
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].pos < 0 || notes[j].pos < 0 {
			return notes[j].pos < 0 && notes[i].pos >= 0
		}
		return notes[i].pos < notes[j].pos
	})

	out := make([]ast.Node, 0, len(blocks)+len(notes))
	ni := 0
	for _, b := range blocks {
		for ni < len(notes) && notes[ni].pos >= 0 && notes[ni].pos < b.pos {
			out = append(out, notes[ni].node)
			ni++
		}
		out = append(out, b.node)
	}
	for ; ni < len(notes); ni++ {
		out = append(out, notes[ni].node)
	}
	return out
}

// sourceOffset finds the first source byte covered by n, or -1.
func sourceOffset(n ast.Node) int {
	if n.Type() == ast.TypeBlock {
		if lines := n.Lines(); lines != nil && lines.Len() > 0 {
			return lines.At(0).Start
		}
	}
	if t, ok := n.(*ast.Text); ok {
		return t.Segment.Start
	}
	for ch := n.FirstChild(); ch != nil; ch = ch.NextSibling() {
		if pos := sourceOffset(ch); pos >= 0 {
			return pos
		}
	}
	return -1
}

func (c *converter) children(n ast.Node) {
	for ch := n.FirstChild(); ch != nil; ch = ch.NextSibling() {
		if ch.Type() == ast.TypeInline {
			c.inline(ch)
		} else {
			c.block(ch)
		}
	}
}

func (c *converter) wrap(tag Tag, n ast.Node) {
	c.emit(Start{Tag: tag})
	c.children(n)
	c.emit(End{Tag: tag})
}

func (c *converter) block(n ast.Node) {
	switch node := n.(type) {
	case *ast.Paragraph:
		c.wrap(Paragraph{}, node)
	case *ast.TextBlock:
		// Tight list items carry their inlines without a paragraph.
		c.children(node)
	case *ast.Heading:
		c.wrap(c.heading(node), node)
	case *ast.ThematicBreak:
		c.emit(Rule{})
	case *ast.CodeBlock:
		tag := CodeBlock{}
		c.emit(Start{Tag: tag})
		c.emit(Text{Text: c.lines(node)})
		c.emit(End{Tag: tag})
	case *ast.FencedCodeBlock:
		tag := CodeBlock{Fenced: true}
		if node.Info != nil {
			tag.Info = string(node.Info.Segment.Value(c.src))
		}
		c.emit(Start{Tag: tag})
		c.emit(Text{Text: c.lines(node)})
		c.emit(End{Tag: tag})
	case *ast.Blockquote:
		c.wrap(BlockQuote{}, node)
	case *ast.List:
		tag := List{
			Ordered: node.IsOrdered(),
			Start:   node.Start,
			Marker:  node.Marker,
			Tight:   node.IsTight,
		}
		c.wrap(tag, node)
	case *ast.ListItem:
		c.wrap(Item{}, node)
	case *ast.HTMLBlock:
		raw := c.lines(node)
		if node.HasClosure() {
			raw += string(node.ClosureLine.Value(c.src))
		}
		c.emit(HTML{Text: raw})
	case *east.Table:
		tag := Table{Alignments: make([]Alignment, len(node.Alignments))}
		for i, a := range node.Alignments {
			tag.Alignments[i] = alignment(a)
		}
		c.wrap(tag, node)
	case *east.TableHeader:
		c.wrap(TableHead{}, node)
	case *east.TableRow:
		c.wrap(TableRow{}, node)
	case *east.TableCell:
		c.wrap(TableCell{}, node)
	case *east.Footnote:
		c.wrap(FootnoteDefinition{Label: string(node.Ref)}, node)
	case *east.FootnoteList:
		c.children(node)
	default:
		c.children(node)
	}
}

func (c *converter) inline(n ast.Node) {
	switch node := n.(type) {
	case *ast.Text:
		value := node.Segment.Value(c.src)
		if node.IsRaw() {
			c.text(string(value))
		} else {
			c.text(unescape(value))
		}
		switch {
		case node.HardLineBreak():
			c.emit(HardBreak{})
		case node.SoftLineBreak():
			c.emit(SoftBreak{})
		}
	case *ast.String:
		if node.IsCode() {
			// Typographer substitutions are HTML entities.
			c.text(html.UnescapeString(string(node.Value)))
		} else {
			c.text(string(node.Value))
		}
	case *ast.CodeSpan:
		var b strings.Builder
		for ch := node.FirstChild(); ch != nil; ch = ch.NextSibling() {
			if t, ok := ch.(*ast.Text); ok {
				b.Write(t.Segment.Value(c.src))
			}
		}
		c.emit(Code{Text: strings.ReplaceAll(b.String(), "\n", " ")})
	case *ast.Emphasis:
		if node.Level >= 2 {
			c.wrap(Strong{}, node)
		} else {
			c.wrap(Emphasis{}, node)
		}
	case *ast.Link:
		c.wrap(Link{Destination: string(node.Destination), Title: string(node.Title)}, node)
	case *ast.Image:
		c.wrap(Image{Destination: string(node.Destination), Title: string(node.Title)}, node)
	case *ast.AutoLink:
		tag := Link{Kind: LinkAutoURL, Destination: string(node.URL(c.src))}
		if node.AutoLinkType == ast.AutoLinkEmail {
			tag.Kind = LinkAutoEmail
		}
		c.emit(Start{Tag: tag})
		c.text(string(node.Label(c.src)))
		c.emit(End{Tag: tag})
	case *ast.RawHTML:
		var b strings.Builder
		for i := 0; i < node.Segments.Len(); i++ {
			seg := node.Segments.At(i)
			b.Write(seg.Value(c.src))
		}
		c.emit(InlineHTML{Text: b.String()})
	case *east.FootnoteLink:
		c.emit(FootnoteReference{Label: c.footnotes[node.Index]})
	case *east.FootnoteBacklink:
		// Rendering artifact, not source content.
	default:
		c.children(node)
	}
}

func (c *converter) heading(n *ast.Heading) Heading {
	h := Heading{Level: n.Level}
	if v, ok := n.AttributeString("id"); ok {
		if b, ok := v.([]byte); ok {
			h.ID = string(b)
		}
	}
	if v, ok := n.AttributeString("class"); ok {
		if b, ok := v.([]byte); ok {
			h.Classes = strings.Fields(string(b))
		}
	}
	return h
}

func (c *converter) lines(n ast.Node) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(c.src))
	}
	return b.String()
}

// unescape resolves backslash escapes and entity references in text.
func unescape(b []byte) string {
	b = util.UnescapePunctuations(b)
	b = util.ResolveNumericReferences(b)
	b = util.ResolveEntityNames(b)
	return string(b)
}

func alignment(a east.Alignment) Alignment {
	switch a {
	case east.AlignLeft:
		return AlignLeft
	case east.AlignCenter:
		return AlignCenter
	case east.AlignRight:
		return AlignRight
	default:
		return AlignNone
	}
}
