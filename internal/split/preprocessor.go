package split

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/matze/mdbook-split/internal/book"
	"github.com/matze/mdbook-split/internal/markdown"
)

// Name is the preprocessor's name, matching its book.toml table.
const Name = "split"

// Settings is the [preprocessor.split] table of book.toml.
type Settings struct {
	HeadingAttributes *bool `json:"heading-attributes"`
}

// Preprocessor rewrites a book so that every top-level heading starts its
// own chapter.
type Preprocessor struct {
	log  *slog.Logger
	opts markdown.Options
}

// New creates a Preprocessor. opts are the defaults used when book.toml
// does not set them.
func New(log *slog.Logger, opts markdown.Options) *Preprocessor {
	return &Preprocessor{log: log, opts: opts}
}

// Name returns "split".
func (p *Preprocessor) Name() string {
	return Name
}

// SupportsRenderer reports true for every renderer; the output is plain
// markdown.
func (p *Preprocessor) SupportsRenderer(renderer string) bool {
	return true
}

// Run walks the top level of b in order. Each chapter is replaced by the
// chapters split out of its content; separators and part titles are copied
// unchanged. The first failure aborts the run.
func (p *Preprocessor) Run(ctx context.Context, bctx book.Context, b book.Book) (book.Book, error) {
	opts, err := p.options(bctx)
	if err != nil {
		return book.Book{}, err
	}
	log := p.log.With("renderer", bctx.Renderer)

	out := book.Book{Sections: make(book.Items, 0, len(b.Sections))}
	for _, item := range b.Sections {
		if err := ctx.Err(); err != nil {
			return book.Book{}, err
		}
		switch it := item.(type) {
		case book.Chapter:
			chapters, err := p.chapter(log, it, opts)
			if err != nil {
				return book.Book{}, err
			}
			for _, ch := range chapters {
				out.Sections = append(out.Sections, ch)
			}
		default:
			out.Sections = append(out.Sections, item)
		}
	}
	log.Debug("split book", "sections_in", len(b.Sections), "sections_out", len(out.Sections))
	return out, nil
}

func (p *Preprocessor) chapter(log *slog.Logger, ch book.Chapter, opts markdown.Options) ([]book.Chapter, error) {
	if n := len(ch.SubItems); n > 0 {
		log.Warn("dropping nested chapters", "chapter", ch.Name, "sub_items", n)
	}
	chapters, err := Document(ch.Content, opts)
	if err != nil {
		return nil, fmt.Errorf("split chapter %q: %w", ch.Name, err)
	}
	log.Debug("split chapter", "chapter", ch.Name, "chapters", len(chapters))
	return chapters, nil
}

func (p *Preprocessor) options(bctx book.Context) (markdown.Options, error) {
	opts := p.opts
	var s Settings
	found, err := bctx.PreprocessorConfig(Name, &s)
	if err != nil {
		return opts, err
	}
	if found && s.HeadingAttributes != nil {
		opts.HeadingAttributes = *s.HeadingAttributes
	}
	return opts, nil
}
