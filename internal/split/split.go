// Package split cuts markdown documents into chapters at their top-level
// headings.
package split

import (
	"crypto/sha256"
	"fmt"

	"github.com/matze/mdbook-split/internal/book"
	"github.com/matze/mdbook-split/internal/markdown"
)

// IsTopLevelHeading reports whether e opens a level 1 heading. It is the
// only place the chapter boundary is decided.
func IsTopLevelHeading(e markdown.Event) bool {
	return markdown.HeadingLevel(e) == 1
}

// Runs partitions events into maximal runs that each start at a top-level
// heading, except the first, which holds whatever precedes the first one.
// Concatenating the runs gives back events; an empty input has no runs.
func Runs(events []markdown.Event) [][]markdown.Event {
	var runs [][]markdown.Event
	var current []markdown.Event
	for _, e := range events {
		if IsTopLevelHeading(e) && len(current) > 0 {
			runs = append(runs, current)
			current = nil
		}
		current = append(current, e)
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}
	return runs
}

// Title returns the text directly following the first top-level heading
// start in run. It is empty when there is no such heading or when the
// heading does not begin with plain text.
func Title(run []markdown.Event) string {
	for i := 0; i+1 < len(run); i++ {
		if !IsTopLevelHeading(run[i]) {
			continue
		}
		if t, ok := run[i+1].(markdown.Text); ok {
			return t.Text
		}
		return ""
	}
	return ""
}

// ChapterPath derives a chapter's path from its title: the lowercase hex
// SHA-256 of the title bytes, with no extension. Equal titles share a path.
func ChapterPath(title string) string {
	h := sha256.Sum256([]byte(title))
	return fmt.Sprintf("%x", h[:])
}

// BuildChapter renders run back to markdown and packages it as a chapter.
func BuildChapter(run []markdown.Event) (book.Chapter, error) {
	title := Title(run)
	content, err := markdown.Render(run)
	if err != nil {
		return book.Chapter{}, fmt.Errorf("render chapter %q: %w", title, err)
	}
	return book.Chapter{
		Name:    title,
		Content: content,
		Path:    book.String(ChapterPath(title)),
	}, nil
}

// Document splits markdown content into one chapter per run, in order.
func Document(content string, opts markdown.Options) ([]book.Chapter, error) {
	runs := Runs(markdown.Parse([]byte(content), opts))
	chapters := make([]book.Chapter, 0, len(runs))
	for _, run := range runs {
		ch, err := BuildChapter(run)
		if err != nil {
			return nil, err
		}
		chapters = append(chapters, ch)
	}
	return chapters, nil
}
