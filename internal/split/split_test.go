package split

import (
	"errors"
	"strings"
	"testing"

	"github.com/matze/mdbook-split/internal/markdown"
)

func TestDocument_SingleHeading(t *testing.T) {
	chapters, err := Document("# Chapter 1\n", markdown.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(chapters))
	}
	ch := chapters[0]
	if ch.Name != "Chapter 1" {
		t.Errorf("expected name %q, got %q", "Chapter 1", ch.Name)
	}
	if ch.Content != "# Chapter 1\n" {
		t.Errorf("expected content %q, got %q", "# Chapter 1\n", ch.Content)
	}
	if ch.Path == nil || *ch.Path != ChapterPath("Chapter 1") {
		t.Errorf("expected path %q, got %v", ChapterPath("Chapter 1"), ch.Path)
	}
	if ch.Number != nil || ch.SubItems != nil || ch.SourcePath != nil || ch.ParentNames != nil {
		t.Errorf("expected default metadata, got %#v", ch)
	}
}

func TestDocument_TwoHeadings(t *testing.T) {
	chapters, err := Document("# Chapter 1\n\n# Chapter 2\n", markdown.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	for i, want := range []string{"Chapter 1", "Chapter 2"} {
		if chapters[i].Name != want {
			t.Errorf("chapter %d: expected name %q, got %q", i, want, chapters[i].Name)
		}
		if chapters[i].Content != "# "+want+"\n" {
			t.Errorf("chapter %d: unexpected content %q", i, chapters[i].Content)
		}
		if *chapters[i].Path != ChapterPath(want) {
			t.Errorf("chapter %d: expected path %q, got %q", i, ChapterPath(want), *chapters[i].Path)
		}
	}
	if *chapters[0].Path == *chapters[1].Path {
		t.Error("expected distinct paths for distinct titles")
	}
}

func TestDocument_LeadingContent(t *testing.T) {
	chapters, err := Document("Intro text\n\n# Chapter 1\n", markdown.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if chapters[0].Name != "" {
		t.Errorf("expected empty title for leading content, got %q", chapters[0].Name)
	}
	if !strings.Contains(chapters[0].Content, "Intro text") {
		t.Errorf("expected leading chapter to contain %q, got %q", "Intro text", chapters[0].Content)
	}
	if *chapters[0].Path != ChapterPath("") {
		t.Errorf("expected path of empty title, got %q", *chapters[0].Path)
	}
	if chapters[1].Name != "Chapter 1" {
		t.Errorf("expected %q, got %q", "Chapter 1", chapters[1].Name)
	}
}

func TestDocument_NoTopLevelHeading(t *testing.T) {
	src := "## Section\n\nSome *text* here.\n\n### Deeper\n\n- a\n- b\n"
	chapters, err := Document(src, markdown.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(chapters))
	}
	if chapters[0].Name != "" {
		t.Errorf("expected empty title, got %q", chapters[0].Name)
	}
	if chapters[0].Content != src {
		t.Errorf("expected content %q, got %q", src, chapters[0].Content)
	}
}

func TestDocument_Empty(t *testing.T) {
	chapters, err := Document("", markdown.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chapters) != 0 {
		t.Errorf("expected no chapters, got %d", len(chapters))
	}
}

func TestDocument_EachChapterHasOneTopLevelHeading(t *testing.T) {
	src := "# A\n\ntext\n\n## A.1\n\n# B\n\n> quote\n\n# C\n"
	chapters, err := Document(src, markdown.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chapters) != 3 {
		t.Fatalf("expected 3 chapters, got %d", len(chapters))
	}
	for i, ch := range chapters {
		events := markdown.Parse([]byte(ch.Content), markdown.Options{})
		count := 0
		for _, e := range events {
			if IsTopLevelHeading(e) {
				count++
			}
		}
		if count != 1 || !IsTopLevelHeading(events[0]) {
			t.Errorf("chapter %d: expected exactly one leading top-level heading, content %q", i, ch.Content)
		}
	}
}

func TestDocument_FootnoteStaysWithChapter(t *testing.T) {
	src := "# A\n\nSee[^n].\n\n[^n]: The note.\n\n# B\n\nPlain.\n"
	chapters, err := Document(src, markdown.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if !strings.Contains(chapters[0].Content, "[^n]: The note.") {
		t.Errorf("expected footnote definition in first chapter, got %q", chapters[0].Content)
	}
	if strings.Contains(chapters[1].Content, "[^n]") {
		t.Errorf("expected no footnote in second chapter, got %q", chapters[1].Content)
	}
}

func TestRuns(t *testing.T) {
	h1 := markdown.Start{Tag: markdown.Heading{Level: 1}}
	h1End := markdown.End{Tag: markdown.Heading{Level: 1}}
	h2 := markdown.Start{Tag: markdown.Heading{Level: 2}}
	h2End := markdown.End{Tag: markdown.Heading{Level: 2}}
	text := markdown.Text{Text: "x"}

	tests := []struct {
		name    string
		events  []markdown.Event
		lengths []int
	}{
		{"empty", nil, nil},
		{"no heading", []markdown.Event{text, text}, []int{2}},
		{"opens with heading", []markdown.Event{h1, text, h1End, h1, text, h1End}, []int{3, 3}},
		{"leading content", []markdown.Event{text, h1, text, h1End}, []int{1, 3}},
		{"level 2 never splits", []markdown.Event{h1, text, h1End, h2, text, h2End}, []int{6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := Runs(tt.events)
			if len(runs) != len(tt.lengths) {
				t.Fatalf("expected %d runs, got %d", len(tt.lengths), len(runs))
			}
			total := 0
			for i, run := range runs {
				if len(run) != tt.lengths[i] {
					t.Errorf("run %d: expected %d events, got %d", i, tt.lengths[i], len(run))
				}
				total += len(run)
			}
			if total != len(tt.events) {
				t.Errorf("runs cover %d events, want %d", total, len(tt.events))
			}
		})
	}
}

func TestTitle(t *testing.T) {
	h1 := markdown.Start{Tag: markdown.Heading{Level: 1}}
	h1End := markdown.End{Tag: markdown.Heading{Level: 1}}

	tests := []struct {
		name string
		run  []markdown.Event
		want string
	}{
		{"plain text", []markdown.Event{h1, markdown.Text{Text: "Foo"}, h1End}, "Foo"},
		{"inline code", []markdown.Event{h1, markdown.Code{Text: "Foo"}, h1End}, ""},
		{"emphasis", []markdown.Event{
			h1, markdown.Start{Tag: markdown.Emphasis{}}, markdown.Text{Text: "Foo"},
			markdown.End{Tag: markdown.Emphasis{}}, h1End,
		}, ""},
		{"no heading", []markdown.Event{markdown.Start{Tag: markdown.Paragraph{}}, markdown.Text{Text: "Foo"}}, ""},
		{"heading last", []markdown.Event{markdown.Text{Text: "Foo"}, h1}, ""},
		{"level 2", []markdown.Event{markdown.Start{Tag: markdown.Heading{Level: 2}}, markdown.Text{Text: "Foo"}}, ""},
		{"first heading wins", []markdown.Event{
			h1, markdown.Text{Text: "One"}, h1End, h1, markdown.Text{Text: "Two"}, h1End,
		}, "One"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Title(tt.run); got != tt.want {
				t.Errorf("Title = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTitle_FromParsedMarkdown(t *testing.T) {
	tests := []struct {
		src, want string
	}{
		{"# `code` title\n", ""},
		{"# *Emphasized*\n", ""},
		{"# Wait... what\n", "Wait… what"},
		{"# A -- B\n", "A – B"},
	}
	for _, tt := range tests {
		chapters, err := Document(tt.src, markdown.Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if chapters[0].Name != tt.want {
			t.Errorf("Document(%q) title = %q, want %q", tt.src, chapters[0].Name, tt.want)
		}
	}
}

func TestChapterPath_Consistency(t *testing.T) {
	h1 := ChapterPath("hello world")
	h2 := ChapterPath("hello world")
	if h1 != h2 {
		t.Errorf("expected identical paths, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected path %q, got %q", want, h1)
	}
}

func TestChapterPath_EmptyTitle(t *testing.T) {
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := ChapterPath(""); got != want {
		t.Errorf("expected path %q, got %q", want, got)
	}
}

func TestChapterPath_DifferentTitles(t *testing.T) {
	if ChapterPath("aaa") == ChapterPath("bbb") {
		t.Error("expected different paths for different titles")
	}
}

func TestBuildChapter_RenderError(t *testing.T) {
	run := []markdown.Event{
		markdown.Start{Tag: markdown.Heading{Level: 1}},
		markdown.Text{Text: "Broken"},
		markdown.End{Tag: markdown.Paragraph{}},
	}
	_, err := BuildChapter(run)
	if !errors.Is(err, markdown.ErrMalformedEvents) {
		t.Fatalf("expected ErrMalformedEvents, got %v", err)
	}
	if !strings.Contains(err.Error(), `"Broken"`) {
		t.Errorf("expected error to name the chapter, got %v", err)
	}
}

func TestDocument_HeadingInsideBlockQuote(t *testing.T) {
	chapters, err := Document("> intro\n>\n> # Title\n> more\n", markdown.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if chapters[0].Content != "> intro\n" {
		t.Errorf("expected quote closed in first chapter, got %q", chapters[0].Content)
	}
	if chapters[1].Name != "Title" {
		t.Errorf("expected title %q, got %q", "Title", chapters[1].Name)
	}
	if chapters[1].Content != "# Title\n\nmore\n" {
		t.Errorf("unexpected second chapter %q", chapters[1].Content)
	}
}
