package book

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

const nopInput = `[
	{
		"root": "/path/to/book",
		"config": {
			"book": {
				"authors": ["AUTHOR"],
				"language": "en",
				"multilingual": false,
				"src": "src",
				"title": "TITLE"
			},
			"preprocessor": {
				"nop": {},
				"split": {"heading-attributes": true}
			}
		},
		"renderer": "html",
		"mdbook_version": "0.4.21"
	},
	{
		"sections": [
			{
				"Chapter": {
					"name": "Chapter 1",
					"content": "# Chapter 1\n",
					"number": [1],
					"sub_items": [],
					"path": "chapter_1.md",
					"source_path": "chapter_1.md",
					"parent_names": []
				}
			},
			"Separator",
			{"PartTitle": "Appendix"}
		],
		"__non_exhaustive": null
	}
]`

func TestParseInput(t *testing.T) {
	ctx, b, err := ParseInput(strings.NewReader(nopInput))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ctx.Root != "/path/to/book" {
		t.Errorf("expected root %q, got %q", "/path/to/book", ctx.Root)
	}
	if ctx.Renderer != "html" {
		t.Errorf("expected renderer html, got %q", ctx.Renderer)
	}
	if ctx.MdbookVersion != "0.4.21" {
		t.Errorf("expected version 0.4.21, got %q", ctx.MdbookVersion)
	}

	if len(b.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(b.Sections))
	}
	ch, ok := b.Sections[0].(Chapter)
	if !ok {
		t.Fatalf("expected Chapter, got %T", b.Sections[0])
	}
	want := Chapter{
		Name:        "Chapter 1",
		Content:     "# Chapter 1\n",
		Number:      []int{1},
		SubItems:    Items{},
		Path:        String("chapter_1.md"),
		SourcePath:  String("chapter_1.md"),
		ParentNames: []string{},
	}
	if !reflect.DeepEqual(ch, want) {
		t.Errorf("chapter = %#v, want %#v", ch, want)
	}
	if _, ok := b.Sections[1].(Separator); !ok {
		t.Errorf("expected Separator, got %T", b.Sections[1])
	}
	if pt, ok := b.Sections[2].(PartTitle); !ok || pt.Title != "Appendix" {
		t.Errorf("expected PartTitle Appendix, got %#v", b.Sections[2])
	}
}

func TestParseInput_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `hello`},
		{"not an array", `{"sections": []}`},
		{"one element", `[{}]`},
		{"three elements", `[{}, {"sections": []}, {}]`},
		{"trailing data", `[{}, {"sections": []}] []`},
		{"unknown variant", `[{}, {"sections": [{"Draft": {}}]}]`},
		{"unknown string variant", `[{}, {"sections": ["Spacer"]}]`},
		{"chapter without name", `[{}, {"sections": [{"Chapter": {"content": ""}}]}]`},
		{"chapter without content", `[{}, {"sections": [{"Chapter": {"name": "x"}}]}]`},
		{"two variants", `[{}, {"sections": [{"Chapter": {}, "PartTitle": "x"}]}]`},
		{"bad part title", `[{}, {"sections": [{"PartTitle": 3}]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseInput(strings.NewReader(tt.input))
			if !errors.Is(err, ErrProtocol) {
				t.Errorf("expected ErrProtocol, got %v", err)
			}
		})
	}
}

func TestBookMarshal(t *testing.T) {
	b := Book{Sections: Items{
		Chapter{Name: "Intro", Content: "# Intro\n", Path: String("abc")},
		Separator{},
		PartTitle{Title: "Part"},
	}}
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"sections":[` +
		`{"Chapter":{"name":"Intro","content":"# Intro\n","number":null,"sub_items":[],"path":"abc","source_path":null,"parent_names":[]}},` +
		`"Separator",` +
		`{"PartTitle":"Part"}` +
		`],"__non_exhaustive":null}`
	if string(data) != want {
		t.Errorf("Marshal =\n%s\nwant\n%s", data, want)
	}
}

func TestBookMarshal_OnlyValueItems(t *testing.T) {
	for _, item := range []BookItem{&Chapter{Name: "Intro"}, &Separator{}, &PartTitle{Title: "Part"}} {
		_, err := json.Marshal(Book{Sections: Items{item}})
		if err == nil || !strings.Contains(err.Error(), "unknown book item") {
			t.Errorf("Marshal(%T): expected unknown item error, got %v", item, err)
		}
	}
}

func TestBookRoundTrip(t *testing.T) {
	_, b, err := ParseInput(strings.NewReader(nopInput))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var again Book
	if err := json.Unmarshal(buf.Bytes(), &again); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(again, b) {
		t.Errorf("round trip = %#v, want %#v", again, b)
	}
}

func TestNestedSubItems(t *testing.T) {
	input := `{"sections": [{"Chapter": {"name": "A", "content": "", "sub_items": [
		{"Chapter": {"name": "A.1", "content": "x"}}
	]}}]}`
	var b Book
	if err := json.Unmarshal([]byte(input), &b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parent := b.Sections[0].(Chapter)
	if len(parent.SubItems) != 1 {
		t.Fatalf("expected 1 sub item, got %d", len(parent.SubItems))
	}
	if child := parent.SubItems[0].(Chapter); child.Name != "A.1" {
		t.Errorf("expected sub item A.1, got %q", child.Name)
	}
}

func TestPreprocessorConfig(t *testing.T) {
	ctx, _, err := ParseInput(strings.NewReader(nopInput))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var cfg struct {
		HeadingAttributes bool `json:"heading-attributes"`
	}
	found, err := ctx.PreprocessorConfig("split", &cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || !cfg.HeadingAttributes {
		t.Errorf("expected heading-attributes true, got found=%v cfg=%+v", found, cfg)
	}

	found, err = ctx.PreprocessorConfig("missing", &cfg)
	if err != nil || found {
		t.Errorf("expected absent table, got found=%v err=%v", found, err)
	}

	found, err = Context{}.PreprocessorConfig("split", &cfg)
	if err != nil || found {
		t.Errorf("expected absent config, got found=%v err=%v", found, err)
	}
}
