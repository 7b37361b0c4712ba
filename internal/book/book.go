// Package book models the document tree exchanged with the mdbook host and
// its JSON encoding on the preprocessor protocol.
package book

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrProtocol marks input that does not follow the host protocol.
var ErrProtocol = errors.New("invalid preprocessor input")

// Book is the root of the host's document tree.
type Book struct {
	Sections Items
}

// BookItem is one entry of a book: a Chapter, a Separator or a PartTitle.
type BookItem interface {
	bookItem()
}

// Chapter is a titled markdown document.
type Chapter struct {
	Name        string   // Display title
	Content     string   // Markdown text
	Number      []int    // Section number such as [1 2], nil if unnumbered
	SubItems    Items    // Nested items
	Path        *string  // Output path, nil for draft chapters
	SourcePath  *string  // Source file path, nil if generated
	ParentNames []string // Names of the enclosing chapters
}

// Separator is a horizontal divider between chapters.
type Separator struct{}

// PartTitle is a heading that groups the chapters after it.
type PartTitle struct {
	Title string
}

func (Chapter) bookItem()   {}
func (Separator) bookItem() {}
func (PartTitle) bookItem() {}

// Items is an ordered list of book entries.
type Items []BookItem

// String returns a pointer to s, for the optional path fields.
func String(s string) *string {
	return &s
}

type bookJSON struct {
	Sections      Items            `json:"sections"`
	NonExhaustive *json.RawMessage `json:"__non_exhaustive"`
}

// MarshalJSON writes the book the way the host serializes it, including
// its "__non_exhaustive" marker field.
func (b Book) MarshalJSON() ([]byte, error) {
	return json.Marshal(bookJSON{Sections: b.Sections})
}

// UnmarshalJSON reads a book object. A missing sections field is an
// empty book.
func (b *Book) UnmarshalJSON(data []byte) error {
	var raw bookJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Sections = raw.Sections
	return nil
}

// MarshalJSON writes each item in its externally tagged form. A nil list
// is written as an empty array.
func (items Items) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := marshalItem(item)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a list of externally tagged items.
func (items *Items) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Items, 0, len(raw))
	for i, r := range raw {
		item, err := unmarshalItem(r)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, item)
	}
	*items = out
	return nil
}

func marshalItem(item BookItem) ([]byte, error) {
	switch it := item.(type) {
	case Chapter:
		return json.Marshal(map[string]Chapter{"Chapter": it})
	case Separator:
		return []byte(`"Separator"`), nil
	case PartTitle:
		return json.Marshal(map[string]string{"PartTitle": it.Title})
	default:
		return nil, fmt.Errorf("unknown book item %T", item)
	}
}

func unmarshalItem(data []byte) (BookItem, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return nil, err
		}
		if name != "Separator" {
			return nil, fmt.Errorf("%w: unknown book item %q", ErrProtocol, name)
		}
		return Separator{}, nil
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, fmt.Errorf("%w: book item: %w", ErrProtocol, err)
	}
	if len(tagged) != 1 {
		return nil, fmt.Errorf("%w: book item must have exactly one variant, got %d", ErrProtocol, len(tagged))
	}
	for variant, body := range tagged {
		switch variant {
		case "Chapter":
			var ch Chapter
			if err := json.Unmarshal(body, &ch); err != nil {
				return nil, err
			}
			return ch, nil
		case "PartTitle":
			var title string
			if err := json.Unmarshal(body, &title); err != nil {
				return nil, fmt.Errorf("%w: part title: %w", ErrProtocol, err)
			}
			return PartTitle{Title: title}, nil
		default:
			return nil, fmt.Errorf("%w: unknown book item %q", ErrProtocol, variant)
		}
	}
	return nil, fmt.Errorf("%w: empty book item", ErrProtocol)
}

type chapterJSON struct {
	Name        *string  `json:"name"`
	Content     *string  `json:"content"`
	Number      []int    `json:"number"`
	SubItems    Items    `json:"sub_items"`
	Path        *string  `json:"path"`
	SourcePath  *string  `json:"source_path"`
	ParentNames []string `json:"parent_names"`
}

// MarshalJSON writes the chapter with empty lists rather than nulls, since
// the host only accepts null for the number and the two paths.
func (c Chapter) MarshalJSON() ([]byte, error) {
	parents := c.ParentNames
	if parents == nil {
		parents = []string{}
	}
	return json.Marshal(chapterJSON{
		Name:        &c.Name,
		Content:     &c.Content,
		Number:      c.Number,
		SubItems:    c.SubItems,
		Path:        c.Path,
		SourcePath:  c.SourcePath,
		ParentNames: parents,
	})
}

// UnmarshalJSON reads a chapter. Name and content are required.
func (c *Chapter) UnmarshalJSON(data []byte) error {
	var raw chapterJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: chapter: %w", ErrProtocol, err)
	}
	if raw.Name == nil {
		return fmt.Errorf("%w: chapter without name", ErrProtocol)
	}
	if raw.Content == nil {
		return fmt.Errorf("%w: chapter %q without content", ErrProtocol, *raw.Name)
	}
	*c = Chapter{
		Name:        *raw.Name,
		Content:     *raw.Content,
		Number:      raw.Number,
		SubItems:    raw.SubItems,
		Path:        raw.Path,
		SourcePath:  raw.SourcePath,
		ParentNames: raw.ParentNames,
	}
	return nil
}

// Encode writes b to w as a single JSON document.
func Encode(w io.Writer, b Book) error {
	return json.NewEncoder(w).Encode(b)
}
