package book

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Context is the build information the host sends alongside the book.
type Context struct {
	Root          string          `json:"root"`
	Config        json.RawMessage `json:"config"`
	Renderer      string          `json:"renderer"`
	MdbookVersion string          `json:"mdbook_version"`
}

// PreprocessorConfig decodes the book.toml table [preprocessor.<name>] into
// v. It reports false when the table is absent.
func (c Context) PreprocessorConfig(name string, v any) (bool, error) {
	if len(bytes.TrimSpace(c.Config)) == 0 {
		return false, nil
	}
	var cfg struct {
		Preprocessor map[string]json.RawMessage `json:"preprocessor"`
	}
	if err := json.Unmarshal(c.Config, &cfg); err != nil {
		return false, fmt.Errorf("%w: config: %w", ErrProtocol, err)
	}
	table, ok := cfg.Preprocessor[name]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(table, v); err != nil {
		return false, fmt.Errorf("%w: [preprocessor.%s]: %w", ErrProtocol, name, err)
	}
	return true, nil
}

// ParseInput reads the `[context, book]` pair the host writes to a
// preprocessor's stdin.
func ParseInput(r io.Reader) (Context, Book, error) {
	var (
		ctx  Context
		b    Book
		pair []json.RawMessage
	)
	dec := json.NewDecoder(r)
	if err := dec.Decode(&pair); err != nil {
		return ctx, b, fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	if len(pair) != 2 {
		return ctx, b, fmt.Errorf("%w: expected [context, book], got %d elements", ErrProtocol, len(pair))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ctx, b, fmt.Errorf("%w: trailing data after input", ErrProtocol)
	}
	if err := json.Unmarshal(pair[0], &ctx); err != nil {
		return ctx, b, fmt.Errorf("%w: context: %w", ErrProtocol, err)
	}
	if err := json.Unmarshal(pair[1], &b); err != nil {
		if errors.Is(err, ErrProtocol) {
			return ctx, b, fmt.Errorf("book: %w", err)
		}
		return ctx, b, fmt.Errorf("%w: book: %w", ErrProtocol, err)
	}
	return ctx, b, nil
}
