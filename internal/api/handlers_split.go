package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/matze/mdbook-split/internal/book"
	"github.com/matze/mdbook-split/internal/markdown"
	"github.com/matze/mdbook-split/internal/split"
)

type supportsResponse struct {
	Name      string `json:"name"`
	Renderer  string `json:"renderer"`
	Supported bool   `json:"supported"`
}

type chapterResponse struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (s *Server) handleSupports(w http.ResponseWriter, r *http.Request) {
	renderer := chi.URLParam(r, "renderer")
	writeJSON(w, http.StatusOK, supportsResponse{
		Name:      s.pre.Name(),
		Renderer:  renderer,
		Supported: s.pre.SupportsRenderer(renderer),
	})
}

// handleSplit runs the preprocessor over a `[context, book]` body, the same
// input the host writes to stdin, and responds with the rewritten book.
func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	bctx, b, err := book.ParseInput(r.Body)
	if err != nil {
		if tooLarge(err) {
			jsonError(w, fmt.Sprintf("body exceeds max size (%d bytes)", s.cfg.MaxBodyBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	out, err := s.pre.Run(r.Context(), bctx, b)
	if err != nil {
		if errors.Is(err, book.ErrProtocol) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.log.Error("split failed", "error", err)
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := book.Encode(w, out); err != nil {
		s.log.Error("encode book failed", "error", err)
	}
}

// handleChapters splits a raw markdown body into chapters.
func (s *Server) handleChapters(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	data, err := io.ReadAll(r.Body)
	if err != nil {
		if tooLarge(err) {
			jsonError(w, fmt.Sprintf("body exceeds max size (%d bytes)", s.cfg.MaxBodyBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return
	}

	opts := markdown.Options{HeadingAttributes: s.cfg.HeadingAttributes}
	if v := r.URL.Query().Get("heading_attributes"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, "heading_attributes must be a boolean", http.StatusBadRequest)
			return
		}
		opts.HeadingAttributes = on
	}

	chapters, err := split.Document(string(data), opts)
	if err != nil {
		s.log.Error("split failed", "error", err)
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	resp := struct {
		Chapters []chapterResponse `json:"chapters"`
	}{Chapters: make([]chapterResponse, 0, len(chapters))}
	for _, ch := range chapters {
		resp.Chapters = append(resp.Chapters, chapterResponse{
			Name:    ch.Name,
			Path:    *ch.Path,
			Content: ch.Content,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
