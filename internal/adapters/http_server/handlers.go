package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"bookhub/internal/app"
	"bookhub/internal/domain"
)

type Handlers struct {
	Catalog *app.CatalogService
	Store   domain.ReviewStore
	Boot    *app.Bootstrap

	mu    sync.Mutex
	pipes map[string]*app.Pipeline
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	// The stream route stays outside the timeout wrapper; it lives until
	// the client disconnects.
	s.mux.Get("/v1/books/{id}/reviews/stream", h.streamReviews)

	s.mux.Group(func(g chi.Router) {
		g.Use(Timeout(requestTimeout))
		g.Get("/v1/books", h.listBooks)
		g.Get("/v1/books/{id}", h.getBook)
		g.Get("/v1/books/{id}/reviews", h.listReviews)
		g.Post("/v1/books/{id}/reviews", h.submitReview)
	})
}

// pipeline returns the submission pipeline for a book, one per form. All
// posts against a book share its busy guard.
func (h *Handlers) pipeline(bookID string) *app.Pipeline {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pipes == nil {
		h.pipes = map[string]*app.Pipeline{}
	}
	p, ok := h.pipes[bookID]
	if !ok {
		p = app.NewPipeline(h.Store, h.Catalog)
		h.pipes[bookID] = p
	}
	return p
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeWithETag(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

type bookResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Author      string            `json:"author"`
	Description string            `json:"description"`
	CoverURL    string            `json:"coverUrl"`
	Links       []domain.BookLink `json:"links"`
}

func toBookResponse(b domain.Book) bookResponse {
	links := make([]domain.BookLink, len(b.Links))
	copy(links, b.Links)
	return bookResponse{
		ID: b.ID, Title: b.Title, Author: b.Author,
		Description: b.Description, CoverURL: b.CoverURL, Links: links,
	}
}

func (h *Handlers) listBooks(w http.ResponseWriter, r *http.Request) {
	bs, err := h.Catalog.ListBooks(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Catalog Unavailable", "failed to load catalog")
		return
	}
	out := make([]bookResponse, len(bs))
	for i, b := range bs {
		out[i] = toBookResponse(b)
	}
	writeWithETag(w, r, out)
}

func (h *Handlers) getBook(w http.ResponseWriter, r *http.Request) {
	b, err := h.Catalog.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "book not found")
		return
	}
	writeWithETag(w, r, toBookResponse(b))
}

type reviewsResponse struct {
	Reviews []domain.Review       `json:"reviews"`
	Stats   domain.AggregateStats `json:"stats"`
}

// listReviews serves the current snapshot: open the live query, take the
// first delivery, close. A per-book subscription fault degrades to the
// empty state rather than failing the request.
func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")
	if _, err := h.Catalog.GetBook(r.Context(), bookID); err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "book not found")
		return
	}

	out := reviewsResponse{Reviews: []domain.Review{}}
	feed, err := app.OpenFeed(r.Context(), h.Store, bookID)
	if err != nil {
		log.Warn().Str("book", bookID).Err(err).Msg("review feed unavailable; serving empty state")
	} else {
		if u, ok := <-feed.Updates(); ok {
			out = reviewsResponse{Reviews: u.Reviews, Stats: u.Stats}
		}
		feed.Close()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(out); err != nil {
		log.Error().Err(err).Msg("failed to write reviews body")
	}
}

// streamReviews delivers the live feed over SSE: one snapshot event per
// delivery until the client disconnects.
func (h *Handlers) streamReviews(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")
	if _, err := h.Catalog.GetBook(r.Context(), bookID); err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "book not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming Unsupported", "response writer cannot flush")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent := func(u app.FeedUpdate) bool {
		body, err := json.Marshal(u)
		if err != nil {
			return false
		}
		if _, err := w.Write([]byte("event: snapshot\ndata: " + string(body) + "\n\n")); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	feed, err := app.OpenFeed(r.Context(), h.Store, bookID)
	if err != nil {
		// Contained: this stream shows the empty state; other books'
		// streams are unaffected.
		log.Warn().Str("book", bookID).Err(err).Msg("review feed unavailable; streaming empty state")
		writeEvent(app.FeedUpdate{Reviews: []domain.Review{}})
		return
	}
	defer feed.Close()

	for {
		select {
		case <-r.Context().Done():
			return
		case u, ok := <-feed.Updates():
			if !ok {
				return
			}
			if !writeEvent(u) {
				return
			}
		}
	}
}

type submitRequest struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

type submitResponse struct {
	ID string `json:"id"`
}

func (h *Handlers) submitReview(w http.ResponseWriter, r *http.Request) {
	if h.Boot.State() != app.StateReady {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", "session not ready")
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "expected JSON {rating, text}")
		return
	}

	p := h.pipeline(chi.URLParam(r, "id"))
	p.SetRating(req.Rating)
	p.SetText(req.Text) // over-length text is truncated here, not rejected

	id, err := p.Submit(r.Context(), chi.URLParam(r, "id"), h.Boot.Identity())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotAuthenticated):
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", "identity not resolved")
		case errors.Is(err, domain.ErrInvalidRating):
			writeProblem(w, http.StatusUnprocessableEntity, "Invalid Rating", err.Error())
		case errors.Is(err, domain.ErrInvalidText):
			writeProblem(w, http.StatusUnprocessableEntity, "Invalid Text", err.Error())
		case errors.Is(err, domain.ErrUnknownBook):
			writeProblem(w, http.StatusNotFound, "Not Found", "book not found")
		case errors.Is(err, domain.ErrBusy):
			writeProblem(w, http.StatusConflict, "Busy", "a submission is already in flight")
		default:
			writeProblem(w, http.StatusBadGateway, "Write Failed", "review was not saved; please resubmit")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(submitResponse{ID: id}); err != nil {
		log.Error().Err(err).Msg("failed to write submit response")
	}
}
