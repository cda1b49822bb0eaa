package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"bookhub/internal/adapters/observability"
	"bookhub/internal/domain"
)

// BookLookup is the one thing the pipeline needs from the catalog: whether
// a book id exists.
type BookLookup interface {
	HasBook(ctx context.Context, id string) bool
}

// Pipeline validates and writes one review at a time. It holds the form
// state (rating + text) and a busy guard: an overlapping Submit fails with
// ErrBusy instead of queueing. One pipeline per form; the guard is not
// shared across pipelines.
type Pipeline struct {
	store   domain.ReviewStore
	catalog BookLookup

	busy atomic.Bool

	mu     sync.Mutex
	rating int
	text   string
}

func NewPipeline(store domain.ReviewStore, catalog BookLookup) *Pipeline {
	return &Pipeline{store: store, catalog: catalog}
}

// SetRating records the selected star value.
func (p *Pipeline) SetRating(r int) {
	p.mu.Lock()
	p.rating = r
	p.mu.Unlock()
}

// SetText records the review text. Input beyond the upper bound is truncated
// at the point of entry, not rejected; only the lower bound can fail
// validation later.
func (p *Pipeline) SetText(s string) {
	if rs := []rune(s); len(rs) > domain.MaxReviewLen {
		s = string(rs[:domain.MaxReviewLen])
	}
	p.mu.Lock()
	p.text = s
	p.mu.Unlock()
}

// Form returns the currently held rating and text.
func (p *Pipeline) Form() (int, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rating, p.text
}

// Submit validates the held form against ident and writes the review
// document. On success the form resets (rating 0, text empty) and the new
// document id is returned; the pipeline never reads its own write back,
// the update surfaces through the book's live feed, if at all. On a backend
// failure the form is kept so the caller can resubmit.
func (p *Pipeline) Submit(ctx context.Context, bookID string, ident domain.Identity) (string, error) {
	if !p.busy.CompareAndSwap(false, true) {
		observability.ObserveSubmission("busy")
		return "", domain.ErrBusy
	}
	defer p.busy.Store(false)

	rating, text := p.Form()

	if ident.ID == "" {
		observability.ObserveSubmission("not_authenticated")
		return "", domain.ErrNotAuthenticated
	}
	if rating < domain.MinRating || rating > domain.MaxRating {
		observability.ObserveSubmission("invalid_rating")
		return "", domain.ErrInvalidRating
	}
	if n := len([]rune(text)); n < domain.MinReviewLen || n > domain.MaxReviewLen {
		observability.ObserveSubmission("invalid_text")
		return "", domain.ErrInvalidText
	}
	if p.catalog != nil && !p.catalog.HasBook(ctx, bookID) {
		observability.ObserveSubmission("unknown_book")
		return "", domain.ErrUnknownBook
	}

	id, err := p.store.Insert(ctx, domain.Review{
		BookID:     bookID,
		AuthorID:   ident.ID,
		AuthorName: ident.DisplayName,
		Rating:     rating,
		Text:       text,
	})
	if err != nil {
		observability.ObserveSubmission("write_failed")
		return "", fmt.Errorf("%w: %w", domain.ErrWriteFailed, err)
	}

	p.mu.Lock()
	p.rating = 0
	p.text = ""
	p.mu.Unlock()
	observability.ObserveSubmission("ok")
	return id, nil
}
