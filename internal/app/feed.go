package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"bookhub/internal/adapters/observability"
	"bookhub/internal/domain"
)

// FeedUpdate is one delivery from a live review feed: the full snapshot for
// the book plus the stats derived from it. Snapshots are replaced wholesale,
// never mutated in place.
type FeedUpdate struct {
	Reviews []domain.Review       `json:"reviews"`
	Stats   domain.AggregateStats `json:"stats"`
}

// Feed wraps one live subscription for one book and republishes each store
// snapshot with its aggregate stats. Feeds for different books run
// independently; a fault in one is contained to that feed.
type Feed struct {
	bookID  string
	sub     domain.ReviewSubscription
	updates chan FeedUpdate

	mu     sync.Mutex
	err    error
	closed bool
}

// OpenFeed opens the live query for bookID. A failure to open is returned to
// the caller, which renders the empty state for that book; other feeds are
// unaffected.
func OpenFeed(ctx context.Context, store domain.ReviewStore, bookID string) (*Feed, error) {
	sub, err := store.Watch(ctx, bookID)
	if err != nil {
		observability.ObserveFeed("open_error")
		return nil, err
	}
	f := &Feed{
		bookID:  bookID,
		sub:     sub,
		updates: make(chan FeedUpdate, 1),
	}
	observability.FeedsActive.Inc()
	go f.run()
	return f, nil
}

func (f *Feed) run() {
	defer close(f.updates)
	defer observability.FeedsActive.Dec()

	for snap := range f.sub.Snapshots() {
		observability.ObserveFeed("snapshot")
		f.publish(FeedUpdate{Reviews: snap, Stats: Aggregate(snap)})
	}

	// Stream ended. A mid-stream fault downgrades this feed to an empty
	// snapshot so the caller's list empties and its spinner stops.
	if err := f.sub.Err(); err != nil {
		f.mu.Lock()
		f.err = err
		closed := f.closed
		f.mu.Unlock()
		if !closed {
			log.Warn().Str("book", f.bookID).Err(err).Msg("review feed degraded")
			observability.ObserveFeed("error")
			f.publish(FeedUpdate{Reviews: []domain.Review{}})
		}
	}
}

// publish delivers an update, coalescing to the latest when the consumer
// lags: a stale pending snapshot is replaced, matching the wholesale
// replacement contract.
func (f *Feed) publish(u FeedUpdate) {
	for {
		select {
		case f.updates <- u:
			return
		default:
			select {
			case <-f.updates:
			default:
			}
		}
	}
}

// Updates delivers snapshots in backend order until the feed is closed or
// fails. The channel is closed after the final delivery.
func (f *Feed) Updates() <-chan FeedUpdate { return f.updates }

// Err reports why the feed degraded, nil while healthy or after a clean
// Close.
func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Close stops delivery deterministically and releases the underlying
// connection. No update is delivered after Close returns.
func (f *Feed) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.sub.Close()
}
