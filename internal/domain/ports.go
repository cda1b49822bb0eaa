package domain

import "context"

// ReviewStore is the narrow capability this app needs from the backing
// real-time document store: a live filtered, ordered view per book plus
// appends with server-assigned timestamps.
type ReviewStore interface {
	// Watch opens a live query: filter BookID == bookID, newest first.
	// Every change to the matching set delivers a fresh snapshot.
	Watch(ctx context.Context, bookID string) (ReviewSubscription, error)

	// Insert writes a new review document and returns its store-assigned id.
	// CreatedAt on the passed review is ignored; the store assigns it.
	Insert(ctx context.Context, r Review) (string, error)
}

// ReviewSubscription delivers immutable snapshots until closed. After Close
// returns, no further delivery happens and Snapshots is closed.
type ReviewSubscription interface {
	Snapshots() <-chan []Review
	// Err reports why the stream ended, nil on a clean Close.
	Err() error
	Close()
}

// Authenticator resolves the session principal against the backend.
type Authenticator interface {
	// WatchAuth registers an identity-change listener. The stop func
	// unregisters it; no event is delivered after stop returns.
	WatchAuth() (<-chan AuthState, func())

	// SignIn triggers the sign-in flow: with token when non-empty,
	// anonymously otherwise. The outcome is observed through Watch; the
	// returned error covers only transport-level failure.
	SignIn(ctx context.Context, token string) error
}

// CatalogRepository serves the fixed catalog. Write paths exist for the
// seeder only.
type CatalogRepository interface {
	UpsertBook(ctx context.Context, b Book) error
	UpsertLinks(ctx context.Context, bookID string, links []BookLink) error

	GetBook(ctx context.Context, id string) (Book, error)
	ListBooks(ctx context.Context) ([]Book, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
