package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	redisstore "bookhub/internal/adapters/redis"
	"bookhub/internal/domain"
)

func newStore(t *testing.T) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	m.SetTime(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	c := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return redisstore.NewWithClient(c, "test-app"), m
}

// waitSnapshot reads deliveries until one has n reviews.
func waitSnapshot(t *testing.T, sub domain.ReviewSubscription, n int) []domain.Review {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case snap, ok := <-sub.Snapshots():
			if !ok {
				t.Fatalf("stream ended while waiting for %d reviews (err=%v)", n, sub.Err())
			}
			if len(snap) == n {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for snapshot with %d reviews", n)
		}
	}
}

func TestInsertThenWatch_InitialSnapshot(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, domain.Review{
		BookID: "rising-disgrace", AuthorID: "anon-abc1234", AuthorName: "Guest-anon-ab",
		Rating: 5, Text: "a gripping, honest read",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id == "" {
		t.Fatalf("expected a store-assigned id")
	}

	sub, err := s.Watch(ctx, "rising-disgrace")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer sub.Close()

	snap := waitSnapshot(t, sub, 1)
	got := snap[0]
	if got.ID != id || got.Rating != 5 || got.AuthorID != "anon-abc1234" {
		t.Fatalf("unexpected review: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("expected a server-assigned timestamp")
	}
}

func TestWatch_FilterAndDescendingOrder(t *testing.T) {
	s, m := newStore(t)
	ctx := context.Background()

	sub, err := s.Watch(ctx, "truth-justice")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer sub.Close()

	if snap := waitSnapshot(t, sub, 0); len(snap) != 0 {
		t.Fatalf("expected empty initial snapshot")
	}

	// Older review first; advance the server clock between writes so the
	// descending order is observable.
	first, err := s.Insert(ctx, domain.Review{BookID: "truth-justice", AuthorID: "a", AuthorName: "A", Rating: 4, Text: "worth your time"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	m.SetTime(time.Date(2024, 3, 1, 12, 0, 5, 0, time.UTC))
	second, err := s.Insert(ctx, domain.Review{BookID: "truth-justice", AuthorID: "b", AuthorName: "B", Rating: 2, Text: "not my kind of story"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// A review for another book must never show up in this stream.
	m.SetTime(time.Date(2024, 3, 1, 12, 0, 9, 0, time.UTC))
	if _, err := s.Insert(ctx, domain.Review{BookID: "lost-teenager", AuthorID: "c", AuthorName: "C", Rating: 1, Text: "wrong book entirely"}); err != nil {
		t.Fatalf("Insert other book: %v", err)
	}

	snap := waitSnapshot(t, sub, 2)
	if snap[0].ID != second || snap[1].ID != first {
		t.Fatalf("expected newest first [%s %s], got [%s %s]", second, first, snap[0].ID, snap[1].ID)
	}
	for _, r := range snap {
		if r.BookID != "truth-justice" {
			t.Fatalf("foreign review leaked into snapshot: %+v", r)
		}
	}
	if !snap[0].CreatedAt.After(snap[1].CreatedAt) {
		t.Fatalf("timestamps not descending: %v then %v", snap[0].CreatedAt, snap[1].CreatedAt)
	}
}

func TestClose_StopsDeliveryDeterministically(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	sub, err := s.Watch(ctx, "why-tongue-slips")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	waitSnapshot(t, sub, 0)

	sub.Close()
	if err := sub.Err(); err != nil {
		t.Fatalf("clean close reported error: %v", err)
	}

	// A change after Close must not reach the closed subscription.
	if _, err := s.Insert(ctx, domain.Review{BookID: "why-tongue-slips", AuthorID: "a", AuthorName: "A", Rating: 3, Text: "somewhere in the middle"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	select {
	case snap, ok := <-sub.Snapshots():
		if ok && len(snap) > 0 {
			t.Fatalf("delivery after Close: %+v", snap)
		}
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatch_IndependentSubscriptions(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	subA, err := s.Watch(ctx, "book-a")
	if err != nil {
		t.Fatalf("Watch a: %v", err)
	}
	subB, err := s.Watch(ctx, "book-b")
	if err != nil {
		t.Fatalf("Watch b: %v", err)
	}
	waitSnapshot(t, subA, 0)
	waitSnapshot(t, subB, 0)

	// Closing one subscription leaves the other delivering.
	subA.Close()
	if _, err := s.Insert(ctx, domain.Review{BookID: "book-b", AuthorID: "x", AuthorName: "X", Rating: 5, Text: "still streaming fine"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	snap := waitSnapshot(t, subB, 1)
	if snap[0].BookID != "book-b" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	subB.Close()
}

func TestSignIn_TokenPrincipalAndAnonymous(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	states, stop := s.WatchAuth()
	defer stop()

	if err := s.SignIn(ctx, "issued-token-123"); err != nil {
		t.Fatalf("SignIn(token): %v", err)
	}
	st := <-states
	if !st.Authenticated || st.UserID == "" {
		t.Fatalf("expected an authenticated principal, got %+v", st)
	}

	// Same token, same principal.
	st2ch, stop2 := s.WatchAuth()
	defer stop2()
	if err := s.SignIn(ctx, "issued-token-123"); err != nil {
		t.Fatalf("SignIn(token) again: %v", err)
	}
	if st2 := <-st2ch; st2.UserID != st.UserID {
		t.Fatalf("principal not stable: %q vs %q", st2.UserID, st.UserID)
	}

	// Anonymous sign-in carries no principal.
	st3ch, stop3 := s.WatchAuth()
	defer stop3()
	if err := s.SignIn(ctx, ""); err != nil {
		t.Fatalf("SignIn(anonymous): %v", err)
	}
	if st3 := <-st3ch; st3.Authenticated || st3.UserID != "" {
		t.Fatalf("anonymous sign-in should carry no principal, got %+v", st3)
	}
}

func TestSignIn_UnreachableBackend(t *testing.T) {
	m := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: m.Addr(), DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { _ = c.Close() })
	s := redisstore.NewWithClient(c, "test-app")
	m.Close()

	if err := s.SignIn(context.Background(), ""); err == nil {
		t.Fatalf("expected transport error against a dead backend")
	}
}
