// Package redisstore backs the review collection with Redis: one hash per
// review document, one sorted set per book scored by the server clock, and
// a pub/sub channel per book carrying change notifications. Watch re-reads
// the matching set on every notification and delivers it wholesale, so
// subscribers always see a complete, ordered snapshot.
package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"bookhub/internal/adapters/observability"
	"bookhub/internal/domain"
)

type Store struct {
	c     *redis.Client
	appID string
	rl    *rate.Limiter

	mu       sync.Mutex
	watchers []chan domain.AuthState
}

// New connects the shared backend client. appID scopes every key so multiple
// deployments can share one Redis. writeRPS rate-limits Insert client-side,
// the same guard the outbound paths carry elsewhere in this codebase.
func New(addr, pass string, db int, appID string, writeRPS int) *Store {
	if writeRPS <= 0 {
		writeRPS = 5
	}
	return &Store{
		c:     redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
		appID: appID,
		rl:    rate.NewLimiter(rate.Limit(writeRPS), writeRPS),
	}
}

// NewWithClient wraps an existing client; used by tests.
func NewWithClient(c *redis.Client, appID string) *Store {
	return &Store{c: c, appID: appID, rl: rate.NewLimiter(rate.Limit(100), 100)}
}

func (s *Store) reviewKey(id string) string { return fmt.Sprintf("app:%s:review:%s", s.appID, id) }
func (s *Store) indexKey(bookID string) string {
	return fmt.Sprintf("app:%s:reviews:%s", s.appID, bookID)
}
func (s *Store) changeChannel(bookID string) string {
	return fmt.Sprintf("app:%s:reviews:%s:changes", s.appID, bookID)
}

// Insert writes one review document with a server-assigned timestamp and
// notifies watchers of the book. The caller never learns the timestamp from
// this call; it shows up in the next snapshot.
func (s *Store) Insert(ctx context.Context, r domain.Review) (string, error) {
	if err := s.rl.Wait(ctx); err != nil {
		return "", err
	}
	start := time.Now()

	// Server clock, not the caller's.
	now, err := s.c.Time(ctx).Result()
	if err != nil {
		observability.ObserveBackend("insert", err, time.Since(start))
		return "", fmt.Errorf("backend time: %w", err)
	}

	id := uuid.NewString()
	pipe := s.c.TxPipeline()
	pipe.HSet(ctx, s.reviewKey(id), map[string]any{
		"bookId":     r.BookID,
		"authorId":   r.AuthorID,
		"authorName": r.AuthorName,
		"rating":     r.Rating,
		"text":       r.Text,
		"createdAt":  now.UnixMicro(),
	})
	pipe.ZAdd(ctx, s.indexKey(r.BookID), redis.Z{
		Score:  float64(now.UnixMicro()),
		Member: id,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		observability.ObserveBackend("insert", err, time.Since(start))
		return "", err
	}

	err = s.c.Publish(ctx, s.changeChannel(r.BookID), id).Err()
	observability.ObserveBackend("insert", err, time.Since(start))
	if err != nil {
		return "", err
	}
	return id, nil
}

// Watch opens the live query for bookID: subscribe first so no change is
// missed, then deliver the initial snapshot, then one snapshot per change.
func (s *Store) Watch(ctx context.Context, bookID string) (domain.ReviewSubscription, error) {
	ps := s.c.Subscribe(ctx, s.changeChannel(bookID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		observability.ObserveBackend("watch", err, 0)
		return nil, fmt.Errorf("subscribe %s: %w", bookID, err)
	}

	initial, err := s.readSnapshot(ctx, bookID)
	if err != nil {
		_ = ps.Close()
		observability.ObserveBackend("watch", err, 0)
		return nil, err
	}
	observability.ObserveBackend("watch", nil, 0)

	runCtx, cancel := context.WithCancel(context.Background())
	sub := &subscription{
		out:    make(chan []domain.Review, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go sub.run(runCtx, s, ps, bookID, initial)
	return sub, nil
}

// readSnapshot returns the complete matching set: ids newest-first from the
// index, documents fetched in one round trip.
func (s *Store) readSnapshot(ctx context.Context, bookID string) ([]domain.Review, error) {
	ids, err := s.c.ZRevRange(ctx, s.indexKey(bookID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read review index %s: %w", bookID, err)
	}
	if len(ids) == 0 {
		return []domain.Review{}, nil
	}

	pipe := s.c.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.reviewKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("read review docs %s: %w", bookID, err)
	}

	out := make([]domain.Review, 0, len(ids))
	for i, id := range ids {
		m, err := cmds[i].Result()
		if err != nil || len(m) == 0 {
			continue // index entry without a document; skip
		}
		out = append(out, reviewFromHash(id, m))
	}
	return out, nil
}

func reviewFromHash(id string, m map[string]string) domain.Review {
	rating, _ := strconv.Atoi(m["rating"])
	r := domain.Review{
		ID:         id,
		BookID:     m["bookId"],
		AuthorID:   m["authorId"],
		AuthorName: m["authorName"],
		Rating:     rating,
		Text:       m["text"],
	}
	if us, err := strconv.ParseInt(m["createdAt"], 10, 64); err == nil {
		r.CreatedAt = time.UnixMicro(us).UTC()
	}
	return r
}

type subscription struct {
	out    chan []domain.Review
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	err    error
	closed bool
}

func (sub *subscription) run(ctx context.Context, s *Store, ps *redis.PubSub, bookID string, initial []domain.Review) {
	defer close(sub.done)
	defer close(sub.out)
	defer func() { _ = ps.Close() }()

	sub.deliver(ctx, initial)

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-msgs:
			if !ok {
				return
			}
			snap, err := s.readSnapshot(ctx, bookID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				sub.mu.Lock()
				sub.err = err
				sub.mu.Unlock()
				return
			}
			sub.deliver(ctx, snap)
		}
	}
}

// deliver publishes a snapshot, replacing a stale pending one when the
// consumer lags. Snapshots are replaced wholesale, never mutated.
func (sub *subscription) deliver(ctx context.Context, snap []domain.Review) {
	for {
		if ctx.Err() != nil {
			return
		}
		select {
		case sub.out <- snap:
			return
		default:
			select {
			case <-sub.out:
			default:
			}
		}
	}
}

func (sub *subscription) Snapshots() <-chan []domain.Review { return sub.out }

func (sub *subscription) Err() error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return nil
	}
	return sub.err
}

// Close stops delivery and releases the pub/sub connection. It does not
// return until the delivery goroutine has exited, so nothing fires after.
func (sub *subscription) Close() {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		<-sub.done
		return
	}
	sub.closed = true
	sub.mu.Unlock()
	sub.cancel()
	<-sub.done
}
