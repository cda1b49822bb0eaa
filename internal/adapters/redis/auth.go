package redisstore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"bookhub/internal/adapters/observability"
	"bookhub/internal/domain"
)

// Sign-in against the backend. A pre-issued token resolves to a stable
// principal and a session mark in Redis; anonymous sign-in only proves the
// connection and carries no principal, so the session falls back to the
// locally persisted anonymous identity.
//
// The outcome always arrives through the Watch stream: exactly one AuthState
// per sign-in attempt. SignIn's own error covers transport failure only.

const sessionTTL = 24 * time.Hour

func (s *Store) sessionKey(uid string) string { return fmt.Sprintf("app:%s:session:%s", s.appID, uid) }

// WatchAuth registers an identity-change listener. The returned stop func
// unregisters and closes the stream; it is safe to call more than once.
func (s *Store) WatchAuth() (<-chan domain.AuthState, func()) {
	ch := make(chan domain.AuthState, 1)
	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, w := range s.watchers {
				if w == ch {
					s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
					break
				}
			}
			// Closed under the same lock notify sends under, so a stopped
			// watcher can never receive another state.
			close(ch)
		})
	}
	return ch, stop
}

// SignIn triggers the sign-in flow and notifies watchers of the resulting
// auth state. Empty token means anonymous.
func (s *Store) SignIn(ctx context.Context, token string) error {
	start := time.Now()
	if err := s.c.Ping(ctx).Err(); err != nil {
		observability.ObserveBackend("signin", err, time.Since(start))
		return fmt.Errorf("backend unreachable: %w", err)
	}

	st := domain.AuthState{}
	if token != "" {
		uid := principalID(token)
		if err := s.c.Set(ctx, s.sessionKey(uid), time.Now().UTC().Format(time.RFC3339), sessionTTL).Err(); err != nil {
			observability.ObserveBackend("signin", err, time.Since(start))
			return fmt.Errorf("register session: %w", err)
		}
		st = domain.AuthState{UserID: uid, Authenticated: true}
	}
	observability.ObserveBackend("signin", nil, time.Since(start))

	s.notify(st)
	return nil
}

func (s *Store) notify(st domain.AuthState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- st:
		default: // watcher already has an unread state
		}
	}
}

// principalID derives a stable uid from an opaque pre-issued token.
func principalID(token string) string {
	sum := sha1.Sum([]byte(token))
	return "user-" + hex.EncodeToString(sum[:])[:12]
}
