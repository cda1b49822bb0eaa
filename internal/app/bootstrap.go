package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"bookhub/internal/domain"
	"bookhub/internal/storage/localid"
)

type BootState int

const (
	StateInitializing BootState = iota
	StateReady
	StateError
)

// Bootstrap runs once at startup and gates everything else: it checks the
// backend configuration, registers the identity-change listener, triggers
// sign-in, and resolves the session identity. Ready and Error are terminal.
//
// The identity-change notification is the single source of truth for the
// resolved identity; the sign-in call is only the trigger. This removes the
// ordering question between the two: whichever way sign-in resolves, exactly
// one notification (or one transport error) decides the outcome.
type Bootstrap struct {
	done chan struct{}

	mu    sync.Mutex
	state BootState
	ident domain.Identity
	err   error
}

// RunBootstrap starts the session bootstrap. backendAddr empty is the fatal
// ConfigMissing case; token empty selects anonymous sign-in. The returned
// Bootstrap resolves asynchronously; wait on Done.
func RunBootstrap(ctx context.Context, backendAddr, token string, auth domain.Authenticator, ids *localid.Store) *Bootstrap {
	b := &Bootstrap{done: make(chan struct{})}

	if backendAddr == "" {
		b.fail(domain.ErrConfigMissing)
		return b
	}

	// Listener first, then the sign-in trigger.
	states, stop := auth.WatchAuth()

	go func() {
		if err := auth.SignIn(ctx, token); err != nil {
			stop()
			b.fail(fmt.Errorf("%w: %w", domain.ErrAuthFailure, err))
		}
	}()

	go func() {
		select {
		case st, ok := <-states:
			if !ok {
				return // listener stopped by the failure path
			}
			stop()
			b.resolve(st, ids)
		case <-ctx.Done():
			stop()
			b.fail(fmt.Errorf("%w: %w", domain.ErrAuthFailure, ctx.Err()))
		}
	}()

	return b
}

func (b *Bootstrap) resolve(st domain.AuthState, ids *localid.Store) {
	var ident domain.Identity
	if st.Authenticated {
		ident = domain.Identity{
			ID:            st.UserID,
			DisplayName:   "User-" + truncate(st.UserID, 8),
			Authenticated: true,
		}
	} else {
		id := ids.GetOrCreate()
		ident = domain.Identity{
			ID:          id,
			DisplayName: "Guest-" + truncate(id, 7),
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateInitializing {
		return
	}
	b.state = StateReady
	b.ident = ident
	close(b.done)
	log.Info().Str("user", ident.DisplayName).Bool("authenticated", ident.Authenticated).Msg("session ready")
}

func (b *Bootstrap) fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateInitializing {
		return
	}
	b.state = StateError
	b.err = err
	close(b.done)
}

// Done is closed once the bootstrap reaches Ready or Error.
func (b *Bootstrap) Done() <-chan struct{} { return b.done }

func (b *Bootstrap) State() BootState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Identity returns the resolved session identity; the zero value until
// Ready. Immutable for the session's lifetime afterwards.
func (b *Bootstrap) Identity() domain.Identity {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ident
}

// Err reports the fatal bootstrap failure, wrapping ErrConfigMissing or
// ErrAuthFailure.
func (b *Bootstrap) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
