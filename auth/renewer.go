package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultRenewalTimeout bounds a single renewal call.
const DefaultRenewalTimeout = 15 * time.Second

// renewal is one in-flight exchange shared by every caller that asked for it while it ran.
type renewal struct {
	done     chan struct{}
	err      error
	rejected string // access token the starting caller wants replaced
}

// Renewer exchanges the stored refresh token for a new pair. At most one exchange runs at a time;
// callers arriving while it runs wait for its outcome instead of starting their own.
type Renewer struct {
	store     *Store
	refresher TokenRefresher
	timeout   time.Duration

	mu       sync.Mutex
	inflight *renewal

	calls atomic.Int64
}

// NewRenewer creates a Renewer. A non-positive timeout selects DefaultRenewalTimeout.
func NewRenewer(store *Store, refresher TokenRefresher, timeout time.Duration) *Renewer {
	if timeout <= 0 {
		timeout = DefaultRenewalTimeout
	}
	return &Renewer{store: store, refresher: refresher, timeout: timeout}
}

// Renew starts a renewal of the current access token or joins the one in flight and waits for it.
// The exchange itself is not tied to ctx, so a waiter giving up does not abort it for the others.
func (r *Renewer) Renew(ctx context.Context) error {
	current, _ := r.store.Snapshot()
	r.mu.Lock()
	call := r.join(current.AccessToken)
	r.mu.Unlock()
	return r.wait(ctx, call)
}

// RenewRejected is Renew for a caller whose request was rejected while carrying the access token
// rejected (empty if it carried none). If that token has already been replaced, nothing is renewed.
func (r *Renewer) RenewRejected(ctx context.Context, rejected string) error {
	r.mu.Lock()
	if r.inflight == nil {
		// A finished exchange saves its pair before clearing inflight, so this sees it.
		if current, ok := r.store.PeekAccessToken(); ok && current != rejected {
			r.mu.Unlock()
			log.Debug().Msg("Access token already renewed")
			return nil
		}
	}
	call := r.join(rejected)
	r.mu.Unlock()
	return r.wait(ctx, call)
}

// join must be called with mu held.
func (r *Renewer) join(rejected string) *renewal {
	if r.inflight == nil {
		r.inflight = &renewal{done: make(chan struct{}), rejected: rejected}
		go r.run(r.inflight)
	}
	return r.inflight
}

func (r *Renewer) wait(ctx context.Context, call *renewal) error {
	select {
	case <-call.done:
		return call.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Calls returns how many exchanges have been started.
func (r *Renewer) Calls() int64 { return r.calls.Load() }

func (r *Renewer) run(call *renewal) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	call.err = r.exchange(ctx, call.rejected)

	r.mu.Lock()
	r.inflight = nil
	r.mu.Unlock()
	close(call.done)
}

// exchange saves the new pair before returning, so waiters only wake up once it is readable.
// The pair is reloaded first: another process sharing the repository may already have replaced
// the rejected token, and its rotation would make our cached refresh token useless.
func (r *Renewer) exchange(ctx context.Context, rejected string) error {
	if err := r.store.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to reload credentials, renewing with the cached pair")
	}
	if current, ok := r.store.PeekAccessToken(); ok && current != rejected {
		log.Info().Msg("Session was already renewed by another process")
		return nil
	}

	refreshToken, ok := r.store.PeekRefreshToken()
	if !ok {
		return fmt.Errorf("%w: no refresh token stored", ErrUnauthorized)
	}

	r.calls.Add(1)
	log.Info().Msg("Access token rejected, renewing session")

	pair, err := r.refresher.PerformTokenRefresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrUnauthorized) {
			return fmt.Errorf("%w: renewal timed out after %s: %v", ErrUnauthorized, r.timeout, err)
		}
		return fmt.Errorf("failed to renew session: %w", err)
	}
	if pair.AccessToken == "" {
		return fmt.Errorf("%w: renewal response carried no access token", ErrUnauthorized)
	}
	if pair.RefreshToken == "" {
		// Server did not rotate the refresh token.
		pair.RefreshToken = refreshToken
	}

	if err := r.store.Save(ctx, pair); err != nil {
		return fmt.Errorf("failed to save renewed session: %w", err)
	}
	log.Info().Msg("Session renewed and saved successfully.")
	return nil
}
