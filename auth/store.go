package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/habedi/storekeeper/db"
	"github.com/rs/zerolog/log"
)

// Default lifetimes used when a token carries no exp claim.
const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Pair is the access/refresh token couple that makes up a session.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// SessionState is derived from the presence of both tokens.
type SessionState int

const (
	Unauthenticated SessionState = iota
	Authenticated
)

func (s SessionState) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Store keeps the credential pair in a repository and serves reads from an in-memory snapshot.
type Store struct {
	repo       db.TokenRepository
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	writeMu sync.Mutex // serializes Save and Clear

	mu   sync.RWMutex
	pair *Pair
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTTL sets the fallback lifetimes for tokens without an exp claim.
func WithTTL(access, refresh time.Duration) StoreOption {
	return func(s *Store) {
		if access > 0 {
			s.accessTTL = access
		}
		if refresh > 0 {
			s.refreshTTL = refresh
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store on top of a token repository.
func NewStore(repo db.TokenRepository, opts ...StoreOption) *Store {
	s := &Store{
		repo:       repo,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted pair into memory.
func (s *Store) Load(ctx context.Context) error {
	token, err := s.repo.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token == nil || token.AccessToken == "" || token.RefreshToken == "" {
		s.pair = nil
		return nil
	}
	s.pair = &Pair{
		AccessToken:      token.AccessToken,
		RefreshToken:     token.RefreshToken,
		AccessExpiresAt:  token.AccessExpiresAt,
		RefreshExpiresAt: token.RefreshExpiresAt,
	}
	return nil
}

// Save persists both tokens with one repository write and then publishes them to readers.
func (s *Store) Save(ctx context.Context, p Pair) error {
	if p.AccessToken == "" || p.RefreshToken == "" {
		return ErrIncompletePair
	}
	now := s.now()
	if p.AccessExpiresAt.IsZero() {
		p.AccessExpiresAt = expiryOrDefault(p.AccessToken, now.Add(s.accessTTL))
	}
	if p.RefreshExpiresAt.IsZero() {
		p.RefreshExpiresAt = expiryOrDefault(p.RefreshToken, now.Add(s.refreshTTL))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.repo.Upsert(ctx, &db.Token{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}

	s.mu.Lock()
	s.pair = &p
	s.mu.Unlock()

	log.Debug().Time("access_expires_at", p.AccessExpiresAt).Msg("Credentials saved")
	return nil
}

// Clear removes both tokens. Clearing an empty store is not an error. When the repository
// delete fails, the in-memory pair is kept so that it keeps matching what the next start loads.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.repo.Delete(ctx); err != nil {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}

	s.mu.Lock()
	s.pair = nil
	s.mu.Unlock()

	log.Debug().Msg("Credentials cleared")
	return nil
}

// PeekAccessToken returns the access token unless it is unset or expired.
func (s *Store) PeekAccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pair == nil || s.expired(s.pair.AccessExpiresAt) {
		return "", false
	}
	return s.pair.AccessToken, true
}

// PeekRefreshToken returns the refresh token unless it is unset or expired.
func (s *Store) PeekRefreshToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pair == nil || s.expired(s.pair.RefreshExpiresAt) {
		return "", false
	}
	return s.pair.RefreshToken, true
}

// Snapshot returns a copy of the stored pair, expired or not.
func (s *Store) Snapshot() (Pair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pair == nil {
		return Pair{}, false
	}
	return *s.pair, true
}

// State reports Authenticated only while both tokens are readable.
func (s *Store) State() SessionState {
	_, hasAccess := s.PeekAccessToken()
	_, hasRefresh := s.PeekRefreshToken()
	if hasAccess && hasRefresh {
		return Authenticated
	}
	return Unauthenticated
}

func (s *Store) expired(at time.Time) bool {
	return !at.IsZero() && !s.now().Before(at)
}
