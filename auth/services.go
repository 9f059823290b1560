package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habedi/storekeeper/db"
	"github.com/rs/zerolog/log"
)

// freshnessMargin is how close to expiry an access token may get before EnsureFresh renews it.
const freshnessMargin = 5 * time.Minute

// LoginResult is what a successful login hands back.
type LoginResult struct {
	Pair    Pair
	Profile *db.Profile
}

// Service ties the credential store, the renewer and the login endpoint together.
type Service struct {
	Store         *Store
	Renewer       *Renewer
	Authenticator Authenticator
	Profiles      db.ProfileRepository
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithAuthenticator sets the component used by Login.
func WithAuthenticator(a Authenticator) ServiceOption {
	return func(s *Service) { s.Authenticator = a }
}

// WithProfiles sets where the logged-in user's profile is kept.
func WithProfiles(p db.ProfileRepository) ServiceOption {
	return func(s *Service) { s.Profiles = p }
}

// WithRenewalTimeout bounds each renewal call.
func WithRenewalTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.Renewer.timeout = d }
}

// NewService is the constructor for the auth service.
func NewService(store *Store, refresher TokenRefresher, opts ...ServiceOption) *Service {
	s := &Service{
		Store:   store,
		Renewer: NewRenewer(store, refresher, DefaultRenewalTimeout),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewServiceWithRepo constructs a Service on top of a TokenRepository.
func NewServiceWithRepo(tokenRepo db.TokenRepository, refresher TokenRefresher, opts ...ServiceOption) *Service {
	return NewService(NewStore(tokenRepo), refresher, opts...)
}

// Login exchanges a login and password for a session and persists it.
func (s *Service) Login(ctx context.Context, login, password string) (*db.Profile, error) {
	if s.Authenticator == nil {
		return nil, errors.New("no authenticator configured")
	}
	res, err := s.Authenticator.Login(ctx, login, password)
	if err != nil {
		return nil, fmt.Errorf("failed to log in: %w", err)
	}
	if res.Pair.AccessToken == "" {
		return nil, fmt.Errorf("%w: login response carried no access token", ErrUnauthorized)
	}
	if err := s.Store.Save(ctx, res.Pair); err != nil {
		return nil, err
	}
	if res.Profile != nil && s.Profiles != nil {
		if err := s.Profiles.Upsert(ctx, res.Profile); err != nil {
			log.Warn().Err(err).Msg("Failed to save user profile")
		}
	}
	log.Info().Str("login", login).Msg("Logged in")
	return res.Profile, nil
}

// Logout drops the session and the cached profile.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.Store.Clear(ctx); err != nil {
		return err
	}
	if s.Profiles != nil {
		if err := s.Profiles.Delete(ctx); err != nil {
			return fmt.Errorf("failed to remove user profile: %w", err)
		}
	}
	log.Info().Msg("Logged out")
	return nil
}

// Renew runs or joins the single in-flight renewal after a request carrying the access token
// rejected was refused.
func (s *Service) Renew(ctx context.Context, rejected string) error {
	return s.Renewer.RenewRejected(ctx, rejected)
}

// Clear removes the stored credentials.
func (s *Service) Clear(ctx context.Context) error { return s.Store.Clear(ctx) }

// PeekAccessToken returns the current access token if there is one.
func (s *Service) PeekAccessToken() (string, bool) { return s.Store.PeekAccessToken() }

// AccessTokenExpiry returns when the stored access token expires.
func (s *Service) AccessTokenExpiry() (time.Time, bool) {
	pair, ok := s.Store.Snapshot()
	if !ok {
		return time.Time{}, false
	}
	return pair.AccessExpiresAt, true
}

// State reports whether a usable session is stored.
func (s *Service) State() SessionState { return s.Store.State() }

// EnsureFresh renews the session ahead of time when the access token is missing or about to expire.
// It is a no-op for a fresh token. A refused renewal clears the credentials, as a refused renewal
// after a rejected request does.
func (s *Service) EnsureFresh(ctx context.Context) error {
	if _, ok := s.Store.PeekRefreshToken(); !ok {
		return fmt.Errorf("%w: no session stored; please log in first", ErrUnauthorized)
	}
	if isTokenValid(s.Store, time.Now()) {
		return nil
	}
	if err := s.Renewer.Renew(ctx); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			log.Warn().Err(err).Msg("Session renewal refused, clearing credentials")
			if clearErr := s.Store.Clear(ctx); clearErr != nil {
				log.Error().Err(clearErr).Msg("Failed to clear credentials")
			}
		}
		return err
	}
	return nil
}

// isTokenValid checks that the access token exists and outlives the freshness margin.
func isTokenValid(store *Store, now time.Time) bool {
	if _, ok := store.PeekAccessToken(); !ok {
		return false
	}
	pair, _ := store.Snapshot()
	if pair.AccessExpiresAt.IsZero() {
		return true
	}
	return now.Add(freshnessMargin).Before(pair.AccessExpiresAt)
}
