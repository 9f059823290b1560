package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/habedi/storekeeper/auth"
	"github.com/habedi/storekeeper/db"
)

// memTokenRepo is an in-memory db.TokenRepository.
type memTokenRepo struct {
	mu        sync.Mutex
	token     *db.Token
	upserts   int
	deletes   int
	upsertErr error
	deleteErr error
}

func (m *memTokenRepo) Get(ctx context.Context) (*db.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == nil {
		return nil, nil
	}
	cp := *m.token
	return &cp, nil
}

func (m *memTokenRepo) Upsert(ctx context.Context, token *db.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts++
	cp := *token
	m.token = &cp
	return nil
}

func (m *memTokenRepo) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletes++
	m.token = nil
	return nil
}

// mockRefresher returns a fixed pair or error and can block until released.
type mockRefresher struct {
	mu       sync.Mutex
	calls    int
	seen     []string
	pair     auth.Pair
	err      error
	release  chan struct{}
	started  chan struct{}
	onceStop sync.Once
}

func (m *mockRefresher) PerformTokenRefresh(ctx context.Context, refreshToken string) (auth.Pair, error) {
	m.mu.Lock()
	m.calls++
	m.seen = append(m.seen, refreshToken)
	m.mu.Unlock()

	if m.started != nil {
		m.onceStop.Do(func() { close(m.started) })
	}
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return auth.Pair{}, ctx.Err()
		}
	}
	if m.err != nil {
		return auth.Pair{}, m.err
	}
	return m.pair, nil
}

func (m *mockRefresher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockAuthenticator struct {
	res auth.LoginResult
	err error
}

func (m *mockAuthenticator) Login(ctx context.Context, login, password string) (auth.LoginResult, error) {
	if m.err != nil {
		return auth.LoginResult{}, m.err
	}
	if password != "secret" {
		return auth.LoginResult{}, errors.New("invalid credentials")
	}
	return m.res, nil
}

// mintJWT builds an HS256 token expiring at exp.
func mintJWT(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

// seededStore returns a store already holding the given pair.
func seededStore(t *testing.T, repo *memTokenRepo, access, refresh string) *auth.Store {
	t.Helper()
	store := auth.NewStore(repo)
	if err := store.Save(context.Background(), auth.Pair{AccessToken: access, RefreshToken: refresh}); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}
	return store
}
