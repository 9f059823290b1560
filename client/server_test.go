package client_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/habedi/storekeeper/auth"
	"github.com/habedi/storekeeper/client"
	"github.com/habedi/storekeeper/db"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a small stand-in for the storekeeper API. Protected routes accept exactly one access
// token at a time; the refresh endpoint rotates it.
type fakeAPI struct {
	t *testing.T

	mu           sync.Mutex
	validAccess  string
	validRefresh string
	generation   int
	seenAuth     []string
	seenIDs      []string

	refreshStatus int  // answer the refresh endpoint with this status when set
	rejectAll     bool // reject every access token

	// staleBarrier holds back 401 answers until that many stale requests have arrived.
	staleBarrier int
	staleSeen    int
	staleRelease chan struct{}

	// checkPersisted verifies that a request using a fresh token only arrives after the store has it.
	checkPersisted func(token string)

	refreshCalls  atomic.Int32
	protectedHits atomic.Int32
	products      []client.Product
}

func newFakeAPI(t *testing.T) *fakeAPI {
	return &fakeAPI{
		t:            t,
		validAccess:  "access-1",
		validRefresh: "refresh-1",
		generation:   1,
		staleRelease: make(chan struct{}),
		products: []client.Product{
			{ID: 1, Name: "Red notebook", Price: 3.5, Quantity: 10},
			{ID: 2, Name: "Blue pencil", Price: 0.75, Quantity: 200},
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth/login":
		f.login(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/auth/login/access-token":
		f.refresh(w, r)
	default:
		f.protected(w, r)
	}
}

func (f *fakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var body struct{ Login, Password string }
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Password != "secret" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials", "statusCode": 401})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken":  f.validAccess,
		"refreshToken": f.validRefresh,
		"user":         map[string]any{"login": body.Login, "name": "Jane Doe"},
	})
}

func (f *fakeAPI) refresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls.Add(1)
	if f.refreshStatus != 0 {
		writeJSON(w, f.refreshStatus, map[string]any{"message": http.StatusText(f.refreshStatus)})
		return
	}
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	if body.RefreshToken != f.validRefresh {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid refresh token", "statusCode": 401})
		return
	}
	f.generation++
	f.validAccess = fmt.Sprintf("access-%d", f.generation)
	f.validRefresh = fmt.Sprintf("refresh-%d", f.generation)
	writeJSON(w, http.StatusOK, map[string]any{"accessToken": f.validAccess, "refreshToken": f.validRefresh})
}

func (f *fakeAPI) protected(w http.ResponseWriter, r *http.Request) {
	f.protectedHits.Add(1)
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")

	f.mu.Lock()
	f.seenAuth = append(f.seenAuth, header)
	f.seenIDs = append(f.seenIDs, r.Header.Get(client.HeaderRequestID))
	valid := !f.rejectAll && header != "" && token == f.validAccess
	check := f.checkPersisted
	if !valid && f.staleBarrier > 0 {
		f.staleSeen++
		if f.staleSeen == f.staleBarrier {
			close(f.staleRelease)
		}
	}
	barrier := f.staleBarrier
	f.mu.Unlock()

	if !valid {
		if barrier > 0 {
			select {
			case <-f.staleRelease:
			case <-time.After(5 * time.Second):
				f.t.Errorf("fewer than %d stale requests arrived before the barrier timed out", barrier)
			}
		}
		msg := "jwt expired"
		if header == "" {
			msg = "jwt must be provided"
		}
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": msg, "statusCode": 401})
		return
	}
	if check != nil {
		check(token)
	}

	switch {
	case r.URL.Path == "/products":
		writeJSON(w, http.StatusOK, f.products)
	case strings.HasPrefix(r.URL.Path, "/products/"):
		for _, p := range f.products {
			if r.URL.Path == fmt.Sprintf("/products/%d", p.ID) {
				writeJSON(w, http.StatusOK, p)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Product not found"})
	case r.URL.Path == "/orders/42":
		writeJSON(w, http.StatusOK, map[string]any{
			"orderNumber": 42,
			"orderDate":   "2024-03-01",
			"user":        map[string]any{"name": "Jane Doe"},
			"items": []map[string]any{
				{"name": "Red notebook", "price": 3.5, "buyQuantity": 2},
			},
			"totalPrice": 7,
		})
	case r.URL.Path == "/broken":
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "boom"})
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": []string{"Cannot GET " + r.URL.Path}})
	}
}

// expireAccess makes the server reject the access token the client currently holds.
func (f *fakeAPI) expireAccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validAccess = "access-rotated-server-side"
}

func (f *fakeAPI) revokeRefresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validRefresh = "refresh-revoked"
}

func (f *fakeAPI) authHeaders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seenAuth...)
}

func (f *fakeAPI) requestIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seenIDs...)
}

type env struct {
	api    *fakeAPI
	server *httptest.Server
	mr     *miniredis.Miniredis
	svc    *auth.Service
	client *client.Client
}

// newEnv wires a client to the fake API, with the session kept in an in-memory Redis.
func newEnv(t *testing.T) *env {
	t.Helper()
	api := newFakeAPI(t)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	authAPI := client.NewAuthAPI(srv.URL, srv.Client())
	svc := auth.NewServiceWithRepo(
		db.NewRedisTokenRepository(rdb, db.DefaultRedisKey),
		authAPI,
		auth.WithAuthenticator(authAPI),
	)
	return &env{
		api:    api,
		server: srv,
		mr:     mr,
		svc:    svc,
		client: client.New(srv.URL, svc, client.WithHTTPClient(srv.Client())),
	}
}

// loggedIn logs in with the fake API's valid credentials.
func (e *env) loggedIn(t *testing.T) *env {
	t.Helper()
	_, err := e.svc.Login(context.Background(), "jane", "secret")
	require.NoError(t, err)
	return e
}
