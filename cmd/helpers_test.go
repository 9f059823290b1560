package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/habedi/storekeeper/auth"
	"github.com/habedi/storekeeper/client"
	"github.com/habedi/storekeeper/config"
	"github.com/habedi/storekeeper/db"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// apiStub answers the few endpoints the commands use. Protected routes accept only the current
// access token; the refresh endpoint rotates it.
type apiStub struct {
	mu           sync.Mutex
	access       string
	refresh      string
	generation   int
	refreshCalls atomic.Int32
	rejected     atomic.Int32 // protected requests answered with 401
}

func (s *apiStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reply := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.URL.Path {
	case "/auth/login":
		var body struct{ Login, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret" {
			reply(http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
			return
		}
		reply(http.StatusOK, map[string]any{
			"accessToken":  s.access,
			"refreshToken": s.refresh,
			"user":         map[string]any{"login": body.Login, "name": "Jane Doe"},
		})
		return
	case "/auth/login/access-token":
		s.refreshCalls.Add(1)
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.RefreshToken != s.refresh {
			reply(http.StatusUnauthorized, map[string]any{"message": "Invalid refresh token"})
			return
		}
		s.generation++
		s.access = fmt.Sprintf("access-%d", s.generation)
		s.refresh = fmt.Sprintf("refresh-%d", s.generation)
		reply(http.StatusOK, map[string]any{"accessToken": s.access, "refreshToken": s.refresh})
		return
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		s.rejected.Add(1)
		reply(http.StatusUnauthorized, map[string]any{"message": "jwt must be provided"})
		return
	}
	if strings.TrimPrefix(header, "Bearer ") != s.access {
		s.rejected.Add(1)
		reply(http.StatusUnauthorized, map[string]any{"message": "jwt expired"})
		return
	}

	switch r.URL.Path {
	case "/products":
		reply(http.StatusOK, []map[string]any{
			{"id": 1, "name": "Red notebook", "price": 3.5, "quantity": 10},
			{"id": 2, "name": "Blue pencil", "price": 0.75, "quantity": 200},
		})
	case "/products/1":
		reply(http.StatusOK, map[string]any{"id": 1, "name": "Red notebook", "price": 3.5, "quantity": 10})
	case "/products/2":
		reply(http.StatusOK, map[string]any{"id": 2, "name": "Blue pencil", "price": 0.75, "quantity": 200})
	case "/orders/42", "/orders/43":
		reply(http.StatusOK, map[string]any{
			"orderNumber": strings.TrimPrefix(r.URL.Path, "/orders/"),
			"orderDate":   "2024-03-01",
			"user":        map[string]any{"name": "Jane Doe"},
			"items": []map[string]any{
				{"name": "Red notebook", "price": 3.5, "buyQuantity": 2},
				{"name": "Blue pencil", "price": 0.75, "buyQuantity": 4},
			},
			"totalPrice": 10,
		})
	default:
		reply(http.StatusNotFound, map[string]any{"message": []string{"Cannot GET " + r.URL.Path}})
	}
}

// rotateAccess makes the stub reject the access token the client holds.
func (s *apiStub) rotateAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = "access-rotated"
}

// newTestApp builds an app against the stub API with SQLite storage in a temp dir.
func newTestApp(t *testing.T) (*app, *apiStub) {
	t.Helper()

	stub := &apiStub{access: "access-1", refresh: "refresh-1", generation: 1}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "storekeeper.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	authAPI := client.NewAuthAPI(srv.URL, srv.Client())
	svc := auth.NewServiceWithRepo(db.NewTokenRepository(gdb), authAPI,
		auth.WithAuthenticator(authAPI),
		auth.WithProfiles(db.NewProfileRepository(gdb)),
	)

	a := &app{
		cfg: config.Config{
			Catalogue: config.CatalogueConfig{Workers: 2},
			Invoice: config.InvoiceConfig{
				Language:  "en",
				Format:    "pdf",
				OutputDir: t.TempDir(),
			},
		},
		svc:      svc,
		api:      client.New(srv.URL, svc, client.WithHTTPClient(srv.Client())),
		products: db.NewProductRepository(gdb),
	}
	return a, stub
}

// withPassword makes the password prompt answer pw.
func withPassword(t *testing.T, pw string) {
	t.Helper()
	orig := readPassword
	readPassword = func(io.Writer, string) (string, error) { return pw, nil }
	t.Cleanup(func() { readPassword = orig })
}

func captureCombinedOutput(cmd *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return buf.String(), err
}

// logIn runs the login command with the stub's valid credentials.
func logIn(t *testing.T, a *app) {
	t.Helper()
	withPassword(t, "secret")
	c := loginCmd(a)
	c.SetIn(strings.NewReader("jane\n"))
	_, err := captureCombinedOutput(c)
	require.NoError(t, err)
}
