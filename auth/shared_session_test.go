package auth_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/habedi/storekeeper/auth"
	"github.com/habedi/storekeeper/db"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redisStore opens a Store on the shared session hash with its own client, like a second terminal.
func redisStore(t *testing.T, mr *miniredis.Miniredis) *auth.Store {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := auth.NewStore(db.NewRedisTokenRepository(rdb, db.DefaultRedisKey))
	require.NoError(t, store.Load(context.Background()))
	return store
}

func TestSharedSession_RenewedElsewhereIsNotRenewedAgain(t *testing.T) {
	tests := []struct {
		name  string
		renew func(r *auth.Renewer) error
	}{
		{"rejected request", func(r *auth.Renewer) error { return r.RenewRejected(context.Background(), "access-1") }},
		{"ahead of expiry", func(r *auth.Renewer) error { return r.Renew(context.Background()) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr := miniredis.RunT(t)
			first := redisStore(t, mr)
			require.NoError(t, first.Save(context.Background(), auth.Pair{AccessToken: "access-1", RefreshToken: "refresh-1"}))
			second := redisStore(t, mr)

			// The server rotates refresh tokens, so refresh-1 is refused once the first terminal used it.
			rotating := &mockRefresher{pair: auth.Pair{AccessToken: "access-2", RefreshToken: "refresh-2"}}
			refused := &mockRefresher{err: fmt.Errorf("%w: refresh token reused", auth.ErrUnauthorized)}

			require.NoError(t, auth.NewRenewer(first, rotating, time.Second).RenewRejected(context.Background(), "access-1"))
			require.NoError(t, tt.renew(auth.NewRenewer(second, refused, time.Second)))

			assert.Equal(t, 1, rotating.Calls())
			assert.Equal(t, 0, refused.Calls())
			access, ok := second.PeekAccessToken()
			require.True(t, ok)
			assert.Equal(t, "access-2", access)
			refresh, _ := second.PeekRefreshToken()
			assert.Equal(t, "refresh-2", refresh)
			assert.True(t, mr.Exists(db.DefaultRedisKey))
			assert.Equal(t, "access-2", mr.HGet(db.DefaultRedisKey, "access_token"))
		})
	}
}

func TestSharedSession_LoggedOutElsewhere(t *testing.T) {
	mr := miniredis.RunT(t)
	first := redisStore(t, mr)
	require.NoError(t, first.Save(context.Background(), auth.Pair{AccessToken: "access-1", RefreshToken: "refresh-1"}))
	second := redisStore(t, mr)

	require.NoError(t, first.Clear(context.Background()))

	refresher := &mockRefresher{pair: auth.Pair{AccessToken: "access-2", RefreshToken: "refresh-2"}}
	err := auth.NewRenewer(second, refresher, time.Second).RenewRejected(context.Background(), "access-1")

	assert.ErrorIs(t, err, auth.ErrUnauthorized)
	assert.Equal(t, 0, refresher.Calls())
	assert.Equal(t, auth.Unauthenticated, second.State())
}
