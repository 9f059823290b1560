package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/habedi/storekeeper/auth"
	"github.com/habedi/storekeeper/client"
	"github.com/habedi/storekeeper/config"
	"github.com/habedi/storekeeper/db"
	"github.com/habedi/storekeeper/pkg/clierr"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// app holds what the subcommands share. Commands call open before using it, so commands that need
// neither the database nor the configuration (version, help) run without them.
type app struct {
	cfg      config.Config
	svc      *auth.Service
	api      *client.Client
	products db.ProductRepository

	rdb    redis.UniversalClient
	opened bool
}

// open loads the configuration and wires storage, the session and the API client. It is a no-op
// once the app is ready, which also lets tests hand commands a pre-built app.
func (a *app) open(ctx context.Context) error {
	if a.svc != nil {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return clierr.New(clierr.Validation, fmt.Sprintf("Invalid configuration: %v", err), err)
	}
	a.cfg = cfg

	if err := db.InitDB(); err != nil {
		return clierr.New(clierr.Internal, "Failed to initialize the local database.", err)
	}
	a.opened = true

	tokens, err := a.tokenRepository(ctx)
	if err != nil {
		return err
	}

	store := auth.NewStore(tokens, auth.WithTTL(cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL))
	if err := store.Load(ctx); err != nil {
		return clierr.New(clierr.Internal, "Failed to load the stored session.", err)
	}

	hc := &http.Client{Timeout: cfg.API.Timeout}
	baseURL := cfg.API.BaseURL.String()
	authAPI := client.NewAuthAPI(baseURL, hc)

	a.svc = auth.NewService(store, authAPI,
		auth.WithAuthenticator(authAPI),
		auth.WithProfiles(db.NewProfileRepository(db.GetDB())),
		auth.WithRenewalTimeout(cfg.Auth.RenewalTimeout),
	)
	a.api = client.New(baseURL, a.svc, client.WithHTTPClient(hc), client.WithUserAgent(cfg.API.UserAgent))
	a.products = db.NewProductRepository(db.GetDB())

	log.Debug().Str("base_url", baseURL).Str("backend", cfg.Storage.Backend).Msg("Client ready")
	return nil
}

// tokenRepository picks the credential backend from storage.backend.
func (a *app) tokenRepository(ctx context.Context) (db.TokenRepository, error) {
	if a.cfg.Storage.Backend != config.BackendRedis {
		return db.NewTokenRepository(db.GetDB()), nil
	}

	rc := a.cfg.Storage.Redis
	a.rdb = redis.NewClient(&redis.Options{
		Addr:     rc.Address,
		Password: rc.Password.Value(),
		DB:       rc.DBIndex,
	})
	if err := a.rdb.Ping(ctx).Err(); err != nil {
		return nil, clierr.New(clierr.Network, fmt.Sprintf("Cannot reach Redis at %s.", rc.Address), err)
	}
	key := rc.Key
	if key == "" {
		key = db.DefaultRedisKey
	}
	return db.NewRedisTokenRepository(a.rdb, key), nil
}

// close releases whatever open acquired.
func (a *app) close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close the Redis connection.")
		}
	}
	if a.opened {
		if err := db.CloseDB(); err != nil {
			log.Error().Err(err).Msg("Failed to close the database.")
		}
	}
}
