package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/habedi/storekeeper/auth"
	"github.com/habedi/storekeeper/db"
	"github.com/rs/zerolog/log"
)

// AuthAPI talks to the unauthenticated endpoints. It never attaches credentials and never renews,
// so a failing refresh call cannot recurse into another renewal.
type AuthAPI struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewAuthAPI creates an AuthAPI. A nil http.Client selects one with DefaultTimeout.
func NewAuthAPI(baseURL string, hc *http.Client) *AuthAPI {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &AuthAPI{BaseURL: strings.TrimRight(baseURL, "/"), HTTPClient: hc}
}

type tokenResponse struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	User         json.RawMessage `json:"user"`
}

// Login posts the login and password and returns the new pair and the user profile, if any.
func (a *AuthAPI) Login(ctx context.Context, login, password string) (auth.LoginResult, error) {
	var tr tokenResponse
	if err := a.post(ctx, "/auth/login", map[string]string{"login": login, "password": password}, &tr); err != nil {
		return auth.LoginResult{}, err
	}
	return auth.LoginResult{
		Pair:    auth.Pair{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken},
		Profile: profileFromJSON(login, tr.User),
	}, nil
}

// PerformTokenRefresh exchanges a refresh token for a new pair.
// Server errors map to auth.ErrRenewalUnavailable; everything else that fails maps to auth.ErrUnauthorized.
func (a *AuthAPI) PerformTokenRefresh(ctx context.Context, refreshToken string) (auth.Pair, error) {
	var tr tokenResponse
	if err := a.post(ctx, "/auth/login/access-token", map[string]string{"refreshToken": refreshToken}, &tr); err != nil {
		return auth.Pair{}, err
	}
	return auth.Pair{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken}, nil
}

func (a *AuthAPI) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := doRequest(a.HTTPClient, req)
	if err != nil {
		return classifyAuthError(err)
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to parse token response")
		return fmt.Errorf("%w: malformed token response: %v", auth.ErrRenewalUnavailable, err)
	}
	return nil
}

// classifyAuthError maps a failed call to the auth endpoints onto the auth error taxonomy.
func classifyAuthError(err error) error {
	var he *HTTPError
	if errors.As(err, &he) && he.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %v", auth.ErrRenewalUnavailable, err)
	}
	return fmt.Errorf("%w: %w", auth.ErrUnauthorized, err)
}

func profileFromJSON(login string, raw json.RawMessage) *db.Profile {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var u struct {
		Login string `json:"login"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(raw, &u); err != nil {
		log.Warn().Err(err).Msg("Login response carried an unreadable user object")
		return nil
	}
	if u.Login == "" {
		u.Login = login
	}
	return &db.Profile{Login: u.Login, Name: u.Name, Data: string(raw)}
}
