package auth

import "context"

// TokenRefresher defines the contract for any component that can exchange a refresh token
// for a new credential pair.
type TokenRefresher interface {
	PerformTokenRefresh(ctx context.Context, refreshToken string) (Pair, error)
}

// Authenticator defines the contract for any component that can log a user in.
type Authenticator interface {
	Login(ctx context.Context, login, password string) (LoginResult, error)
}
