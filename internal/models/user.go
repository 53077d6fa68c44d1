package models

import (
	"fmt"
	"strings"
	"time"
)

// User represents an account that can link a Spotify account and run syncs.
//
// During a sync operation the owning Spotify session has exclusive ownership of
// the linked account's token fields; callers must not mutate them concurrently.
type User struct {
	ID           string
	Sequence     int
	Email        string
	Name         string
	SpotifyState string // transient OAuth state token, empty outside a connect flow

	SpotifyAccount *SpotifyAccount

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks that the user record carries the required fields.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("user email is required")
	}
	if !strings.Contains(u.Email, "@") {
		return fmt.Errorf("invalid user email: %s", u.Email)
	}
	return nil
}

// HasSpotifyAccount reports whether the user is connected to Spotify.
func (u *User) HasSpotifyAccount() bool {
	return u.SpotifyAccount != nil
}

// TokenState returns the linked account's credential as a [TokenState].
// Only meaningful when [User.HasSpotifyAccount] is true.
func (u *User) TokenState() TokenState {
	if u.SpotifyAccount == nil {
		return TokenState{}
	}
	return u.SpotifyAccount.TokenState()
}

// SpotifyAccount holds the persisted OAuth token fields for a linked Spotify account.
type SpotifyAccount struct {
	ID             string
	UserID         string
	TokenType      string
	TokenAccess    string
	TokenRefresh   string
	TokenExpiresAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TokenState converts the stored token fields into a [TokenState] value.
func (a *SpotifyAccount) TokenState() TokenState {
	return TokenState{
		TokenType:    a.TokenType,
		AccessToken:  a.TokenAccess,
		RefreshToken: a.TokenRefresh,
		ExpiresAt:    a.TokenExpiresAt,
	}
}

// ApplyTokenState copies a refreshed credential into the account's token fields.
func (a *SpotifyAccount) ApplyTokenState(ts TokenState) {
	a.TokenType = ts.TokenType
	a.TokenAccess = ts.AccessToken
	a.TokenRefresh = ts.RefreshToken
	a.TokenExpiresAt = ts.ExpiresAt
}
