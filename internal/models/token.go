package models

import (
	"fmt"
	"time"
)

// TokenState represents an OAuth bearer credential with expiration tracking.
//
// A TokenState is computed from provider token responses and is read-only afterward;
// each refresh produces a new value rather than mutating the old one.
type TokenState struct {
	TokenType    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// NewTokenState constructs a TokenState from an absolute expiry.
func NewTokenState(tokenType, accessToken, refreshToken string, expiresAt time.Time) (TokenState, error) {
	if expiresAt.IsZero() {
		return TokenState{}, fmt.Errorf("token state requires an expiry")
	}

	return TokenState{
		TokenType:    tokenType,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// NewTokenStateFromExpiresIn derives the absolute expiry from a relative lifetime
// in seconds, anchored at the current time.
func NewTokenStateFromExpiresIn(tokenType, accessToken, refreshToken string, expiresIn int) (TokenState, error) {
	if expiresIn <= 0 {
		return TokenState{}, fmt.Errorf("token state requires a positive expires_in, got %d", expiresIn)
	}

	return TokenState{
		TokenType:    tokenType,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

// IsExpired reports whether the token is expired or will expire within the given buffer.
func (t TokenState) IsExpired(buffer time.Duration) bool {
	return !time.Now().Before(t.ExpiresAt.Add(-buffer))
}

// AuthorizationHeader formats the credential for the Authorization request header.
func (t TokenState) AuthorizationHeader() string {
	return fmt.Sprintf("%s %s", t.TokenType, t.AccessToken)
}
