package models

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Credentials is the access and refresh token pair used to authenticate against the backend
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

func (c Credentials) HasAccessToken() bool {
	return c.AccessToken != ""
}

func (c Credentials) HasRefreshToken() bool {
	return c.RefreshToken != ""
}

// AccessTokenExpiry reads the exp claim of the access token. The signature is not verified,
// the backend is the only party that validates tokens. Opaque tokens report no expiry.
func (c Credentials) AccessTokenExpiry() (time.Time, bool) {
	if c.AccessToken == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(c.AccessToken, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func (c Credentials) Expired() bool {
	expiresAt, ok := c.AccessTokenExpiry()
	if !ok {
		return false
	}
	return time.Now().UTC().After(expiresAt)
}

func (c Credentials) ExpiresSoon(margin time.Duration) bool {
	expiresAt, ok := c.AccessTokenExpiry()
	if !ok {
		return false
	}
	return time.Now().UTC().Add(margin).After(expiresAt)
}

// String implements the Stringer interface for printing the credentials in logs
func (c Credentials) String() string {
	expiry := "unknown"
	if expiresAt, ok := c.AccessTokenExpiry(); ok {
		expiry = expiresAt.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf(
		"Credentials<AccessToken: %s, RefreshToken: %s, ExpiresAt: %s>",
		redact(c.AccessToken),
		redact(c.RefreshToken),
		expiry,
	)
}

func redact(value string) string {
	if value == "" {
		return "none"
	}
	return "redacted"
}

// RefreshResponse is the payload returned by the refresh token exchange.
// The backend may omit the refresh token, in that case the old one remains valid.
type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}
