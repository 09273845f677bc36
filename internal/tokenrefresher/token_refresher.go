// Package tokenrefresher renews the access token shortly before it expires so that long
// running processes rarely hit the 401 path.
package tokenrefresher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/lexconsult/consult-client/internal/config"
	"github.com/lexconsult/consult-client/internal/models"
)

type CredentialStore interface {
	Credentials(ctx context.Context) (models.Credentials, error)
}

// Refresher is implemented by the refresh coordinator, a proactive refresh shares the exchange
// with any request that is renewing the token at the same time
type Refresher interface {
	FreshToken(ctx context.Context) (string, error)
}

type TokenRefresher struct {
	ExpiryMargin  time.Duration
	CheckInterval time.Duration

	store     CredentialStore
	refresher Refresher
}

func (tr *TokenRefresher) GetScheduler() (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)

	refreshExpiringTokenTask := func(job gocron.Job) {
		_, err := tr.RefreshIfExpiring(job.Context())
		if err != nil {
			slog.Error("TOKEN REFRESHER", "message", "RefreshIfExpiring failed", "error", err)
		}
	}

	_, err := s.Every(tr.CheckInterval).
		SingletonMode().
		DoWithJobDetails(refreshExpiringTokenTask)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// RefreshIfExpiring renews the access token when it expires within the margin and reports
// whether a refresh happened. Tokens without a readable expiry are left alone.
func (tr *TokenRefresher) RefreshIfExpiring(ctx context.Context) (bool, error) {
	credentials, err := tr.store.Credentials(ctx)
	if err != nil {
		return false, err
	}
	if !credentials.HasAccessToken() || !credentials.HasRefreshToken() {
		return false, nil
	}
	expiresAt, ok := credentials.AccessTokenExpiry()
	if !ok {
		slog.Debug("TOKEN REFRESHER", "message", "the access token has no readable expiry, skipping")
		return false, nil
	}
	if !credentials.ExpiresSoon(tr.ExpiryMargin) {
		return false, nil
	}
	slog.Info("TOKEN REFRESHER", "message", "the access token expires soon, refreshing", "expiresAt", expiresAt.UTC())
	_, err = tr.refresher.FreshToken(ctx)
	if err != nil {
		return false, err
	}
	return true, nil
}

type TokenRefresherOption func(*TokenRefresher) error

func WithRefreshConfig(refreshConfig config.RefreshConfig) TokenRefresherOption {
	return func(tr *TokenRefresher) error {
		tr.ExpiryMargin = refreshConfig.ExpiryMargin()
		tr.CheckInterval = refreshConfig.CheckInterval()
		return nil
	}
}

func WithCredentialStore(store CredentialStore) TokenRefresherOption {
	return func(tr *TokenRefresher) error {
		tr.store = store
		return nil
	}
}

func WithRefresher(refresher Refresher) TokenRefresherOption {
	return func(tr *TokenRefresher) error {
		tr.refresher = refresher
		return nil
	}
}

// NewTokenRefresher creates a new TokenRefresher that refreshes the access token when it is about to expire.
func NewTokenRefresher(options ...TokenRefresherOption) (*TokenRefresher, error) {
	tr := TokenRefresher{}
	for _, opt := range options {
		err := opt(&tr)
		if err != nil {
			return &TokenRefresher{}, err
		}
	}
	if tr.ExpiryMargin <= 0 {
		return &TokenRefresher{}, fmt.Errorf("invalid value for ExpiryMargin (%s)", tr.ExpiryMargin)
	}
	if tr.CheckInterval <= 0 {
		return &TokenRefresher{}, fmt.Errorf("invalid value for CheckInterval (%s)", tr.CheckInterval)
	}
	if tr.store == nil {
		return &TokenRefresher{}, fmt.Errorf("credential store not initialized")
	}
	if tr.refresher == nil {
		return &TokenRefresher{}, fmt.Errorf("refresher not initialized")
	}
	return &tr, nil
}
