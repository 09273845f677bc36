// Package refresh renews the access token with the refresh token so that at most one
// exchange is in flight at any time, no matter how many requests fail with a 401 at once.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lexconsult/consult-client/internal/apierrors"
	"github.com/lexconsult/consult-client/internal/metrics"
	"github.com/lexconsult/consult-client/internal/models"
)

// CredentialStore is the part of the token store used by the coordinator
type CredentialStore interface {
	Credentials(ctx context.Context) (models.Credentials, error)
	SetAccessToken(ctx context.Context, token string) error
	SetRefreshToken(ctx context.Context, token string) error
	ClearCredentials(ctx context.Context) error
}

// Exchanger trades the refresh token for a new access token
type Exchanger interface {
	Exchange(ctx context.Context, credentials models.Credentials) (models.RefreshResponse, error)
}

type outcome struct {
	token string
	err   error
}

// pendingRequest is a request waiting for the exchange that is already in flight
type pendingRequest struct {
	result chan outcome
}

type Coordinator struct {
	store      CredentialStore
	exchanger  Exchanger
	terminator models.SessionTerminator
	loginRoute string
	metrics    *metrics.Collectors

	lock       sync.Mutex
	refreshing bool
	queue      []*pendingRequest
}

// FreshToken returns a renewed access token. The first caller performs the exchange, callers
// arriving while it is in flight are queued and receive the same outcome in arrival order.
func (c *Coordinator) FreshToken(ctx context.Context) (string, error) {
	c.lock.Lock()
	if c.refreshing {
		pending := &pendingRequest{result: make(chan outcome, 1)}
		c.queue = append(c.queue, pending)
		c.lock.Unlock()
		slog.Debug("REFRESH COORDINATOR", "message", "waiting for the refresh in flight")
		select {
		case res := <-pending.result:
			return res.token, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	c.refreshing = true
	c.lock.Unlock()
	return c.lead(ctx)
}

func (c *Coordinator) lead(ctx context.Context) (token string, err error) {
	defer func() {
		c.lock.Lock()
		queue := c.queue
		c.queue = nil
		c.refreshing = false
		c.lock.Unlock()
		// the queue is drained in arrival order and then discarded
		for _, pending := range queue {
			pending.result <- outcome{token: token, err: err}
		}
	}()

	// the outcome is shared with the queued requests, so the exchange is not aborted when only
	// the leading request goes away
	token, err = c.exchange(context.WithoutCancel(ctx))
	if err != nil {
		c.metrics.RefreshFinished(metrics.OutcomeFailure)
		slog.Error("REFRESH COORDINATOR", "message", "refreshing the access token failed", "error", err)
		clearErr := c.store.ClearCredentials(context.WithoutCancel(ctx))
		if clearErr != nil {
			slog.Error("REFRESH COORDINATOR", "message", "clearing the credentials failed", "error", clearErr)
		}
		c.metrics.SessionTerminated()
		c.terminator.TerminateSession(ctx, c.loginRoute, err)
		return "", fmt.Errorf("%w: %w", apierrors.ErrRefreshFailed, err)
	}
	c.metrics.RefreshFinished(metrics.OutcomeSuccess)
	slog.Debug("REFRESH COORDINATOR", "message", "access token refreshed")
	return token, nil
}

func (c *Coordinator) exchange(ctx context.Context) (string, error) {
	credentials, err := c.store.Credentials(ctx)
	if err != nil {
		return "", err
	}
	if !credentials.HasRefreshToken() {
		return "", apierrors.ErrMissingRefreshToken
	}
	res, err := c.exchanger.Exchange(ctx, credentials)
	if err != nil {
		return "", err
	}
	if res.AccessToken == "" {
		return "", fmt.Errorf("the refresh response does not contain an access token")
	}
	err = c.store.SetAccessToken(ctx, res.AccessToken)
	if err != nil {
		return "", err
	}
	// the previous refresh token stays valid when the backend does not rotate it
	if res.RefreshToken != "" {
		err = c.store.SetRefreshToken(ctx, res.RefreshToken)
		if err != nil {
			return "", err
		}
	}
	return res.AccessToken, nil
}

type CoordinatorOption func(*Coordinator) error

func WithCredentialStore(store CredentialStore) CoordinatorOption {
	return func(c *Coordinator) error {
		c.store = store
		return nil
	}
}

func WithExchanger(exchanger Exchanger) CoordinatorOption {
	return func(c *Coordinator) error {
		c.exchanger = exchanger
		return nil
	}
}

func WithSessionTerminator(terminator models.SessionTerminator, loginRoute string) CoordinatorOption {
	return func(c *Coordinator) error {
		c.terminator = terminator
		c.loginRoute = loginRoute
		return nil
	}
}

func WithMetrics(collectors *metrics.Collectors) CoordinatorOption {
	return func(c *Coordinator) error {
		c.metrics = collectors
		return nil
	}
}

func NewCoordinator(options ...CoordinatorOption) (*Coordinator, error) {
	c := Coordinator{}
	for _, opt := range options {
		err := opt(&c)
		if err != nil {
			return &Coordinator{}, err
		}
	}
	if c.store == nil {
		return &Coordinator{}, fmt.Errorf("credential store not initialized")
	}
	if c.exchanger == nil {
		return &Coordinator{}, fmt.Errorf("refresh exchanger not initialized")
	}
	if c.terminator == nil {
		return &Coordinator{}, fmt.Errorf("session terminator not initialized")
	}
	return &c, nil
}
