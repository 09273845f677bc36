// Package app assembles the token store, the refresh machinery and the clients from the configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lexconsult/consult-client/internal/apiclient"
	"github.com/lexconsult/consult-client/internal/config"
	"github.com/lexconsult/consult-client/internal/db"
	"github.com/lexconsult/consult-client/internal/metrics"
	"github.com/lexconsult/consult-client/internal/models"
	"github.com/lexconsult/consult-client/internal/refresh"
	"github.com/lexconsult/consult-client/internal/stream"
	"github.com/lexconsult/consult-client/internal/tokenrefresher"
	"github.com/lexconsult/consult-client/internal/tokenstore"
	"github.com/prometheus/client_golang/prometheus"
)

type App struct {
	Config      config.Config
	Store       *tokenstore.TokenStore
	Coordinator *refresh.Coordinator
	Client      *apiclient.Client
	Stream      *stream.Consumer
	Redirector  *apiclient.LoginRedirector
	Metrics     *metrics.Collectors
	// Refresher is nil when proactive refreshing is disabled
	Refresher *tokenrefresher.TokenRefresher

	sessionRepo  models.StateRepository
	registerer   prometheus.Registerer
	redirectHook func(ctx context.Context, route string)
}

type AppOption func(*App) error

// WithSessionRepository sets where the per session marker is kept, it defaults to process memory
func WithSessionRepository(repo models.StateRepository) AppOption {
	return func(a *App) error {
		a.sessionRepo = repo
		return nil
	}
}

func WithRegisterer(reg prometheus.Registerer) AppOption {
	return func(a *App) error {
		a.registerer = reg
		return nil
	}
}

func WithRedirectHook(hook func(ctx context.Context, route string)) AppOption {
	return func(a *App) error {
		a.redirectHook = hook
		return nil
	}
}

// New wires all components and starts the session of the token store
func New(ctx context.Context, c config.Config, options ...AppOption) (*App, error) {
	a := App{Config: c}
	for _, opt := range options {
		err := opt(&a)
		if err != nil {
			return nil, err
		}
	}
	if a.sessionRepo == nil {
		a.sessionRepo = db.NewMemoryAdapter()
	}
	if a.registerer != nil {
		collectors, err := metrics.NewCollectors(a.registerer)
		if err != nil {
			return nil, err
		}
		a.Metrics = collectors
	}
	stateRepo, err := db.NewStateRepository(c.Storage)
	if err != nil {
		return nil, fmt.Errorf("state repository initialization failed: %w", err)
	}
	a.Store, err = tokenstore.NewTokenStore(
		tokenstore.WithStateRepository(stateRepo),
		tokenstore.WithSessionRepository(a.sessionRepo),
	)
	if err != nil {
		return nil, err
	}
	err = a.Store.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("token store initialization failed: %w", err)
	}
	a.Redirector = &apiclient.LoginRedirector{OnRedirect: a.redirectHook}
	exchanger, err := refresh.NewHTTPExchanger(refresh.WithAPIConfig(c.API), refresh.WithRefreshConfig(c.Refresh))
	if err != nil {
		return nil, err
	}
	a.Coordinator, err = refresh.NewCoordinator(
		refresh.WithCredentialStore(a.Store),
		refresh.WithExchanger(exchanger),
		refresh.WithSessionTerminator(a.Redirector, c.API.LoginRoute),
		refresh.WithMetrics(a.Metrics),
	)
	if err != nil {
		return nil, err
	}
	a.Client, err = apiclient.NewClient(
		apiclient.WithAPIConfig(c.API),
		apiclient.WithCredentialStore(a.Store),
		apiclient.WithRefresher(a.Coordinator),
		apiclient.WithSessionTerminator(a.Redirector),
		apiclient.WithMetrics(a.Metrics),
	)
	if err != nil {
		return nil, err
	}
	a.Stream, err = stream.NewConsumer(
		stream.WithAPIConfig(c.API),
		stream.WithStreamConfig(c.Stream),
		stream.WithTokenSource(a.Store),
		stream.WithMetrics(a.Metrics),
	)
	if err != nil {
		return nil, err
	}
	if c.Refresh.Proactive {
		a.Refresher, err = tokenrefresher.NewTokenRefresher(
			tokenrefresher.WithRefreshConfig(c.Refresh),
			tokenrefresher.WithCredentialStore(a.Store),
			tokenrefresher.WithRefresher(a.Coordinator),
		)
		if err != nil {
			return nil, err
		}
	}
	slog.Debug("APP", "message", "components initialized", "storage", c.Storage.Type, "proactiveRefresh", c.Refresh.Proactive)
	return &a, nil
}
