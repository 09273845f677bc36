// Package relay exposes the authenticated consult client over a local HTTP server.
//
// Local tools talk to the relay without handling tokens themselves: the relay keeps the
// session, renews the access token and turns the streaming consult into server sent events.
package relay

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/lexconsult/consult-client/internal/apiclient"
	"github.com/lexconsult/consult-client/internal/models"
	"github.com/lexconsult/consult-client/internal/stream"
)

// SessionStore is the part of the token store the relay reports on
type SessionStore interface {
	Credentials(ctx context.Context) (models.Credentials, error)
	IsLoggedIn(ctx context.Context) (bool, error)
	UserInfo(ctx context.Context) (*models.UserInfo, error)
	UserType(ctx context.Context) (models.UserType, error)
	RememberMe(ctx context.Context) (bool, error)
}

type Relay struct {
	client     *apiclient.Client
	consumer   *stream.Consumer
	sessions   SessionStore
	loginRoute string
}

func (r *Relay) RegisterHandlers(e *echo.Echo, commonMiddlewares ...echo.MiddlewareFunc) {
	session := e.Group("/session", commonMiddlewares...)
	session.GET("", r.getSession)
	session.POST("/login", r.login)
	session.POST("/logout", r.logout)

	chat := e.Group("/chat", commonMiddlewares...)
	chat.POST("/stream", r.chatStream)

	api := e.Group("/api", append(commonMiddlewares, noCookies, stripPrefix("/api"))...)
	api.Any("/*", r.passThrough)
}

type RelayOption func(*Relay)

func WithClient(client *apiclient.Client) RelayOption {
	return func(r *Relay) {
		r.client = client
	}
}

func WithStreamConsumer(consumer *stream.Consumer) RelayOption {
	return func(r *Relay) {
		r.consumer = consumer
	}
}

func WithSessionStore(sessions SessionStore) RelayOption {
	return func(r *Relay) {
		r.sessions = sessions
	}
}

func WithLoginRoute(route string) RelayOption {
	return func(r *Relay) {
		r.loginRoute = route
	}
}

func NewServer(options ...RelayOption) (*Relay, error) {
	server := Relay{loginRoute: "/login-before"}
	for _, opt := range options {
		opt(&server)
	}
	if server.client == nil {
		return &Relay{}, fmt.Errorf("api client not initialized")
	}
	if server.consumer == nil {
		return &Relay{}, fmt.Errorf("stream consumer not initialized")
	}
	if server.sessions == nil {
		return &Relay{}, fmt.Errorf("session store not initialized")
	}
	return &server, nil
}
