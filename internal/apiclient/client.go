// Package apiclient is the authenticated client of the consult backend.
//
// Every request carries the current access token. A 401 response triggers one refresh of the
// access token through the refresh coordinator, after which the request is replayed exactly once.
// When the credentials cannot be renewed the session is terminated and the caller receives
// apierrors.ErrSessionTerminated.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/lexconsult/consult-client/internal/apierrors"
	"github.com/lexconsult/consult-client/internal/envelope"
	"github.com/lexconsult/consult-client/internal/metrics"
	"github.com/lexconsult/consult-client/internal/models"
)

// CredentialStore is the part of the token store used by the client
type CredentialStore interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	SetCredentials(ctx context.Context, credentials models.Credentials) error
	ClearAccessToken(ctx context.Context) error
	ClearCredentials(ctx context.Context) error
	SetUserInfo(ctx context.Context, userInfo *models.UserInfo) error
	SetUserType(ctx context.Context, userType models.UserType) error
	SetRememberMe(ctx context.Context, rememberMe bool) error
	Logout(ctx context.Context) error
}

// Refresher renews the access token, concurrent callers share a single exchange
type Refresher interface {
	FreshToken(ctx context.Context) (string, error)
}

type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	store       CredentialStore
	refresher   Refresher
	terminator  models.SessionTerminator
	loginRoute  string
	idGenerator models.IDGenerator
	metrics     *metrics.Collectors
}

// BaseURL returns the root of the backend API
func (c *Client) BaseURL() *url.URL {
	return c.baseURL
}

// Send issues the request and returns the unwrapped response payload. Non 2xx responses are
// returned as *StatusError.
func (c *Client) Send(ctx context.Context, method, path string, body any, options ...RequestOption) (envelope.Payload, error) {
	prepared, err := newPreparedRequest(c.baseURL, method, path, body, options...)
	if err != nil {
		return envelope.Payload{}, err
	}
	token := ""
	if !prepared.anonymous {
		token, err = c.store.AccessToken(ctx)
		if err != nil {
			return envelope.Payload{}, err
		}
	}
	return c.send(ctx, prepared, token, false)
}

// Do sends the request and decodes the unwrapped payload into T
func Do[T any](ctx context.Context, c *Client, method, path string, body any, options ...RequestOption) (T, error) {
	var output T
	payload, err := c.Send(ctx, method, path, body, options...)
	if err != nil {
		return output, err
	}
	err = payload.Into(&output)
	return output, err
}

func (c *Client) send(ctx context.Context, prepared *preparedRequest, token string, retried bool) (envelope.Payload, error) {
	status, raw, err := c.do(ctx, prepared, token)
	if err != nil {
		return envelope.Payload{}, err
	}
	if status >= 200 && status < 300 {
		return envelope.Decode(raw), nil
	}
	statusErr := newStatusError(status, raw)
	if status != http.StatusUnauthorized || prepared.anonymous {
		return envelope.Payload{}, statusErr
	}
	return c.handleUnauthorized(ctx, prepared, token, retried, statusErr)
}

func (c *Client) handleUnauthorized(
	ctx context.Context,
	prepared *preparedRequest,
	token string,
	retried bool,
	statusErr *StatusError,
) (envelope.Payload, error) {
	if retried {
		slog.Info("API CLIENT", "message", "replayed request was rejected again", "method", prepared.method, "path", prepared.path)
		err := c.store.ClearCredentials(ctx)
		if err != nil {
			slog.Error("API CLIENT", "message", "clearing the credentials failed", "error", err)
		}
		return envelope.Payload{}, c.terminate(ctx, statusErr)
	}
	refreshToken, err := c.store.RefreshToken(ctx)
	if err != nil {
		return envelope.Payload{}, err
	}
	if refreshToken == "" {
		slog.Info("API CLIENT", "message", "no refresh token available", "method", prepared.method, "path", prepared.path)
		err := c.store.ClearAccessToken(ctx)
		if err != nil {
			slog.Error("API CLIENT", "message", "clearing the access token failed", "error", err)
		}
		return envelope.Payload{}, c.terminate(ctx, statusErr)
	}
	// another request may have renewed the token while this one was in flight
	current, err := c.store.AccessToken(ctx)
	if err != nil {
		return envelope.Payload{}, err
	}
	if current != "" && current != token {
		slog.Debug("API CLIENT", "message", "replaying with the already renewed token", "method", prepared.method, "path", prepared.path)
		c.metrics.RequestReplayed(true)
		return c.send(ctx, prepared, current, true)
	}
	fresh, err := c.refresher.FreshToken(ctx)
	if err != nil {
		if errors.Is(err, apierrors.ErrRefreshFailed) {
			return envelope.Payload{}, fmt.Errorf("%w: %w", apierrors.ErrSessionTerminated, err)
		}
		return envelope.Payload{}, err
	}
	c.metrics.RequestReplayed(false)
	return c.send(ctx, prepared, fresh, true)
}

// terminate ends the session and returns the error the caller receives
func (c *Client) terminate(ctx context.Context, cause error) error {
	c.metrics.SessionTerminated()
	c.terminator.TerminateSession(ctx, c.loginRoute, cause)
	return fmt.Errorf("%w: %w", apierrors.ErrSessionTerminated, cause)
}

func (c *Client) do(ctx context.Context, prepared *preparedRequest, token string) (int, []byte, error) {
	var body io.Reader
	if prepared.body != nil {
		body = bytes.NewReader(prepared.body)
	}
	req, err := http.NewRequestWithContext(ctx, prepared.method, prepared.url.String(), body)
	if err != nil {
		return 0, nil, err
	}
	for key, values := range prepared.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if prepared.contentType != "" {
		req.Header.Set(echo.HeaderContentType, prepared.contentType)
	}
	if req.Header.Get(echo.HeaderAccept) == "" {
		req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	if c.idGenerator != nil && req.Header.Get(echo.HeaderXRequestID) == "" {
		requestID, err := c.idGenerator.ID()
		if err == nil {
			req.Header.Set(echo.HeaderXRequestID, requestID)
		}
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s failed: %w", prepared.method, prepared.path, err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, err
	}
	slog.Debug("API CLIENT", "message", "response received", "method", prepared.method, "path", prepared.path, "status", res.StatusCode)
	return res.StatusCode, raw, nil
}

// RawBody is sent as is, it is used for bodies which are not JSON such as multipart uploads
type RawBody struct {
	ContentType string
	Data        []byte
}

// preparedRequest is a fully materialized request so that a replay sends identical bytes
type preparedRequest struct {
	method      string
	path        string
	url         *url.URL
	header      http.Header
	body        []byte
	contentType string
	anonymous   bool
}

func newPreparedRequest(baseURL *url.URL, method, path string, body any, options ...RequestOption) (*preparedRequest, error) {
	prepared := preparedRequest{method: method, path: path, header: http.Header{}}
	opts := requestOptions{query: url.Values{}, header: http.Header{}}
	for _, opt := range options {
		opt(&opts)
	}
	prepared.url = baseURL.JoinPath(path)
	if len(opts.query) > 0 {
		prepared.url.RawQuery = opts.query.Encode()
	}
	prepared.header = opts.header
	prepared.anonymous = opts.anonymous
	switch b := body.(type) {
	case nil:
	case RawBody:
		prepared.body = b.Data
		prepared.contentType = b.ContentType
	case *RawBody:
		prepared.body = b.Data
		prepared.contentType = b.ContentType
	case json.RawMessage:
		prepared.body = b
		prepared.contentType = echo.MIMEApplicationJSON
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("cannot encode the request body: %w", err)
		}
		prepared.body = raw
		prepared.contentType = echo.MIMEApplicationJSON
	}
	return &prepared, nil
}
