package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lexconsult/consult-client/internal/apiclient"
	"github.com/lexconsult/consult-client/internal/apierrors"
	"github.com/lexconsult/consult-client/internal/models"
	"github.com/lexconsult/consult-client/internal/stream"
	"github.com/lexconsult/consult-client/internal/utils"
)

type sessionState struct {
	LoggedIn             bool             `json:"loggedIn"`
	UserInfo             *models.UserInfo `json:"userInfo,omitempty"`
	UserType             models.UserType  `json:"userType"`
	RememberMe           bool             `json:"rememberMe"`
	AccessTokenExpiresAt *time.Time       `json:"accessTokenExpiresAt,omitempty"`
}

type errorResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

func (r *Relay) getSession(c echo.Context) error {
	ctx := c.Request().Context()
	loggedIn, err := r.sessions.IsLoggedIn(ctx)
	if err != nil {
		return err
	}
	state := sessionState{LoggedIn: loggedIn}
	state.UserInfo, err = r.sessions.UserInfo(ctx)
	if err != nil {
		return err
	}
	state.UserType, err = r.sessions.UserType(ctx)
	if err != nil {
		return err
	}
	state.RememberMe, err = r.sessions.RememberMe(ctx)
	if err != nil {
		return err
	}
	credentials, err := r.sessions.Credentials(ctx)
	if err != nil {
		return err
	}
	if expiresAt, ok := credentials.AccessTokenExpiry(); ok {
		expiresAt = expiresAt.UTC()
		state.AccessTokenExpiresAt = &expiresAt
	}
	return c.JSON(http.StatusOK, state)
}

func (r *Relay) login(c echo.Context) error {
	var req models.LoginRequest
	err := c.Bind(&req)
	if err != nil {
		return err
	}
	if req.Phone == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "phone and password are required"})
	}
	res, err := r.client.Login(c.Request().Context(), req)
	if err != nil {
		return r.respondError(c, err)
	}
	return c.JSON(http.StatusOK, res.UserInfo)
}

func (r *Relay) logout(c echo.Context) error {
	err := r.client.Logout(c.Request().Context())
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// passThrough forwards the request to the backend with the session credentials and answers
// with the unwrapped payload
func (r *Relay) passThrough(c echo.Context) error {
	req := c.Request()
	var body any
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	if len(raw) > 0 {
		contentType := req.Header.Get(echo.HeaderContentType)
		if contentType == "" || strings.HasPrefix(contentType, echo.MIMEApplicationJSON) {
			if !json.Valid(raw) {
				return c.JSON(http.StatusBadRequest, errorResponse{Message: "the request body is not valid JSON"})
			}
			body = json.RawMessage(raw)
		} else {
			body = apiclient.RawBody{ContentType: contentType, Data: raw}
		}
	}
	slog.Debug("RELAY", "message", "forwarding request", "method", req.Method, "path", req.URL.Path, "requestID", utils.GetRequestID(c))
	payload, err := r.client.Send(
		req.Context(),
		req.Method,
		req.URL.Path,
		body,
		apiclient.WithQueryValues(req.URL.Query()),
		apiclient.WithHeader(echo.HeaderXRequestID, utils.GetRequestID(c)),
	)
	if err != nil {
		return r.respondError(c, err)
	}
	data, err := payload.MarshalJSON()
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, data)
}

// chatStream relays the streaming consult as server sent events. Every chunk is sent as
// data: {"content": ...}, the end as data: [DONE] and a failure as an error event.
func (r *Relay) chatStream(c echo.Context) error {
	var req models.ChatConsultRequest
	err := c.Bind(&req)
	if err != nil {
		return err
	}
	if strings.TrimSpace(req.Question) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "the question cannot be empty"})
	}
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	var writeErr error
	write := func(event string, payload any) {
		if writeErr != nil {
			return
		}
		writeErr = writeEvent(res, event, payload)
	}
	_ = r.consumer.Consume(c.Request().Context(), req, stream.Handler{
		OnChunk: func(chunk string) {
			write("", map[string]string{"content": chunk})
		},
		OnError: func(err error) {
			response := errorResponse{Message: err.Error()}
			if errors.Is(err, apierrors.ErrSessionTerminated) {
				response.Redirect = r.loginRoute
			}
			write("error", response)
		},
		OnComplete: func() {
			write("", nil)
		},
	})
	if writeErr != nil {
		slog.Info("RELAY", "message", "the stream client went away", "error", writeErr, "requestID", utils.GetRequestID(c))
	}
	return nil
}

// writeEvent writes one event, a nil payload writes the [DONE] sentinel
func writeEvent(res *echo.Response, event string, payload any) error {
	var sb strings.Builder
	if event != "" {
		sb.WriteString("event: " + event + "\n")
	}
	if payload == nil {
		sb.WriteString("data: [DONE]\n\n")
	} else {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		sb.WriteString(fmt.Sprintf("data: %s\n\n", data))
	}
	_, err := res.Write([]byte(sb.String()))
	if err != nil {
		return err
	}
	res.Flush()
	return nil
}

// respondError maps the client errors to relay responses
func (r *Relay) respondError(c echo.Context, err error) error {
	var statusErr *apiclient.StatusError
	switch {
	case errors.Is(err, apierrors.ErrSessionTerminated):
		return c.JSON(http.StatusUnauthorized, errorResponse{Message: err.Error(), Redirect: r.loginRoute})
	case errors.Is(err, apierrors.ErrInvalidArgument):
		return c.JSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
	case errors.As(err, &statusErr):
		message := statusErr.Message
		if message == "" {
			message = http.StatusText(statusErr.StatusCode)
		}
		return c.JSON(statusErr.StatusCode, errorResponse{Message: message})
	default:
		slog.Error(
			"RELAY",
			"message", "the backend request failed",
			"error", err,
			"requestID", utils.GetRequestID(c),
			"traceID", utils.GetTraceID(c),
		)
		return c.JSON(http.StatusBadGateway, errorResponse{Message: err.Error()})
	}
}
