package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lexconsult/consult-client/internal/app"
	"github.com/lexconsult/consult-client/internal/config"
	"github.com/lexconsult/consult-client/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBackend(t *testing.T) *url.URL {
	e := echo.New()
	authorized := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) != "Bearer a1" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "token expired"})
			}
			return next(c)
		}
	}
	e.POST("/api/user/login", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"code": 200,
			"data": map[string]any{
				"accessToken":  "a1",
				"refreshToken": "r1",
				"userInfo":     map[string]any{"id": "7", "username": "sam"},
			},
		})
	})
	e.POST("/api/user/refresh-token", func(c echo.Context) error {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "refresh token expired"})
	})
	e.GET("/api/knowledgebs/topic", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"code": 200, "data": []string{"labour", c.QueryParam("region")}})
	}, authorized)
	e.POST("/api/chat/consult/stream", func(c echo.Context) error {
		var req models.ChatConsultRequest
		err := c.Bind(&req)
		if err != nil {
			return err
		}
		if req.Question == "fail" {
			return c.String(http.StatusInternalServerError, "internal error")
		}
		res := c.Response()
		res.Header().Set(echo.HeaderContentType, "text/event-stream")
		res.WriteHeader(http.StatusOK)
		_, err = res.Write([]byte("data: {\"answer\":\"he\"}\n\ndata: llo\n\ndata: [DONE]\n\n"))
		return err
	}, authorized)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	baseURL, err := url.Parse(srv.URL + "/api")
	require.NoError(t, err)
	return baseURL
}

func setupRelay(t *testing.T) (*echo.Echo, *app.App) {
	baseURL := setupBackend(t)
	c := config.Config{
		RunningEnvironment: config.Development,
		API:                config.APIConfig{BaseURL: baseURL, TimeoutSeconds: 5, LoginRoute: "/login-before"},
		Refresh: config.RefreshConfig{
			Method:          http.MethodPost,
			Path:            "/user/refresh-token",
			TokenPlacement:  config.TokenInQuery,
			ParamName:       "refreshToken",
			SendAccessToken: true,
		},
		Stream:  config.StreamConfig{Path: "/chat/consult/stream", TimeoutSeconds: 5},
		Storage: config.StorageConfig{Type: config.StorageTypeMemory},
	}
	a, err := app.New(context.Background(), c)
	require.NoError(t, err)
	server, err := NewServer(
		WithClient(a.Client),
		WithStreamConsumer(a.Stream),
		WithSessionStore(a.Store),
		WithLoginRoute(c.API.LoginRoute),
	)
	require.NoError(t, err)
	e := echo.New()
	e.Pre(middleware.RequestID())
	server.RegisterHandlers(e)
	return e, a
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLoginSessionAndLogout(t *testing.T) {
	e, _ := setupRelay(t)

	rec := serve(e, http.MethodPost, "/session/login", `{"phone":"13800000000","password":"secret","userType":"2","rememberMe":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"sam"`)

	rec = serve(e, http.MethodGet, "/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var state sessionState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.True(t, state.LoggedIn)
	assert.True(t, state.RememberMe)
	assert.Equal(t, models.EnterpriseUser, state.UserType)
	require.NotNil(t, state.UserInfo)
	assert.Equal(t, "sam", state.UserInfo.Username)
	assert.Nil(t, state.AccessTokenExpiresAt)

	rec = serve(e, http.MethodPost, "/session/logout", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = serve(e, http.MethodGet, "/session", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.False(t, state.LoggedIn)
}

func TestLoginNeedsCredentials(t *testing.T) {
	e, _ := setupRelay(t)

	rec := serve(e, http.MethodPost, "/session/login", `{"phone":"13800000000"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPassThroughReturnsThePayload(t *testing.T) {
	e, a := setupRelay(t)
	require.NoError(t, a.Store.SetCredentials(context.Background(), models.Credentials{AccessToken: "a1", RefreshToken: "r1"}))

	rec := serve(e, http.MethodGet, "/api/knowledgebs/topic?region=zurich", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["labour","zurich"]`, rec.Body.String())
}

func TestPassThroughKeepsTheBackendStatus(t *testing.T) {
	e, a := setupRelay(t)
	require.NoError(t, a.Store.SetCredentials(context.Background(), models.Credentials{AccessToken: "a1", RefreshToken: "r1"}))

	rec := serve(e, http.MethodGet, "/api/does/not/exist", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTerminatedSessionRedirectsToLogin(t *testing.T) {
	e, a := setupRelay(t)
	require.NoError(t, a.Store.SetCredentials(context.Background(), models.Credentials{AccessToken: "expired", RefreshToken: "r1"}))

	rec := serve(e, http.MethodGet, "/api/knowledgebs/topic", "")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var res errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "/login-before", res.Redirect)
	assert.Equal(t, "/login-before", a.Redirector.LastRoute())
	loggedIn, err := a.Store.IsLoggedIn(context.Background())
	require.NoError(t, err)
	assert.False(t, loggedIn)
}

func TestChatStreamRelaysChunks(t *testing.T) {
	e, a := setupRelay(t)
	require.NoError(t, a.Store.SetCredentials(context.Background(), models.Credentials{AccessToken: "a1", RefreshToken: "r1"}))

	rec := serve(e, http.MethodPost, "/chat/stream", `{"question":"hello?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "data: {\"content\":\"he\"}\n\ndata: {\"content\":\"llo\"}\n\ndata: [DONE]\n\n", rec.Body.String())
}

func TestChatStreamReportsErrors(t *testing.T) {
	e, a := setupRelay(t)
	require.NoError(t, a.Store.SetCredentials(context.Background(), models.Credentials{AccessToken: "a1", RefreshToken: "r1"}))

	rec := serve(e, http.MethodPost, "/chat/stream", `{"question":"fail"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "event: error\ndata: {\"message\":\"request failed with status 500\"}\n\n", rec.Body.String())
}

func TestChatStreamNeedsAQuestion(t *testing.T) {
	e, _ := setupRelay(t)

	rec := serve(e, http.MethodPost, "/chat/stream", `{"question":"  "}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNewServerValidates(t *testing.T) {
	_, err := NewServer()
	assert.Error(t, err)
}
