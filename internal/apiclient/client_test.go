package apiclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lexconsult/consult-client/internal/apierrors"
	"github.com/lexconsult/consult-client/internal/config"
	"github.com/lexconsult/consult-client/internal/db"
	"github.com/lexconsult/consult-client/internal/models"
	"github.com/lexconsult/consult-client/internal/refresh"
	"github.com/lexconsult/consult-client/internal/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type testBackend struct {
	lock           sync.Mutex
	validToken     string
	refreshedToken string
	refreshStatus  int
	releaseRefresh chan struct{}
	onUnauthorized func()

	refreshCalls atomic.Int32
	unauthorized atomic.Int32
	calls        atomic.Int32
	headers      []http.Header
}

func (b *testBackend) token() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.validToken
}

func (b *testBackend) lastHeader() http.Header {
	b.lock.Lock()
	defer b.lock.Unlock()
	if len(b.headers) == 0 {
		return nil
	}
	return b.headers[len(b.headers)-1]
}

func (b *testBackend) protected(handler echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		b.calls.Add(1)
		b.lock.Lock()
		b.headers = append(b.headers, c.Request().Header.Clone())
		b.lock.Unlock()
		if c.Request().Header.Get(echo.HeaderAuthorization) != "Bearer "+b.token() {
			b.unauthorized.Add(1)
			if b.onUnauthorized != nil {
				b.onUnauthorized()
			}
			return c.JSON(http.StatusUnauthorized, map[string]any{"code": 401, "message": "token expired"})
		}
		return handler(c)
	}
}

func (b *testBackend) refresh(c echo.Context) error {
	b.refreshCalls.Add(1)
	if b.releaseRefresh != nil {
		<-b.releaseRefresh
	}
	if b.refreshStatus != 0 && b.refreshStatus != http.StatusOK {
		return c.JSON(b.refreshStatus, map[string]any{"message": "refresh token expired"})
	}
	return c.JSON(http.StatusOK, map[string]any{"code": 200, "data": map[string]string{"accessToken": b.refreshedToken}})
}

func (b *testBackend) login(c echo.Context) error {
	b.calls.Add(1)
	b.lock.Lock()
	b.headers = append(b.headers, c.Request().Header.Clone())
	b.lock.Unlock()
	var req models.LoginRequest
	err := c.Bind(&req)
	if err != nil {
		return err
	}
	if req.Password != "secret" {
		return c.JSON(http.StatusUnauthorized, map[string]any{"code": 401, "message": "wrong phone or password"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"code": 200,
		"data": map[string]any{
			"accessToken":  "a1",
			"refreshToken": "r1",
			"userInfo":     map[string]any{"id": "7", "username": "sam", "phone": req.Phone},
		},
	})
}

func setupTestBackend(t *testing.T, b *testBackend) *url.URL {
	e := echo.New()
	e.POST("/api/user/refresh-token", b.refresh)
	e.POST("/api/user/login", b.login)
	e.GET("/api/echo", b.protected(func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"code": 200, "data": map[string]any{"id": 1, "query": c.QueryParam("q")}})
	}))
	e.GET("/api/raw", b.protected(func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"id": 2})
	}))
	e.GET("/api/fail", b.protected(func(c echo.Context) error {
		return c.JSON(http.StatusInternalServerError, map[string]any{"message": "boom"})
	}))
	e.POST("/api/chat/consult", b.protected(func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"code": 200, "data": map[string]string{"0": "h", "1": "i"}})
	}))
	e.GET("/api/file/review/records", b.protected(func(c echo.Context) error {
		if c.QueryParam("bare") != "" {
			return c.JSON(http.StatusOK, []map[string]any{{"recordId": "x"}})
		}
		return c.JSON(http.StatusOK, map[string]any{"data": map[string]any{"records": []map[string]any{{"recordId": "y"}}}})
	}))
	e.POST("/api/file/upAndwrite", b.protected(func(c echo.Context) error {
		file, err := c.FormFile("file")
		if err != nil {
			return err
		}
		src, err := file.Open()
		if err != nil {
			return err
		}
		defer src.Close()
		content, err := io.ReadAll(src)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{"data": map[string]string{"text": string(content), "fileName": file.Filename}})
	}))
	e.GET("/api/law/national-laws", b.protected(func(c echo.Context) error {
		page, err := strconv.Atoi(c.QueryParam("page"))
		if err != nil {
			return err
		}
		size, err := strconv.Atoi(c.QueryParam("size"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{"data": map[string]any{"page": page, "size": size, "content": nil}})
	}))
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	baseURL, err := url.Parse(srv.URL + "/api")
	require.NoError(t, err)
	return baseURL
}

type testTerminator struct {
	lock   sync.Mutex
	routes []string
}

func (t *testTerminator) TerminateSession(_ context.Context, route string, _ error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.routes = append(t.routes, route)
}

func (t *testTerminator) count() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.routes)
}

func newTestClient(t *testing.T, baseURL *url.URL, credentials models.Credentials) (*Client, *tokenstore.TokenStore, *testTerminator) {
	ctx := context.Background()
	store, err := tokenstore.NewTokenStore(
		tokenstore.WithStateRepository(db.NewMemoryAdapter()),
		tokenstore.WithSessionRepository(db.NewMemoryAdapter()),
	)
	require.NoError(t, err)
	require.NoError(t, store.SetCredentials(ctx, credentials))
	apiConfig := config.APIConfig{BaseURL: baseURL, TimeoutSeconds: 5, LoginRoute: "/login-before"}
	exchanger, err := refresh.NewHTTPExchanger(
		refresh.WithAPIConfig(apiConfig),
		refresh.WithRefreshConfig(config.RefreshConfig{
			Method:          http.MethodPost,
			Path:            "/user/refresh-token",
			TokenPlacement:  config.TokenInQuery,
			ParamName:       "refreshToken",
			SendAccessToken: true,
		}),
	)
	require.NoError(t, err)
	terminator := &testTerminator{}
	coordinator, err := refresh.NewCoordinator(
		refresh.WithCredentialStore(store),
		refresh.WithExchanger(exchanger),
		refresh.WithSessionTerminator(terminator, apiConfig.LoginRoute),
	)
	require.NoError(t, err)
	client, err := NewClient(
		WithAPIConfig(apiConfig),
		WithCredentialStore(store),
		WithRefresher(coordinator),
		WithSessionTerminator(terminator),
	)
	require.NoError(t, err)
	return client, store, terminator
}

func TestRequestCarriesTokenAndRequestID(t *testing.T) {
	backend := &testBackend{validToken: "a1"}
	baseURL := setupTestBackend(t, backend)
	client, _, _ := newTestClient(t, baseURL, models.Credentials{AccessToken: "a1", RefreshToken: "r1"})

	payload, err := client.Send(context.Background(), http.MethodGet, "/echo", nil, WithQuery("q", "labour law"))

	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"query":"labour law"}`, string(payload.Data))
	header := backend.lastHeader()
	assert.Equal(t, "Bearer a1", header.Get(echo.HeaderAuthorization))
	assert.NotEmpty(t, header.Get(echo.HeaderXRequestID))
	assert.Equal(t, int32(0), backend.refreshCalls.Load())
}

func TestEnvelopeIsUnwrappedOnce(t *testing.T) {
	backend := &testBackend{validToken: "a1"}
	baseURL := setupTestBackend(t, backend)
	client, _, _ := newTestClient(t, baseURL, models.Credentials{AccessToken: "a1", RefreshToken: "r1"})
	type item struct {
		ID int `json:"id"`
	}

	nested, err := Do[item](context.Background(), client, http.MethodGet, "/echo", nil)
	require.NoError(t, err)
	raw, err := Do[item](context.Background(), client, http.MethodGet, "/raw", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, nested.ID)
	assert.Equal(t, 2, raw.ID)
}

func TestUnauthorizedRequestIsRefreshedAndReplayed(t *testing.T) {
	ctx := context.Background()
	backend := &testBackend{validToken: "a2", refreshedToken: "a2"}
	baseURL := setupTestBackend(t, backend)
	client, store, terminator := newTestClient(t, baseURL, models.Credentials{AccessToken: "a1", RefreshToken: "r1"})

	payload, err := client.Send(ctx, http.MethodGet, "/echo", nil)

	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"query":""}`, string(payload.Data))
	assert.Equal(t, int32(1), backend.refreshCalls.Load())
	assert.Equal(t, int32(2), backend.calls.Load())
	assert.Equal(t, "Bearer a2", backend.lastHeader().Get(echo.HeaderAuthorization))
	token, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a2", token)
	refreshToken, err := store.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r1", refreshToken)
	assert.Equal(t, 0, terminator.count())
}

func TestReplayedRequestRejectedAgainEndsSession(t *testing.T) {
	ctx := context.Background()
	backend := &testBackend{validToken: "never", refreshedToken: "a2"}
	baseURL := setupTestBackend(t, backend)
	client, store, terminator := newTestClient(t, baseURL, models.Credentials{AccessToken: "a1", RefreshToken: "r1"})

	_, err := client.Send(ctx, http.MethodGet, "/echo", nil)

	require.ErrorIs(t, err, apierrors.ErrSessionTerminated)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, int32(1), backend.refreshCalls.Load())
	assert.Equal(t, int32(2), backend.calls.Load())
	assert.Equal(t, 1, terminator.count())
	credentials, err := store.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Credentials{}, credentials)
}

func TestMissingRefreshTokenEndsSession(t *testing.T) {
	ctx := context.Background()
	backend := &testBackend{validToken: "a2", refreshedToken: "a2"}
	baseURL := setupTestBackend(t, backend)
	client, store, terminator := newTestClient(t, baseURL, models.Credentials{AccessToken: "a1"})

	_, err := client.Send(ctx, http.MethodGet, "/echo", nil)

	require.ErrorIs(t, err, apierrors.ErrSessionTerminated)
	assert.Equal(t, int32(0), backend.refreshCalls.Load())
	assert.Equal(t, int32(1), backend.calls.Load())
	assert.Equal(t, 1, terminator.count())
	token, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestFailedRefreshEndsSession(t *testing.T) {
	ctx := context.Background()
	backend := &testBackend{validToken: "a2", refreshedToken: "a2", refreshStatus: http.StatusUnauthorized}
	baseURL := setupTestBackend(t, backend)
	client, store, terminator := newTestClient(t, baseURL, models.Credentials{AccessToken: "a1", RefreshToken: "r1"})

	_, err := client.Send(ctx, http.MethodGet, "/echo", nil)

	require.ErrorIs(t, err, apierrors.ErrSessionTerminated)
	assert.ErrorIs(t, err, apierrors.ErrRefreshFailed)
	assert.Equal(t, int32(1), backend.refreshCalls.Load())
	assert.Equal(t, int32(1), backend.calls.Load())
	assert.Equal(t, 1, terminator.count())
	loggedIn, err := store.IsLoggedIn(ctx)
	require.NoError(t, err)
	assert.False(t, loggedIn)
}

func TestConcurrentUnauthorizedRequestsShareOneRefresh(t *testing.T) {
	const requests = 10
	ctx := context.Background()
	backend := &testBackend{validToken: "a2", refreshedToken: "a2", releaseRefresh: make(chan struct{})}
	baseURL := setupTestBackend(t, backend)
	client, _, terminator := newTestClient(t, baseURL, models.Credentials{AccessToken: "a1", RefreshToken: "r1"})

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < requests; i++ {
		g.Go(func() error {
			_, err := client.Send(gctx, http.MethodGet, "/echo", nil)
			return err
		})
	}
	require.Eventually(t, func() bool {
		return backend.unauthorized.Load() == requests && backend.refreshCalls.Load() == 1
	}, 5*time.Second, 5*time.Millisecond)
	// let the remaining callers join the queue before the exchange completes
	time.Sleep(100 * time.Millisecond)
	close(backend.releaseRefresh)

	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), backend.refreshCalls.Load())
	assert.Equal(t, int32(2*requests), backend.calls.Load())
	assert.Equal(t, 0, terminator.count())
}

func TestStaleTokenIsReplayedWithoutRefresh(t *testing.T) {
	ctx := context.Background()
	backend := &testBackend{validToken: "a2", refreshedToken: "a3"}
	baseURL := setupTestBackend(t, backend)
	client, store, _ := newTestClient(t, baseURL, models.Credentials{AccessToken: "a1", RefreshToken: "r1"})
	// another caller renews the token while the first request is in flight
	backend.onUnauthorized = func() {
		_ = store.SetAccessToken(context.Background(), "a2")
	}

	_, err := client.Send(ctx, http.MethodGet, "/echo", nil)

	require.NoError(t, err)
	assert.Equal(t, int32(0), backend.refreshCalls.Load())
	assert.Equal(t, int32(2), backend.calls.Load())
	assert.Equal(t, "Bearer a2", backend.lastHeader().Get(echo.HeaderAuthorization))
}

func TestErrorStatusIsReturnedWithoutRetry(t *testing.T) {
	backend := &testBackend{validToken: "a1"}
	baseURL := setupTestBackend(t, backend)
	client, _, terminator := newTestClient(t, baseURL, models.Credentials{AccessToken: "a1", RefreshToken: "r1"})

	_, err := client.Send(context.Background(), http.MethodGet, "/fail", nil)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, "boom", statusErr.Message)
	assert.Equal(t, "request failed with status 500: boom", statusErr.Error())
	assert.Equal(t, int32(1), backend.calls.Load())
	assert.Equal(t, 0, terminator.count())
}

func TestLoginStoresTheSession(t *testing.T) {
	ctx := context.Background()
	backend := &testBackend{validToken: "a1"}
	baseURL := setupTestBackend(t, backend)
	client, store, _ := newTestClient(t, baseURL, models.Credentials{})

	res, err := client.Login(ctx, models.LoginRequest{
		UserType:   models.EnterpriseUser,
		Phone:      "13800000000",
		Password:   "secret",
		RememberMe: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "sam", res.UserInfo.Username)
	assert.Empty(t, backend.lastHeader().Get(echo.HeaderAuthorization))
	credentials, err := store.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Credentials{AccessToken: "a1", RefreshToken: "r1"}, credentials)
	userType, err := store.UserType(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.EnterpriseUser, userType)
	rememberMe, err := store.RememberMe(ctx)
	require.NoError(t, err)
	assert.True(t, rememberMe)
	info, err := store.UserInfo(ctx)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "13800000000", info.Phone)
}

func TestWrongPasswordDoesNotRefresh(t *testing.T) {
	backend := &testBackend{validToken: "a1", refreshedToken: "a2"}
	baseURL := setupTestBackend(t, backend)
	client, _, terminator := newTestClient(t, baseURL, models.Credentials{AccessToken: "old", RefreshToken: "r0"})

	_, err := client.Login(context.Background(), models.LoginRequest{Phone: "13800000000", Password: "wrong"})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.True(t, statusErr.Unauthorized())
	assert.Equal(t, "wrong phone or password", statusErr.Message)
	assert.NotErrorIs(t, err, apierrors.ErrSessionTerminated)
	assert.Equal(t, int32(0), backend.refreshCalls.Load())
	assert.Equal(t, 0, terminator.count())
}

func TestConsultJoinsCharacterObjects(t *testing.T) {
	backend := &testBackend{validToken: "a1"}
	baseURL := setupTestBackend(t, backend)
	client, _, _ := newTestClient(t, baseURL, models.Credentials{AccessToken: "a1", RefreshToken: "r1"})

	res, err := client.Consult(context.Background(), models.ChatConsultRequest{Question: "hello?", ConversationID: "c1"})

	require.NoError(t, err)
	assert.Equal(t, models.ChatConsultResponse{Data: "hi", ConversationID: "c1"}, res)
}

func TestReviewRecordsAcceptsBothShapes(t *testing.T) {
	ctx := context.Background()
	backend := &testBackend{validToken: "a1"}
	baseURL := setupTestBackend(t, backend)
	client, _, _ := newTestClient(t, baseURL, models.Credentials{AccessToken: "a1", RefreshToken: "r1"})

	records, err := client.ReviewRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "y", records[0].RecordID)

	payload, err := client.Send(ctx, http.MethodGet, "/file/review/records", nil, WithQuery("bare", "1"))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"recordId":"x"}]`, string(payload.Data))
}

func TestParseFileUploadsMultipart(t *testing.T) {
	backend := &testBackend{validToken: "a1"}
	baseURL := setupTestBackend(t, backend)
	client, _, _ := newTestClient(t, baseURL, models.Credentials{AccessToken: "a1", RefreshToken: "r1"})

	res, err := client.ParseFile(context.Background(), "contract.txt", strings.NewReader("the parties agree"))

	require.NoError(t, err)
	assert.Equal(t, models.FileParseResult{Text: "the parties agree", FileName: "contract.txt"}, res)
	assert.True(t, strings.HasPrefix(backend.lastHeader().Get(echo.HeaderContentType), echo.MIMEMultipartForm))
}

func TestLawsPagingDefaults(t *testing.T) {
	backend := &testBackend{validToken: "a1"}
	baseURL := setupTestBackend(t, backend)
	client, _, _ := newTestClient(t, baseURL, models.Credentials{AccessToken: "a1", RefreshToken: "r1"})

	page, err := client.NationalLaws(context.Background(), 0, 0)

	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Size)
	assert.NotNil(t, page.Content)
	assert.Empty(t, page.Content)
}

func TestEmptyIdentifiersAreRejectedLocally(t *testing.T) {
	ctx := context.Background()
	backend := &testBackend{validToken: "a1"}
	baseURL := setupTestBackend(t, backend)
	client, _, _ := newTestClient(t, baseURL, models.Credentials{AccessToken: "a1", RefreshToken: "r1"})

	_, err := client.ReviewRecord(ctx, "")
	assert.ErrorIs(t, err, apierrors.ErrInvalidArgument)
	err = client.DeleteReviewRecord(ctx, "")
	assert.ErrorIs(t, err, apierrors.ErrInvalidArgument)
	_, err = client.History(ctx, "")
	assert.ErrorIs(t, err, apierrors.ErrInvalidArgument)
	err = client.DeleteHistory(ctx, "")
	assert.ErrorIs(t, err, apierrors.ErrInvalidArgument)
	assert.Equal(t, int32(0), backend.calls.Load())
}

func TestNewClientValidatesCollaborators(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)

	baseURL, err := url.Parse("http://localhost/api")
	require.NoError(t, err)
	_, err = NewClient(WithAPIConfig(config.APIConfig{BaseURL: baseURL, TimeoutSeconds: 1, LoginRoute: "/login-before"}))
	assert.Error(t, err)
}

func TestStatusErrorWithoutMessage(t *testing.T) {
	err := newStatusError(http.StatusBadGateway, []byte("<html>bad gateway</html>"))

	assert.Equal(t, "request failed with status 502", err.Error())
	assert.False(t, errors.Is(err, apierrors.ErrSessionTerminated))
}
