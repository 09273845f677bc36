package refresh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/lexconsult/consult-client/internal/config"
	"github.com/lexconsult/consult-client/internal/envelope"
	"github.com/lexconsult/consult-client/internal/models"
)

// HTTPExchanger calls the refresh endpoint of the backend. It deliberately uses its own
// http client so that a failing refresh is never intercepted and retried.
type HTTPExchanger struct {
	client  *http.Client
	baseURL *url.URL
	config  config.RefreshConfig
}

func (h *HTTPExchanger) Exchange(ctx context.Context, credentials models.Credentials) (models.RefreshResponse, error) {
	endpoint := h.baseURL.JoinPath(h.config.Path)
	var body io.Reader
	if h.config.TokenPlacement == config.TokenInBody {
		raw, err := json.Marshal(map[string]string{h.config.ParamName: credentials.RefreshToken})
		if err != nil {
			return models.RefreshResponse{}, err
		}
		body = bytes.NewReader(raw)
	} else {
		query := endpoint.Query()
		query.Set(h.config.ParamName, credentials.RefreshToken)
		endpoint.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, h.config.Method, endpoint.String(), body)
	if err != nil {
		return models.RefreshResponse{}, err
	}
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	// the backend identifies the session by the expired access token
	if h.config.SendAccessToken && credentials.HasAccessToken() {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+credentials.AccessToken)
	}
	res, err := h.client.Do(req)
	if err != nil {
		return models.RefreshResponse{}, fmt.Errorf("calling the refresh endpoint failed: %w", err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return models.RefreshResponse{}, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		message := envelope.Message(raw)
		if message == "" {
			message = http.StatusText(res.StatusCode)
		}
		return models.RefreshResponse{}, fmt.Errorf("the refresh endpoint responded with status %d: %s", res.StatusCode, message)
	}
	payload := envelope.Decode(raw)
	if payload.IsNull() {
		payload = envelope.Payload{Kind: envelope.KindRaw, Data: bytes.TrimSpace(raw)}
	}
	var output models.RefreshResponse
	err = payload.Into(&output)
	if err != nil {
		return models.RefreshResponse{}, err
	}
	if output.AccessToken == "" {
		return models.RefreshResponse{}, fmt.Errorf("the refresh response does not contain an access token")
	}
	return output, nil
}

type HTTPExchangerOption func(*HTTPExchanger) error

func WithAPIConfig(apiConfig config.APIConfig) HTTPExchangerOption {
	return func(h *HTTPExchanger) error {
		h.baseURL = apiConfig.BaseURL
		h.client = &http.Client{Timeout: apiConfig.Timeout()}
		return nil
	}
}

func WithRefreshConfig(refreshConfig config.RefreshConfig) HTTPExchangerOption {
	return func(h *HTTPExchanger) error {
		h.config = refreshConfig
		return nil
	}
}

func WithHTTPClient(client *http.Client) HTTPExchangerOption {
	return func(h *HTTPExchanger) error {
		h.client = client
		return nil
	}
}

func NewHTTPExchanger(options ...HTTPExchangerOption) (*HTTPExchanger, error) {
	h := HTTPExchanger{client: http.DefaultClient}
	for _, opt := range options {
		err := opt(&h)
		if err != nil {
			return &HTTPExchanger{}, err
		}
	}
	if h.baseURL == nil {
		return &HTTPExchanger{}, fmt.Errorf("the backend base url is not initialized")
	}
	err := h.config.Validate()
	if err != nil {
		return &HTTPExchanger{}, err
	}
	return &h, nil
}
