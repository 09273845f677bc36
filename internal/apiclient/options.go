package apiclient

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lexconsult/consult-client/internal/config"
	"github.com/lexconsult/consult-client/internal/metrics"
	"github.com/lexconsult/consult-client/internal/models"
)

type requestOptions struct {
	query     url.Values
	header    http.Header
	anonymous bool
}

type RequestOption func(*requestOptions)

func WithQuery(key, value string) RequestOption {
	return func(o *requestOptions) {
		o.query.Add(key, value)
	}
}

func WithQueryInt(key string, value int64) RequestOption {
	return WithQuery(key, strconv.FormatInt(value, 10))
}

func WithQueryValues(values url.Values) RequestOption {
	return func(o *requestOptions) {
		for key, vals := range values {
			for _, val := range vals {
				o.query.Add(key, val)
			}
		}
	}
}

func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		o.header.Set(key, value)
	}
}

// WithoutAuthentication sends the request without a token, a 401 response is returned as is
func WithoutAuthentication() RequestOption {
	return func(o *requestOptions) {
		o.anonymous = true
	}
}

type ClientOption func(*Client) error

func WithAPIConfig(apiConfig config.APIConfig) ClientOption {
	return func(c *Client) error {
		c.baseURL = apiConfig.BaseURL
		c.loginRoute = apiConfig.LoginRoute
		c.httpClient = &http.Client{Timeout: apiConfig.Timeout()}
		return nil
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) error {
		c.httpClient = httpClient
		return nil
	}
}

func WithCredentialStore(store CredentialStore) ClientOption {
	return func(c *Client) error {
		c.store = store
		return nil
	}
}

func WithRefresher(refresher Refresher) ClientOption {
	return func(c *Client) error {
		c.refresher = refresher
		return nil
	}
}

func WithSessionTerminator(terminator models.SessionTerminator) ClientOption {
	return func(c *Client) error {
		c.terminator = terminator
		return nil
	}
}

func WithIDGenerator(generator models.IDGenerator) ClientOption {
	return func(c *Client) error {
		c.idGenerator = generator
		return nil
	}
}

func WithMetrics(collectors *metrics.Collectors) ClientOption {
	return func(c *Client) error {
		c.metrics = collectors
		return nil
	}
}

// NewClient creates the authenticated client. Without an explicit terminator the session
// end is only logged.
func NewClient(options ...ClientOption) (*Client, error) {
	c := Client{
		httpClient:  http.DefaultClient,
		loginRoute:  "/login-before",
		terminator:  &LoginRedirector{},
		idGenerator: models.ULIDGenerator{},
	}
	for _, opt := range options {
		err := opt(&c)
		if err != nil {
			return &Client{}, err
		}
	}
	if c.baseURL == nil {
		return &Client{}, fmt.Errorf("the backend base url is not initialized")
	}
	if c.store == nil {
		return &Client{}, fmt.Errorf("credential store not initialized")
	}
	if c.refresher == nil {
		return &Client{}, fmt.Errorf("refresher not initialized")
	}
	if c.terminator == nil {
		return &Client{}, fmt.Errorf("session terminator not initialized")
	}
	return &c, nil
}
