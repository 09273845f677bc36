package config

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type APIConfig struct {
	BaseURL        *url.URL
	TimeoutSeconds int
	// LoginRoute is where the session is sent after an unrecoverable authentication failure
	LoginRoute string
}

func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *APIConfig) Validate() error {
	if c.BaseURL == nil {
		return fmt.Errorf("the api config is missing the backend base url")
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("invalid value for api timeout seconds (%d)", c.TimeoutSeconds)
	}
	if !strings.HasPrefix(c.LoginRoute, "/") {
		return fmt.Errorf("the login route %q has to be an absolute path", c.LoginRoute)
	}
	return nil
}

const TokenInQuery string = "query"
const TokenInBody string = "body"

// RefreshConfig describes the refresh token exchange endpoint. The backend contract
// (method and parameter placement) has to be matched exactly.
type RefreshConfig struct {
	Method          string
	Path            string
	TokenPlacement  string
	ParamName       string
	SendAccessToken bool
	// Proactive refreshing is only performed by long running processes (the relay)
	Proactive            bool
	ExpiryMarginSeconds  int
	CheckIntervalSeconds int
}

func (c RefreshConfig) ExpiryMargin() time.Duration {
	return time.Duration(c.ExpiryMarginSeconds) * time.Second
}

func (c RefreshConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

func (c *RefreshConfig) Validate() error {
	c.Method = strings.ToUpper(c.Method)
	if c.Method != http.MethodPost && c.Method != http.MethodGet {
		return fmt.Errorf("unsupported refresh method %q (must be one of GET, POST)", c.Method)
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("the refresh path %q has to be an absolute path", c.Path)
	}
	if c.TokenPlacement != TokenInQuery && c.TokenPlacement != TokenInBody {
		return fmt.Errorf("unknown refresh token placement %q (must be one of query, body)", c.TokenPlacement)
	}
	if c.Method == http.MethodGet && c.TokenPlacement == TokenInBody {
		return fmt.Errorf("the refresh token cannot be sent in the body of a GET request")
	}
	if c.ParamName == "" {
		return fmt.Errorf("the refresh token parameter name cannot be empty")
	}
	if c.Proactive && (c.ExpiryMarginSeconds <= 0 || c.CheckIntervalSeconds <= 0) {
		return fmt.Errorf(
			"proactive refresh needs a positive expiry margin (%d) and check interval (%d)",
			c.ExpiryMarginSeconds,
			c.CheckIntervalSeconds,
		)
	}
	return nil
}

type StreamConfig struct {
	Path           string
	TimeoutSeconds int
}

func (c StreamConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *StreamConfig) Validate() error {
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("the stream path %q has to be an absolute path", c.Path)
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("invalid value for stream timeout seconds (%d)", c.TimeoutSeconds)
	}
	return nil
}
