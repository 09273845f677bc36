package stream

import (
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/lexconsult/consult-client/internal/config"
	"github.com/lexconsult/consult-client/internal/metrics"
	"github.com/lexconsult/consult-client/internal/models"
)

type ConsumerOption func(*Consumer) error

func WithAPIConfig(apiConfig config.APIConfig) ConsumerOption {
	return func(c *Consumer) error {
		c.baseURL = apiConfig.BaseURL
		return nil
	}
}

func WithStreamConfig(streamConfig config.StreamConfig) ConsumerOption {
	return func(c *Consumer) error {
		err := streamConfig.Validate()
		if err != nil {
			return err
		}
		c.path = streamConfig.Path
		c.timeout = streamConfig.Timeout()
		return nil
	}
}

// WithHTTPClient sets the client used for streaming, it should not carry a timeout of its own
func WithHTTPClient(client *http.Client) ConsumerOption {
	return func(c *Consumer) error {
		c.httpClient = client
		return nil
	}
}

func WithClock(clock clockwork.Clock) ConsumerOption {
	return func(c *Consumer) error {
		c.clock = clock
		return nil
	}
}

func WithTokenSource(tokens TokenSource) ConsumerOption {
	return func(c *Consumer) error {
		c.tokens = tokens
		return nil
	}
}

func WithIDGenerator(generator models.IDGenerator) ConsumerOption {
	return func(c *Consumer) error {
		c.idGenerator = generator
		return nil
	}
}

func WithMetrics(collectors *metrics.Collectors) ConsumerOption {
	return func(c *Consumer) error {
		c.metrics = collectors
		return nil
	}
}

func NewConsumer(options ...ConsumerOption) (*Consumer, error) {
	c := Consumer{
		httpClient:  &http.Client{},
		path:        "/chat/consult/stream",
		timeout:     defaultTimeout,
		clock:       clockwork.NewRealClock(),
		idGenerator: models.ULIDGenerator{},
	}
	for _, opt := range options {
		err := opt(&c)
		if err != nil {
			return &Consumer{}, err
		}
	}
	if c.baseURL == nil {
		return &Consumer{}, fmt.Errorf("the backend base url is not initialized")
	}
	if c.tokens == nil {
		return &Consumer{}, fmt.Errorf("token source not initialized")
	}
	if c.clock == nil {
		return &Consumer{}, fmt.Errorf("clock not initialized")
	}
	return &c, nil
}
