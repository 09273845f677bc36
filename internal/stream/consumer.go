// Package stream consumes the streaming consult endpoint.
//
// The backend answers with a server sent event stream of data: lines. A stream is opened
// lazily, yields the decoded chunks in network order and ends either on the [DONE] sentinel,
// when the backend closes the connection or with an error.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/lexconsult/consult-client/internal/apierrors"
	"github.com/lexconsult/consult-client/internal/envelope"
	"github.com/lexconsult/consult-client/internal/metrics"
	"github.com/lexconsult/consult-client/internal/models"
)

const readBufferSize int = 4096
const defaultTimeout = 120 * time.Second
const maxErrorBodySize int64 = 64 * 1024

var errStreamClosed = fmt.Errorf("the stream was closed")

// TokenSource provides the access token sent with the stream request
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// StatusError is returned when the backend refuses to open the stream
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return e.Message
}

type Consumer struct {
	httpClient  *http.Client
	baseURL     *url.URL
	path        string
	timeout     time.Duration
	clock       clockwork.Clock
	tokens      TokenSource
	idGenerator models.IDGenerator
	metrics     *metrics.Collectors
}

// Handler receives the events of one stream. OnChunk is called zero or more times, then
// exactly one of OnError or OnComplete.
type Handler struct {
	OnChunk    func(chunk string)
	OnError    func(err error)
	OnComplete func()
}

// Open prepares a stream, the request is only sent on the first call to Chunks
func (c *Consumer) Open(ctx context.Context, req models.ChatConsultRequest) *Stream {
	ctx, cancel := context.WithCancelCause(ctx)
	return &Stream{
		consumer: c,
		ctx:      ctx,
		cancel:   cancel,
		request:  req,
		chunks:   make(chan string),
	}
}

// Consume runs the stream to its end and reports it to the handler, the terminal error is
// also returned
func (c *Consumer) Consume(ctx context.Context, req models.ChatConsultRequest, handler Handler) error {
	s := c.Open(ctx, req)
	defer s.Close()
	for chunk := range s.Chunks() {
		if handler.OnChunk != nil {
			handler.OnChunk(chunk)
		}
	}
	err := s.Err()
	if err != nil {
		if handler.OnError != nil {
			handler.OnError(err)
		}
		return err
	}
	if handler.OnComplete != nil {
		handler.OnComplete()
	}
	return nil
}

// Stream is a single, non restartable consult stream
type Stream struct {
	consumer *Consumer
	ctx      context.Context
	cancel   context.CancelCauseFunc
	request  models.ChatConsultRequest
	chunks   chan string
	start    sync.Once
	err      error
}

// Chunks returns the decoded chunks, the channel is closed when the stream ends
func (s *Stream) Chunks() <-chan string {
	s.start.Do(func() {
		go s.run()
	})
	return s.chunks
}

// Err returns the terminal error once the channel returned by Chunks is closed, nil means
// the stream completed
func (s *Stream) Err() error {
	return s.err
}

// Close stops the stream, no chunk is delivered afterwards
func (s *Stream) Close() {
	s.cancel(errStreamClosed)
	s.start.Do(func() {
		s.err = errStreamClosed
		close(s.chunks)
	})
}

func (s *Stream) run() {
	defer close(s.chunks)
	c := s.consumer
	timer := c.clock.AfterFunc(c.timeout, func() {
		s.cancel(apierrors.ErrStreamTimeout)
	})
	defer timer.Stop()
	err := s.consume()
	if err != nil {
		err = classify(s.ctx, err)
	}
	s.err = err
	switch {
	case err == nil:
		c.metrics.StreamFinished(metrics.OutcomeSuccess)
	case errors.Is(err, apierrors.ErrStreamTimeout):
		slog.Warn("STREAM", "message", "the stream timed out", "timeout", c.timeout)
		c.metrics.StreamFinished(metrics.OutcomeTimeout)
	case errors.Is(err, context.Canceled) || errors.Is(err, errStreamClosed):
		c.metrics.StreamFinished(metrics.OutcomeCancelled)
	default:
		slog.Error("STREAM", "message", "the stream failed", "error", err)
		c.metrics.StreamFinished(metrics.OutcomeFailure)
	}
}

func (s *Stream) consume() error {
	res, err := s.consumer.open(s.ctx, s.request)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	buffer := lineBuffer{}
	readBuf := make([]byte, readBufferSize)
	for {
		n, readErr := res.Body.Read(readBuf)
		if n > 0 {
			for _, line := range buffer.feed(readBuf[:n]) {
				done, err := s.dispatch(line)
				if err != nil || done {
					return err
				}
			}
		}
		if errors.Is(readErr, io.EOF) {
			_, err := s.dispatch(buffer.flush())
			return err
		}
		if readErr != nil {
			return readErr
		}
	}
}

// dispatch handles one line and reports whether the stream is complete
func (s *Stream) dispatch(line string) (bool, error) {
	text, kind := parseFrame(line)
	switch kind {
	case frameDone:
		return true, nil
	case frameChunk:
		if s.ctx.Err() != nil {
			return false, context.Cause(s.ctx)
		}
		select {
		case s.chunks <- text:
			s.consumer.metrics.ChunkReceived()
			return false, nil
		case <-s.ctx.Done():
			return false, context.Cause(s.ctx)
		}
	}
	return false, nil
}

func (c *Consumer) open(ctx context.Context, request models.ChatConsultRequest) (*http.Response, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.JoinPath(c.path).String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAccept, "text/event-stream")
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	if c.idGenerator != nil {
		requestID, err := c.idGenerator.ID()
		if err == nil {
			req.Header.Set(echo.HeaderXRequestID, requestID)
		}
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		defer res.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodySize))
		message := envelope.Message(raw)
		if message == "" {
			message = fmt.Sprintf("request failed with status %d", res.StatusCode)
		}
		return nil, &StatusError{StatusCode: res.StatusCode, Message: message}
	}
	if res.Body == nil || res.Body == http.NoBody {
		if res.Body != nil {
			res.Body.Close()
		}
		return nil, apierrors.ErrStreamNoBody
	}
	return res, nil
}

// classify maps the error that ended the stream to the error reported to the caller
func classify(ctx context.Context, err error) error {
	if errors.Is(context.Cause(ctx), apierrors.ErrStreamTimeout) {
		return apierrors.ErrStreamTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ETIMEDOUT) {
		return fmt.Errorf("%w: %w", apierrors.ErrUpstreamUnreachable, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("%w: %w", apierrors.ErrUpstreamUnreachable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", apierrors.ErrUpstreamUnreachable, err)
	}
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	return err
}
