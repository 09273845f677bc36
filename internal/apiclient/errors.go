package apiclient

import (
	"fmt"
	"net/http"

	"github.com/lexconsult/consult-client/internal/envelope"
)

// StatusError is returned for every response outside of the 2xx range
type StatusError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

func newStatusError(status int, body []byte) *StatusError {
	return &StatusError{StatusCode: status, Message: envelope.Message(body), Body: body}
}
