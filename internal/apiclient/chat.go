package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/lexconsult/consult-client/internal/apierrors"
	"github.com/lexconsult/consult-client/internal/envelope"
	"github.com/lexconsult/consult-client/internal/models"
	"github.com/tidwall/gjson"
)

// Consult asks a question and waits for the complete answer
func (c *Client) Consult(ctx context.Context, req models.ChatConsultRequest) (models.ChatConsultResponse, error) {
	if strings.TrimSpace(req.Question) == "" {
		return models.ChatConsultResponse{}, fmt.Errorf("%w: the question cannot be empty", apierrors.ErrInvalidArgument)
	}
	payload, err := c.Send(ctx, http.MethodPost, "/chat/consult", req)
	if err != nil {
		return models.ChatConsultResponse{}, err
	}
	return models.ChatConsultResponse{Data: replyText(payload), ConversationID: req.ConversationID}, nil
}

// replyText normalizes the consult answer. The backend answers with a string, with an object
// keyed by character positions ("0", "1", ...) or with an object holding the text in data.
func replyText(payload envelope.Payload) string {
	if payload.IsNull() {
		return ""
	}
	res := gjson.ParseBytes(payload.Data)
	switch {
	case res.Type == gjson.String:
		return res.String()
	case !res.IsObject():
		return ""
	case res.Get("0").Exists():
		return joinValues(res)
	}
	data := res.Get("data")
	switch {
	case data.Type == gjson.String:
		return data.String()
	case data.IsObject():
		return joinValues(data)
	case data.Exists() && data.Type != gjson.Null && !data.IsArray():
		return data.String()
	}
	return ""
}

// joinValues concatenates the values of an object, integer keys first in ascending order
// followed by the other keys in document order
func joinValues(obj gjson.Result) string {
	type indexed struct {
		index int
		value string
	}
	numbered := []indexed{}
	named := []string{}
	obj.ForEach(func(key, value gjson.Result) bool {
		idx, err := strconv.Atoi(key.String())
		if err == nil && idx >= 0 {
			numbered = append(numbered, indexed{index: idx, value: value.String()})
		} else {
			named = append(named, value.String())
		}
		return true
	})
	sort.SliceStable(numbered, func(i, j int) bool { return numbered[i].index < numbered[j].index })
	var sb strings.Builder
	for _, part := range numbered {
		sb.WriteString(part.value)
	}
	for _, part := range named {
		sb.WriteString(part)
	}
	return sb.String()
}

// SecondaryQuestionTitles returns the catalogue of common questions, grouped by category
func (c *Client) SecondaryQuestionTitles(ctx context.Context, userType models.UserType) ([][]models.SecondaryQuestionTitle, error) {
	return list[[]models.SecondaryQuestionTitle](ctx, c, http.MethodGet, "/chat/secondary_question_titles/"+userType.Code())
}

func (c *Client) History(ctx context.Context, conversationID string) ([]models.ChatHistoryMessage, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("%w: the conversation id cannot be empty", apierrors.ErrInvalidArgument)
	}
	return list[models.ChatHistoryMessage](ctx, c, http.MethodGet, "/chat/history", WithQuery("conversationId", conversationID))
}

func (c *Client) Histories(ctx context.Context, userID string) ([]models.ConversationMeta, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: the user id cannot be empty", apierrors.ErrInvalidArgument)
	}
	return list[models.ConversationMeta](ctx, c, http.MethodGet, "/chat/histories", WithQuery("userId", userID))
}

func (c *Client) DeleteHistory(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return fmt.Errorf("%w: the conversation id cannot be empty", apierrors.ErrInvalidArgument)
	}
	_, err := c.Send(ctx, http.MethodDelete, "/chat/history", nil, WithQuery("conversationId", conversationID))
	return err
}

// NewConversation opens a conversation without a title and returns its id
func (c *Client) NewConversation(ctx context.Context) (string, error) {
	payload, err := c.Send(ctx, http.MethodPost, "/chat/newOr", nil)
	if err != nil {
		return "", err
	}
	return payload.String(), nil
}

// NewConversationWithTitle names the conversation after its first question, the backend may
// answer with a new conversation id
func (c *Client) NewConversationWithTitle(ctx context.Context, title, currentConversationID string) (string, error) {
	if title == "" {
		return "", fmt.Errorf("%w: the title cannot be empty", apierrors.ErrInvalidArgument)
	}
	payload, err := c.Send(
		ctx,
		http.MethodPost,
		"/chat/new",
		nil,
		WithQuery("title", title),
		WithQuery("currentConversationId", currentConversationID),
	)
	if err != nil {
		return "", err
	}
	return payload.String(), nil
}

// list decodes a JSON array payload, a missing payload is an empty list
func list[T any](ctx context.Context, c *Client, method, path string, options ...RequestOption) ([]T, error) {
	items, err := Do[[]T](ctx, c, method, path, nil, options...)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
