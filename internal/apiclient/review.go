package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/lexconsult/consult-client/internal/apierrors"
	"github.com/lexconsult/consult-client/internal/models"
	"github.com/tidwall/gjson"
)

// SubmitReview sends the text of a contract for review
func (c *Client) SubmitReview(ctx context.Context, req models.ReviewRequest) (models.ReviewResult, error) {
	if req.Text == "" {
		return models.ReviewResult{}, fmt.Errorf("%w: the contract text cannot be empty", apierrors.ErrInvalidArgument)
	}
	return Do[models.ReviewResult](ctx, c, http.MethodPost, "/file/review", req)
}

// ReviewConversationID reserves the conversation a review is attached to
func (c *Client) ReviewConversationID(ctx context.Context) (string, error) {
	payload, err := c.Send(ctx, http.MethodPost, "/file/review/getId", nil)
	if err != nil {
		return "", err
	}
	return payload.String(), nil
}

// SaveReviewRecord stores a review and returns the id of the record
func (c *Client) SaveReviewRecord(ctx context.Context, req models.SaveRecordRequest, flag bool) (string, error) {
	payload, err := c.Send(ctx, http.MethodPost, "/file/review/record", req, WithQuery("flag", strconv.FormatBool(flag)))
	if err != nil {
		return "", err
	}
	return payload.String(), nil
}

func (c *Client) ReviewRecord(ctx context.Context, recordID string) (models.FileReviewRecord, error) {
	if recordID == "" {
		return models.FileReviewRecord{}, fmt.Errorf("%w: the record id cannot be empty", apierrors.ErrInvalidArgument)
	}
	return Do[models.FileReviewRecord](ctx, c, http.MethodGet, "/file/review/record", nil, WithQuery("recordId", recordID))
}

// ReviewRecords lists the reviews of the user. The backend answers with {"records": [...]} or
// with the bare list.
func (c *Client) ReviewRecords(ctx context.Context) ([]models.FileReviewRecord, error) {
	payload, err := c.Send(ctx, http.MethodGet, "/file/review/records", nil)
	if err != nil {
		return nil, err
	}
	records := []models.FileReviewRecord{}
	if payload.IsNull() {
		return records, nil
	}
	res := gjson.ParseBytes(payload.Data)
	if res.IsObject() {
		payload.Data = []byte(res.Get("records").Raw)
		if !res.Get("records").IsArray() {
			return records, nil
		}
	} else if !res.IsArray() {
		return records, nil
	}
	err = payload.Into(&records)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) DeleteReviewRecord(ctx context.Context, recordID string) error {
	if recordID == "" {
		return fmt.Errorf("%w: the record id cannot be empty", apierrors.ErrInvalidArgument)
	}
	_, err := c.Send(ctx, http.MethodDelete, "/file/review/record", nil, WithQuery("recordId", recordID))
	return err
}

// ParseFile uploads a document and returns its extracted text
func (c *Client) ParseFile(ctx context.Context, fileName string, content io.Reader) (models.FileParseResult, error) {
	if fileName == "" {
		return models.FileParseResult{}, fmt.Errorf("%w: the file name cannot be empty", apierrors.ErrInvalidArgument)
	}
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return models.FileParseResult{}, err
	}
	_, err = io.Copy(part, content)
	if err != nil {
		return models.FileParseResult{}, fmt.Errorf("cannot read %s: %w", fileName, err)
	}
	err = writer.Close()
	if err != nil {
		return models.FileParseResult{}, err
	}
	body := RawBody{ContentType: writer.FormDataContentType(), Data: buf.Bytes()}
	return Do[models.FileParseResult](ctx, c, http.MethodPost, "/file/upAndwrite", body)
}
