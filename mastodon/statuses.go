package mastodon

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/deemkeen/thrive/domain"
)

type PollParams struct {
	Options   []string `json:"options"`
	ExpiresIn int      `json:"expires_in"`
	Multiple  bool     `json:"multiple,omitempty"`
}

// StatusParams is the body of POST /api/v1/statuses.
type StatusParams struct {
	Status      string            `json:"status,omitempty"`
	InReplyToId string            `json:"in_reply_to_id,omitempty"`
	Visibility  domain.Visibility `json:"visibility,omitempty"`
	SpoilerText string            `json:"spoiler_text,omitempty"`
	Sensitive   bool              `json:"sensitive,omitempty"`
	MediaIds    []string          `json:"media_ids,omitempty"`
	Poll        *PollParams       `json:"poll,omitempty"`
	Language    string            `json:"language,omitempty"`

	// IdempotencyKey makes retried submissions create a single post.
	IdempotencyKey string `json:"-"`
}

func (c *Client) PostStatus(ctx context.Context, params StatusParams) (*domain.Post, error) {
	headers := map[string]string{}
	if params.IdempotencyKey != "" {
		headers["Idempotency-Key"] = params.IdempotencyKey
	}
	var p domain.Post
	if err := c.postJSON(ctx, "post status", "/api/v1/statuses", params, headers, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteStatus(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/v1/statuses/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return err
	}
	return c.do("delete status", req, nil)
}

func (c *Client) statusAction(ctx context.Context, op, id, action string) (*domain.Post, error) {
	var p domain.Post
	path := "/api/v1/statuses/" + url.PathEscape(id) + "/" + action
	if err := c.postJSON(ctx, op, path, nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Reblog(ctx context.Context, id string) (*domain.Post, error) {
	return c.statusAction(ctx, "boost", id, "reblog")
}

func (c *Client) Unreblog(ctx context.Context, id string) (*domain.Post, error) {
	return c.statusAction(ctx, "unboost", id, "unreblog")
}

func (c *Client) Favourite(ctx context.Context, id string) (*domain.Post, error) {
	return c.statusAction(ctx, "favourite", id, "favourite")
}

func (c *Client) Unfavourite(ctx context.Context, id string) (*domain.Post, error) {
	return c.statusAction(ctx, "unfavourite", id, "unfavourite")
}

// Vote casts votes in a poll. Choices are option indexes.
func (c *Client) Vote(ctx context.Context, pollId string, choices []int) (*domain.Poll, error) {
	var poll domain.Poll
	body := struct {
		Choices []int `json:"choices"`
	}{Choices: choices}
	if err := c.postJSON(ctx, "vote", "/api/v1/polls/"+url.PathEscape(pollId)+"/votes", body, nil, &poll); err != nil {
		return nil, err
	}
	return &poll, nil
}

// UploadMedia uploads a local file as a media attachment.
func (c *Client) UploadMedia(ctx context.Context, path, description string) (*domain.MediaAttachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}
	if description != "" {
		if err := w.WriteField("description", description); err != nil {
			return nil, fmt.Errorf("upload media: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v2/media", nil, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var m domain.MediaAttachment
	if err := c.do("upload media", req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
