// Package mastodon is a small client for the parts of the Mastodon REST and
// streaming APIs thrive uses.
package mastodon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/logging"
	"github.com/deemkeen/thrive/util"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// APIError is returned for any response with status >= 400.
type APIError struct {
	StatusCode int
	Message    string
	Op         string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden)
}

type Config struct {
	Instance          string
	AccessToken       string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	// StreamIdleTimeout drops the user stream when nothing, not even a
	// heartbeat, arrived for this long.
	StreamIdleTimeout time.Duration
	// HTTPClient overrides the REST client; the stream always uses a client
	// without an overall timeout.
	HTTPClient *http.Client
}

// Client is safe for concurrent use.
type Client struct {
	base      string
	token     string
	http      *http.Client
	stream    *http.Client
	limiter   *rate.Limiter
	idle      time.Duration
	userAgent string
	log       zerolog.Logger
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = util.DefaultRequestsPerSecond
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = util.DefaultBurst
	}

	idle := cfg.StreamIdleTimeout
	if idle <= 0 {
		idle = DefaultStreamIdleTimeout
	}

	return &Client{
		base:      strings.TrimSuffix(cfg.Instance, "/"),
		token:     cfg.AccessToken,
		http:      httpClient,
		stream:    &http.Client{Transport: httpClient.Transport},
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		idle:      idle,
		userAgent: fmt.Sprintf("%s/%s", util.Name, util.GetVersion()),
		log:       logging.Component("mastodon"),
	}
}

// Instance is the base URL requests go to, without a trailing slash.
func (c *Client) Instance() string {
	return c.base
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do sends req after waiting on the rate limiter and decodes a JSON response
// into out when out is non-nil.
func (c *Client) do(op string, req *http.Request, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("api call")

	if resp.StatusCode >= 400 {
		return decodeAPIError(op, resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to parse response: %w", op, err)
	}
	return nil
}

func decodeAPIError(op string, resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Op: op}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	}
	return apiErr
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return c.do(op, req, out)
}

func (c *Client) postJSON(ctx context.Context, op, path string, in any, headers map[string]string, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(op, req, out)
}

func limitQuery(limit int) url.Values {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

func (c *Client) VerifyCredentials(ctx context.Context) (*domain.Account, error) {
	var acc domain.Account
	if err := c.get(ctx, "verify credentials", "/api/v1/accounts/verify_credentials", nil, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (c *Client) HomeTimeline(ctx context.Context, limit int) ([]*domain.Post, error) {
	var posts []*domain.Post
	if err := c.get(ctx, "home timeline", "/api/v1/timelines/home", limitQuery(limit), &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) AccountStatuses(ctx context.Context, accountId string, limit int) ([]*domain.Post, error) {
	var posts []*domain.Post
	path := "/api/v1/accounts/" + url.PathEscape(accountId) + "/statuses"
	if err := c.get(ctx, "account statuses", path, limitQuery(limit), &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Notifications fetches the newest notifications, restricted to the given
// types when any are passed.
func (c *Client) Notifications(ctx context.Context, limit int, types ...string) ([]*domain.Notification, error) {
	q := limitQuery(limit)
	for _, t := range types {
		q.Add("types[]", t)
	}
	var notifications []*domain.Notification
	if err := c.get(ctx, "notifications", "/api/v1/notifications", q, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

