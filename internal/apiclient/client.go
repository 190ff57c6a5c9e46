// Package apiclient is a typed client for the presslined HTTP API.
package apiclient

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

	"pressline/internal/api"
	"pressline/internal/config"
	"pressline/internal/services"
)

// ErrUnavailable reports that no API address is configured.
var ErrUnavailable = errors.New("daemon api is not configured")

// HTTPDoer describes the HTTP client used to reach the daemon.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the daemon API with an optional bearer token.
type Client struct {
	base  *url.URL
	token string
	http  HTTPDoer
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// New builds a client for bind, which may omit the scheme.
func New(bind string, opts ...Option) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, ErrUnavailable
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""
	c := &Client{
		base: base,
		http: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FromConfig builds a client from the paths section.
func FromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrUnavailable
	}
	opts = append([]Option{WithToken(cfg.Paths.APIToken)}, opts...)
	return New(cfg.Paths.APIBind, opts...)
}

// BaseURL returns the resolved daemon address.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Submit sends one raw item to intake.
func (c *Client) Submit(ctx context.Context, contentID string, raw json.RawMessage) (*api.IntakeResponse, error) {
	var resp api.IntakeResponse
	req := api.IntakeRequest{ContentID: contentID, RawContent: raw}
	if _, err := c.call(ctx, http.MethodPost, "/api/intake", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Batch sends a batch envelope verbatim. Partial failures are reported in
// the response, not as an error.
func (c *Client) Batch(ctx context.Context, envelope json.RawMessage) (*api.BatchResponse, error) {
	var resp api.BatchResponse
	if _, err := c.call(ctx, http.MethodPost, "/api/batch", nil, envelope, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Trigger runs one stage for one item. A recorded stage failure returns the
// outcome together with an error carrying its kind.
func (c *Client) Trigger(ctx context.Context, stage, contentID string, force bool) (*api.TriggerResponse, error) {
	body, err := encode(api.TriggerRequest{ContentID: contentID, Force: force})
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/stages/"+url.PathEscape(stage), nil, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read trigger response: %w", err)
	}
	if resp.StatusCode < http.StatusBadRequest {
		var outcome api.TriggerResponse
		if err := json.Unmarshal(data, &outcome); err != nil {
			return nil, fmt.Errorf("decode trigger response: %w", err)
		}
		return &outcome, nil
	}

	var outcome api.TriggerResponse
	if json.Unmarshal(data, &outcome) == nil && outcome.Failed {
		failure := api.ErrorResponse{
			Error:   outcome.Error,
			Details: api.ErrorDetails{Kind: outcome.ErrorKind, Stage: outcome.Stage, Operation: "trigger"},
		}
		return &outcome, failure.Err()
	}
	return nil, decodeError(resp.StatusCode, data)
}

// ListOptions filters Items.
type ListOptions struct {
	Statuses []string
	Limit    int
	Offset   int
}

// Items lists items, newest first.
func (c *Client) Items(ctx context.Context, opts ListOptions) ([]api.Item, error) {
	query := url.Values{}
	if len(opts.Statuses) > 0 {
		query.Set("status", strings.Join(opts.Statuses, ","))
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		query.Set("offset", strconv.Itoa(opts.Offset))
	}
	var resp api.ItemListResponse
	if _, err := c.call(ctx, http.MethodGet, "/api/items", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Item describes one item.
func (c *Client) Item(ctx context.Context, contentID string) (*api.Item, error) {
	return c.itemCall(ctx, http.MethodGet, itemPath(contentID, ""), nil)
}

// History returns an item's stage log.
func (c *Client) History(ctx context.Context, contentID string) (*api.HistoryResponse, error) {
	var resp api.HistoryResponse
	if _, err := c.call(ctx, http.MethodGet, itemPath(contentID, "history"), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Approve releases an item for publishing.
func (c *Client) Approve(ctx context.Context, contentID, reason string) (*api.Item, error) {
	return c.itemCall(ctx, http.MethodPost, itemPath(contentID, "approve"), api.DecisionRequest{Reason: reason})
}

// Review routes an item to manual review.
func (c *Client) Review(ctx context.Context, contentID, reason string) (*api.Item, error) {
	return c.itemCall(ctx, http.MethodPost, itemPath(contentID, "review"), api.DecisionRequest{Reason: reason})
}

// Retry returns a failed item to the start of the stage that failed it.
func (c *Client) Retry(ctx context.Context, contentID string) (*api.Item, error) {
	return c.itemCall(ctx, http.MethodPost, itemPath(contentID, "retry"), nil)
}

// Status returns daemon and workflow status.
func (c *Client) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var resp api.DaemonStatus
	if _, err := c.call(ctx, http.MethodGet, "/api/status", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) itemCall(ctx context.Context, method, path string, payload any) (*api.Item, error) {
	var resp api.ItemResponse
	if _, err := c.call(ctx, method, path, nil, payload, &resp); err != nil {
		return nil, err
	}
	return &resp.Item, nil
}

func itemPath(contentID, action string) string {
	path := "/api/items/" + url.PathEscape(contentID)
	if action != "" {
		path += "/" + action
	}
	return path
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, payload, target any) (int, error) {
	var body []byte
	switch v := payload.(type) {
	case nil:
	case json.RawMessage:
		body = v
	default:
		encoded, err := encode(v)
		if err != nil {
			return 0, err
		}
		body = encoded
	}

	resp, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, decodeError(resp.StatusCode, data)
	}
	if target != nil {
		if err := json.Unmarshal(data, target); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Response, error) {
	endpoint := c.base.String() + path
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "", "api request", "daemon unreachable at "+c.base.Host, err)
	}
	return resp, nil
}

func encode(payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return data, nil
}

func decodeError(status int, data []byte) error {
	var payload api.ErrorResponse
	if err := json.Unmarshal(data, &payload); err != nil || strings.TrimSpace(payload.Error) == "" {
		text := strings.TrimSpace(string(data))
		if text == "" {
			text = http.StatusText(status)
		}
		return fmt.Errorf("api returned status %d: %s", status, text)
	}
	return payload.Err()
}
