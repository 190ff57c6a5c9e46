package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"pressline/internal/services"
)

const (
	defaultEndpoint    = "https://openrouter.ai/api/v1/chat/completions"
	defaultHTTPTimeout = 15 * time.Second

	// maxReplyBytes caps how much of a provider reply is read.
	maxReplyBytes = 2 << 20
)

// Config holds the classifier endpoint settings from the [llm] config section.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Client sends classification prompts to an OpenAI-compatible chat endpoint.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	headers  http.Header
	http     *http.Client
	retry    backoff
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithRetryMaxAttempts caps the number of requests per completion.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retry.attempts = attempts
	}
}

// WithRetryBackoff sets the first retry delay and the ceiling.
func WithRetryBackoff(base, ceiling time.Duration) Option {
	return func(c *Client) {
		c.retry.base = base
		c.retry.ceiling = ceiling
	}
}

// WithSleeper replaces the wait between attempts.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.retry.sleeper = sleeper
	}
}

// NewClient builds a client. An empty BaseURL targets OpenRouter.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	headers := http.Header{}
	if referer := strings.TrimSpace(cfg.Referer); referer != "" {
		headers.Set("HTTP-Referer", referer)
		headers.Set("Referer", referer)
	}
	if title := strings.TrimSpace(cfg.Title); title != "" {
		headers.Set("X-Title", title)
	}
	c := &Client{
		endpoint: strings.TrimSpace(cfg.BaseURL),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		model:    strings.TrimSpace(cfg.Model),
		headers:  headers,
		http:     &http.Client{Timeout: timeout},
		retry:    defaultBackoff(),
	}
	if c.endpoint == "" {
		c.endpoint = defaultEndpoint
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model reports the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Complete sends the prompts and returns the reply text verbatim. No response
// format is requested; callers recover structure with the extract package.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemPrompt == "" || userPrompt == "" {
		return "", services.Wrap(services.ErrValidation, "", "llm complete", "system and user prompts are required", nil)
	}
	if c.apiKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "", "llm complete", "api key required", nil)
	}
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "", "llm complete", "encode request", err)
	}

	var (
		lastErr  error
		attempts int
	)
	for {
		attempts++
		text, err := c.attempt(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		wait, again := c.retry.next(ctx, err, attempts)
		if !again {
			break
		}
		if err := c.retry.wait(ctx, wait); err != nil {
			lastErr = err
			break
		}
	}
	if attempts > 1 && !isContextErr(lastErr) {
		lastErr = fmt.Errorf("gave up after %d attempts: %w", attempts, lastErr)
	}
	return "", classify(lastErr)
}

func (c *Client) attempt(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	for key, values := range c.headers {
		req.Header[key] = values
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("post %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes+1))
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	if len(raw) > maxReplyBytes {
		return "", fmt.Errorf("reply exceeds %d bytes", maxReplyBytes)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", newStatusError(resp, raw)
	}
	var reply chatReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return "", fmt.Errorf("decode reply: %w", err)
	}
	if reply.Error != nil {
		return "", fmt.Errorf("provider error: %s", strings.TrimSpace(reply.Error.Message))
	}
	return reply.text(raw)
}

// classify maps a transport failure onto the services taxonomy so the
// analysis stage can tell timeouts from other collaborator failures.
func classify(err error) error {
	var netErr net.Error
	var status *statusError
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout(),
		errors.As(err, &status) && status.code == http.StatusRequestTimeout:
		return services.Wrap(services.ErrExternalServiceTimeout, "", "llm complete", "", err)
	default:
		return services.Wrap(services.ErrExternalService, "", "llm complete", "", err)
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
