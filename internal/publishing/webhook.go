package publishing

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

	"pressline/internal/config"
	"pressline/internal/services"
)

const userAgent = "Pressline-Go/0.1.0"

// WebhookDeployer posts the page payload to an external build hook.
type WebhookDeployer struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewWebhookDeployer builds a deployer for cfg.WebhookURL.
func NewWebhookDeployer(cfg config.Publishing, client *http.Client) *WebhookDeployer {
	if client == nil {
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		client = &http.Client{Timeout: timeout}
	}
	return &WebhookDeployer{
		endpoint: strings.TrimSpace(cfg.WebhookURL),
		token:    strings.TrimSpace(cfg.WebhookToken),
		client:   client,
	}
}

// Name identifies the deployer in logs.
func (d *WebhookDeployer) Name() string { return "webhook" }

// Deploy sends req and decodes the collaborator's verdict. Non-2xx responses
// are reported as failed deployments rather than transport errors.
func (d *WebhookDeployer) Deploy(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, services.Wrap(services.ErrValidation, stageName, "encode payload", "", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, services.Wrap(services.ErrConfiguration, stageName, "build request", "", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	if d.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+d.token)
	}

	started := time.Now()
	resp, err := d.client.Do(httpReq)
	if err != nil {
		if isTimeout(ctx, err) {
			return Response{}, services.Wrap(services.ErrExternalServiceTimeout, stageName, "deploy", "webhook did not answer in time", err)
		}
		return Response{}, services.Wrap(services.ErrExternalService, stageName, "deploy", "webhook request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Response{}, services.Wrap(services.ErrExternalService, stageName, "read response", "", err)
	}
	if resp.StatusCode >= 300 {
		return Response{
			Status:  StatusFailed,
			Message: fmt.Sprintf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
			Target:  d.endpoint,
		}, nil
	}

	var out Response
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return Response{}, services.Wrap(services.ErrExternalService, stageName, "decode response", "webhook returned malformed JSON", err)
		}
	}
	if strings.TrimSpace(out.Status) == "" {
		out.Status = StatusFailed
		out.Message = "webhook response missing status"
	}
	if out.BuildTime == "" {
		out.BuildTime = formatBuildTime(time.Since(started))
	}
	out.Target = d.endpoint
	return out, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
