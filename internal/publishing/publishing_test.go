package publishing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pressline/internal/composer"
	"pressline/internal/config"
	"pressline/internal/content"
	"pressline/internal/logging"
	"pressline/internal/seo"
	"pressline/internal/services"
)

func deployableItem(t *testing.T) *content.Item {
	t.Helper()
	page := composer.Page{
		Slug:     "agents-in-production",
		Title:    "Agents in production",
		BodyHTML: "<p>Shipping agents is hard.</p>",
		Category: "AI_DEVELOPMENT",
		Template: "tutorial",
		Layout:   "single-column",
		Palette:  "ocean",
	}
	elements := seo.Elements{
		Title:       "Agents in production",
		Description: "Shipping agents is hard.",
		Slug:        "agents-in-production",
		Keywords:    []string{"agents", "production"},
		Language:    "en",
		OpenGraph:   map[string]string{"og:title": "Agents in production"},
	}
	rawPage, err := json.Marshal(page)
	if err != nil {
		t.Fatalf("marshal page: %v", err)
	}
	rawSEO, err := json.Marshal(elements)
	if err != nil {
		t.Fatalf("marshal seo: %v", err)
	}
	return &content.Item{
		ContentID: "item-1",
		Status:    content.StatusApprovedForPublishing,
		Derived:   content.Derived{Page: rawPage, SEOElements: rawSEO},
	}
}

type stubDeployer struct {
	resp Response
	err  error
	got  Request
}

func (s *stubDeployer) Name() string { return "stub" }

func (s *stubDeployer) Deploy(_ context.Context, req Request) (Response, error) {
	s.got = req
	return s.resp, s.err
}

func TestWebhookDeployerSendsPayload(t *testing.T) {
	var received Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer hook-token" {
			t.Errorf("unexpected authorization %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":     "deployed",
			"url":        "https://example.com/agents-in-production",
			"build_time": "1.2s",
		})
	}))
	defer server.Close()

	deployer := NewWebhookDeployer(config.Publishing{WebhookURL: server.URL, WebhookToken: "hook-token", TimeoutSeconds: 5}, nil)
	stage := NewStage(deployer, logging.NewNop())
	item := deployableItem(t)
	if err := stage.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	result, err := stage.Execute(context.Background(), item)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	resp, ok := result.Detail.(Response)
	if !ok {
		t.Fatalf("expected Response detail, got %T", result.Detail)
	}
	if resp.URL != "https://example.com/agents-in-production" || resp.BuildTime != "1.2s" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if received.ContentID != "item-1" || received.SEO.Slug != "agents-in-production" {
		t.Fatalf("unexpected payload %+v", received)
	}
	if !result.Patch.Empty() {
		t.Fatalf("deployment must not patch derived fields, got %+v", result.Patch)
	}
}

func TestWebhookDeployerFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		kind    services.ErrorKind
	}{
		{
			name: "reported failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "failed", "message": "build broke"})
			},
			kind: services.KindExternalService,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusBadGateway)
			},
			kind: services.KindExternalService,
		},
		{
			name: "missing status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"url":"https://example.com"}`))
			},
			kind: services.KindExternalService,
		},
		{
			name: "slow hook",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			kind: services.KindExternalServiceTimeout,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			deployer := NewWebhookDeployer(config.Publishing{WebhookURL: server.URL}, &http.Client{Timeout: 200 * time.Millisecond})
			_, err := NewStage(deployer, logging.NewNop()).Execute(context.Background(), deployableItem(t))
			if err == nil {
				t.Fatal("expected deployment to fail")
			}
			if got := services.KindOf(err); got != tc.kind {
				t.Fatalf("expected kind %s, got %s (%v)", tc.kind, got, err)
			}
		})
	}
}

func TestFileDeployerWritesPage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "published")
	stage := NewStage(NewFileDeployer(dir), logging.NewNop())

	result, err := stage.Execute(context.Background(), deployableItem(t))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	resp := result.Detail.(Response)
	if !resp.Deployed() {
		t.Fatalf("expected deployed status, got %+v", resp)
	}
	pagePath := filepath.Join(dir, "agents-in-production.html")
	if resp.URL != "file://"+pagePath {
		t.Fatalf("unexpected url %q", resp.URL)
	}
	html, err := os.ReadFile(pagePath)
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	for _, want := range []string{`<html lang="en">`, "<title>Agents in production</title>", "<p>Shipping agents is hard.</p>", `content="agents, production"`} {
		if !strings.Contains(string(html), want) {
			t.Fatalf("expected %q in page:\n%s", want, html)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "agents-in-production.json")); err != nil {
		t.Fatalf("expected sidecar: %v", err)
	}
}

func TestFileDeployerSanitizesBody(t *testing.T) {
	dir := t.TempDir()
	req := Request{
		ContentID: "item-2",
		Page:      composer.Page{Slug: "unsafe", BodyHTML: `<p>Hi</p><a href="javascript:alert(1)">x</a><script>alert(2)</script>`},
	}
	resp, err := NewFileDeployer(dir).Deploy(context.Background(), req)
	if err != nil || !resp.Deployed() {
		t.Fatalf("Deploy: %+v err=%v", resp, err)
	}
	html, err := os.ReadFile(filepath.Join(dir, "unsafe.html"))
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if strings.Contains(string(html), "javascript:") || strings.Contains(string(html), "<script>") {
		t.Fatalf("unsafe markup written:\n%s", html)
	}
	if !strings.Contains(string(html), "<p>Hi</p>") {
		t.Fatalf("expected body kept:\n%s", html)
	}
}

func TestStageRejectsMissingInputs(t *testing.T) {
	stage := NewStage(&stubDeployer{}, logging.NewNop())
	err := stage.Prepare(context.Background(), &content.Item{ContentID: "x"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	err = NewStage(nil, logging.NewNop()).Prepare(context.Background(), deployableItem(t))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestStageWrapsDeadline(t *testing.T) {
	stub := &stubDeployer{err: context.DeadlineExceeded}
	_, err := NewStage(stub, logging.NewNop()).Execute(context.Background(), deployableItem(t))
	if !errors.Is(err, services.ErrExternalServiceTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
	if stub.got.Page.Title != "Agents in production" {
		t.Fatalf("expected decoded page to reach deployer, got %+v", stub.got.Page)
	}
}

func TestNewDeployerSelection(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.PublishDir = t.TempDir()
	if got := NewDeployer(&cfg).Name(); got != "file" {
		t.Fatalf("expected file deployer, got %s", got)
	}
	cfg.Publishing.WebhookURL = "https://hooks.example.com/build"
	if got := NewDeployer(&cfg).Name(); got != "webhook" {
		t.Fatalf("expected webhook deployer, got %s", got)
	}
}
