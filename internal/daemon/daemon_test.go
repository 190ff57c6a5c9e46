package daemon_test

import (
	"context"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"pressline/internal/config"
	"pressline/internal/content"
	"pressline/internal/daemon"
	"pressline/internal/intake"
	"pressline/internal/metrics"
	"pressline/internal/stage"
	"pressline/internal/stagelog"
	"pressline/internal/testsupport"
	"pressline/internal/workflow"
)

type stubStage struct {
	name string

	mu     sync.Mutex
	result stage.Result
	err    error
	calls  int
}

func (s *stubStage) Prepare(context.Context, *content.Item) error { return nil }

func (s *stubStage) Execute(context.Context, *content.Item) (stage.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.result, s.err
}

func (s *stubStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(s.name)
}

func (s *stubStage) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

type env struct {
	cfg      *config.Config
	items    *content.Store
	log      *stagelog.Log
	daemon   *daemon.Daemon
	server   *httptest.Server
	analysis *stubStage
}

func newEnv(t *testing.T, opts ...testsupport.ConfigOption) *env {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Workflow.AutoRelease = false
	cfg.Metrics.Enabled = true
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	db := testsupport.MustOpenDB(t, cfg)
	items := content.NewStore(db)
	log := stagelog.New(db)
	m := metrics.New()
	manager := workflow.NewManager(cfg, items, log, nil, workflow.WithObserver(m))

	analysis := &stubStage{name: "analysis", result: stage.Result{
		Patch:  content.Derived{Category: "AI_RESEARCH", ConfidenceScore: content.Float(0.8), Language: "en"},
		Detail: map[string]any{"category": "AI_RESEARCH"},
	}}
	manager.ConfigureStages(workflow.StageSet{
		Analysis: analysis,
		Design:   &stubStage{name: "design"},
	})
	processor := intake.NewProcessor(items, nil, cfg.Intake, nil)

	d, err := daemon.New(cfg, daemon.Dependencies{
		Items:    items,
		History:  log,
		Workflow: manager,
		Intake:   processor,
		Metrics:  m,
	}, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	server := httptest.NewServer(d.Handler())
	t.Cleanup(server.Close)
	return &env{cfg: cfg, items: items, log: log, daemon: d, server: server, analysis: analysis}
}

func TestNewRequiresDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, daemon.Dependencies{}, nil); err == nil {
		t.Fatal("expected missing dependencies to fail")
	}
}

func TestDaemonStartStop(t *testing.T) {
	e := newEnv(t)
	t.Cleanup(func() {
		_ = e.daemon.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := e.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := e.daemon.Status(ctx)
	if !status.Running || !status.Workflow.Running {
		t.Fatalf("expected daemon and workflow to report running, got %+v", status)
	}
	if status.StorageDriver != "sqlite" || status.DatabasePath == "" {
		t.Fatalf("unexpected storage status %+v", status)
	}
	if _, err := os.Stat(e.daemon.LockPath()); err != nil {
		t.Fatalf("expected lock file: %v", err)
	}
	if addr := e.daemon.APIAddr(); addr == "" || addr == "127.0.0.1:0" {
		t.Fatalf("expected bound listener address, got %q", addr)
	}

	if err := e.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	e.daemon.Stop()
	if e.daemon.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	first := newEnv(t)
	t.Cleanup(func() { _ = first.daemon.Close() })
	ctx := context.Background()
	if err := first.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	second, err := daemon.New(first.cfg, daemon.Dependencies{
		Items:    first.items,
		History:  first.log,
		Workflow: workflow.NewManager(first.cfg, first.items, first.log, nil),
		Intake:   intake.NewProcessor(first.items, nil, first.cfg.Intake, nil),
	}, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected lock contention to reject the second daemon")
	}
}

func (s *stubStage) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
