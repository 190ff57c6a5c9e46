package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"pressline/internal/config"
	"pressline/internal/content"
	"pressline/internal/notifications"
	"pressline/internal/stage"
	"pressline/internal/stagelog"
	"pressline/internal/testsupport"
	"pressline/internal/workflow"
)

type stubStage struct {
	name string

	mu       sync.Mutex
	calls    int
	result   stage.Result
	err      error
	block    bool
	started  chan struct{}
	health   stage.Health
	prepErr  error
	lastSeen content.Status
}

func newStubStage(name string) *stubStage {
	return &stubStage{name: name, health: stage.Healthy(name)}
}

func (s *stubStage) Prepare(_ context.Context, item *content.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = item.Status
	return s.prepErr
}

func (s *stubStage) Execute(ctx context.Context, _ *content.Item) (stage.Result, error) {
	s.mu.Lock()
	s.calls++
	block := s.block
	started := s.started
	s.started = nil
	result, err := s.result, s.err
	s.mu.Unlock()

	if started != nil {
		close(started)
	}
	if block {
		<-ctx.Done()
		return stage.Result{}, ctx.Err()
	}
	return result, err
}

func (s *stubStage) HealthCheck(context.Context) stage.Health {
	return s.health
}

func (s *stubStage) set(result stage.Result, err error) {
	s.mu.Lock()
	s.result = result
	s.err = err
	s.mu.Unlock()
}

func (s *stubStage) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubSet struct {
	analysis, design, assets, page, seo, quality, deploy *stubStage
}

func newStubSet() *stubSet {
	set := &stubSet{
		analysis: newStubStage("analysis"),
		design:   newStubStage("design"),
		assets:   newStubStage("asset_validation"),
		page:     newStubStage("page_composition"),
		seo:      newStubStage("seo"),
		quality:  newStubStage("quality"),
		deploy:   newStubStage("deployment"),
	}
	set.analysis.result = stage.Result{
		Patch:  content.Derived{Category: "AI_RESEARCH", ConfidenceScore: content.Float(0.9), Language: "en"},
		Detail: map[string]any{"category": "AI_RESEARCH"},
	}
	set.page.result = stage.Result{
		Patch: content.Derived{Page: []byte(`{"title":"Transformers at scale","slug":"transformers-at-scale"}`)},
	}
	set.quality.result = stage.Result{
		Patch:  content.Derived{QualityMetrics: []byte(`{"score":85,"outcome":"approve"}`)},
		Detail: map[string]any{"score": 85, "outcome": "approve"},
	}
	set.deploy.result = stage.Result{
		Detail: map[string]any{"status": "deployed", "url": "https://example.test/transformers-at-scale"},
	}
	return set
}

func (s *stubSet) stageSet() workflow.StageSet {
	return workflow.StageSet{
		Analysis:        s.analysis,
		Design:          s.design,
		AssetValidation: s.assets,
		PageComposition: s.page,
		SEO:             s.seo,
		Quality:         s.quality,
		Deployment:      s.deploy,
	}
}

type published struct {
	event   notifications.Event
	payload notifications.Payload
}

type stubNotifier struct {
	mu     sync.Mutex
	events []published
}

func (n *stubNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, published{event: event, payload: payload})
	return nil
}

func (n *stubNotifier) find(event notifications.Event) (notifications.Payload, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e.event == event {
			return e.payload, true
		}
	}
	return nil, false
}

type harness struct {
	cfg      *config.Config
	items    *content.Store
	log      *stagelog.Log
	manager  *workflow.Manager
	stubs    *stubSet
	notifier *stubNotifier
}

func newHarness(t *testing.T, opts ...func(*config.Config)) *harness {
	return newHarnessWithClock(t, nil, opts...)
}

func newHarnessWithClock(t *testing.T, now func() time.Time, opts ...func(*config.Config)) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.AutoRelease = false
	for _, opt := range opts {
		opt(cfg)
	}
	db := testsupport.MustOpenDB(t, cfg)
	items := content.NewStore(db)
	log := stagelog.New(db)
	notifier := &stubNotifier{}
	manager := workflow.NewManager(cfg, items, log, nil,
		workflow.WithNotifier(notifier),
		workflow.WithClock(now),
	)
	stubs := newStubSet()
	manager.ConfigureStages(stubs.stageSet())
	return &harness{cfg: cfg, items: items, log: log, manager: manager, stubs: stubs, notifier: notifier}
}

func (h *harness) create(t *testing.T, contentID string) *content.Item {
	t.Helper()
	return testsupport.MustCreateItem(t, h.items, contentID, map[string]any{
		"title":   "Transformers at scale",
		"content": "A long article about training large models.",
	})
}

func (h *harness) status(t *testing.T, contentID string) content.Status {
	t.Helper()
	return testsupport.MustGetItem(t, h.items, contentID).Status
}

func (h *harness) history(t *testing.T, contentID string) []stagelog.Record {
	t.Helper()
	records, err := h.log.History(context.Background(), contentID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	return records
}
