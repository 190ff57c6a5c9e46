package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pressline/internal/config"
	"pressline/internal/content"
	"pressline/internal/notifications"
	"pressline/internal/services"
	"pressline/internal/stage"
	"pressline/internal/stagelog"
	"pressline/internal/workflow"
)

func TestDriveRunsEveryStageOnce(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Workflow.AutoRelease = true })
	h.create(t, "article-1")

	item, err := h.manager.Drive(context.Background(), "article-1")
	if err != nil {
		t.Fatalf("Drive: %v", err)
	}
	if item.Status != content.StatusCompleted {
		t.Fatalf("expected completed, got %s", item.Status)
	}
	if item.ProcessingEnd.IsZero() {
		t.Fatal("expected processing_end to be stamped")
	}
	if item.Derived.Category != "AI_RESEARCH" {
		t.Fatalf("expected analysis patch persisted, got %q", item.Derived.Category)
	}

	var completed []stagelog.Stage
	for _, rec := range h.history(t, "article-1") {
		if rec.Status == stagelog.StatusCompleted {
			completed = append(completed, rec.Stage)
		}
	}
	want := stagelog.Canonical()
	if len(completed) != len(want) {
		t.Fatalf("expected %d completed records, got %v", len(want), completed)
	}
	for i := range want {
		if completed[i] != want[i] {
			t.Fatalf("record %d: expected %s, got %s", i, want[i], completed[i])
		}
	}
	for _, stub := range []*stubStage{h.stubs.analysis, h.stubs.design, h.stubs.assets, h.stubs.page, h.stubs.seo, h.stubs.quality, h.stubs.deploy} {
		if stub.Calls() != 1 {
			t.Fatalf("expected %s to run once, ran %d times", stub.name, stub.Calls())
		}
	}

	payload, ok := h.notifier.find(notifications.EventPublished)
	if !ok {
		t.Fatal("expected published notification")
	}
	if payload["url"] != "https://example.test/transformers-at-scale" {
		t.Fatalf("unexpected url %v", payload["url"])
	}
	if payload["title"] != "Transformers at scale" {
		t.Fatalf("unexpected title %v", payload["title"])
	}
}

func TestDriveStopsAtQualityApprovedWithoutAutoRelease(t *testing.T) {
	h := newHarness(t)
	h.create(t, "article-1")

	item, err := h.manager.Drive(context.Background(), "article-1")
	if err != nil {
		t.Fatalf("Drive: %v", err)
	}
	if item.Status != content.StatusQualityApproved {
		t.Fatalf("expected quality_approved, got %s", item.Status)
	}
	if h.stubs.deploy.Calls() != 0 {
		t.Fatal("deployment must wait for approval")
	}

	released, err := h.manager.Approve(context.Background(), "article-1", "looks good")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if released.Status != content.StatusApprovedForPublishing {
		t.Fatalf("expected approved_for_publishing, got %s", released.Status)
	}
	if _, err := h.manager.Approve(context.Background(), "article-1", "again"); !errors.Is(err, services.ErrStaleStatus) {
		t.Fatalf("expected stale status on second approve, got %v", err)
	}
}

func TestTriggerIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.create(t, "article-1")
	ctx := context.Background()

	first, err := h.manager.Trigger(ctx, "article-1", stagelog.StageAnalysis, workflow.TriggerOptions{})
	if err != nil {
		t.Fatalf("first trigger: %v", err)
	}
	if first.Skipped || first.Status != content.StatusClassified {
		t.Fatalf("unexpected first outcome %+v", first)
	}
	before := len(h.history(t, "article-1"))

	second, err := h.manager.Trigger(ctx, "article-1", stagelog.StageAnalysis, workflow.TriggerOptions{})
	if err != nil {
		t.Fatalf("second trigger: %v", err)
	}
	if !second.Skipped {
		t.Fatal("expected second trigger to be skipped")
	}
	if second.AttemptID != first.AttemptID {
		t.Fatalf("expected prior attempt %s, got %s", first.AttemptID, second.AttemptID)
	}
	if string(second.Detail) != string(first.Detail) {
		t.Fatalf("expected prior detail replayed, got %s", second.Detail)
	}
	if got := len(h.history(t, "article-1")); got != before {
		t.Fatalf("expected no new stage records, had %d now %d", before, got)
	}
	if h.stubs.analysis.Calls() != 1 {
		t.Fatalf("expected handler to run once, ran %d", h.stubs.analysis.Calls())
	}
}

func TestTriggerReplaysLaggingStatus(t *testing.T) {
	h := newHarness(t)
	h.create(t, "article-1")
	ctx := context.Background()

	if _, err := h.manager.Trigger(ctx, "article-1", stagelog.StageAnalysis, workflow.TriggerOptions{}); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	// Simulate a crash between the completed record and the status write.
	if err := h.items.CompareAndSetStatus(ctx, "article-1", content.StatusClassified, content.StatusAnalyzing); err != nil {
		t.Fatalf("rewind status: %v", err)
	}

	outcome, err := h.manager.Trigger(ctx, "article-1", stagelog.StageAnalysis, workflow.TriggerOptions{})
	if err != nil {
		t.Fatalf("replay trigger: %v", err)
	}
	if !outcome.Skipped || outcome.Status != content.StatusClassified {
		t.Fatalf("expected replay to classified, got %+v", outcome)
	}
	if h.stubs.analysis.Calls() != 1 {
		t.Fatal("replay must not execute the handler")
	}
}

func TestTriggerRejectsWrongStatus(t *testing.T) {
	h := newHarness(t)
	h.create(t, "article-1")

	_, err := h.manager.Trigger(context.Background(), "article-1", stagelog.StageDesign, workflow.TriggerOptions{})
	if !errors.Is(err, services.ErrStaleStatus) {
		t.Fatalf("expected stale status error, got %v", err)
	}
	var stale *content.StaleStatusError
	if !errors.As(err, &stale) || stale.Actual != content.StatusReceived || stale.Expected != content.StatusClassified {
		t.Fatalf("unexpected stale detail %+v", stale)
	}
	if h.stubs.design.Calls() != 0 {
		t.Fatal("design must not run from received")
	}
}

func TestTriggerUnknownItem(t *testing.T) {
	h := newHarness(t)
	_, err := h.manager.Trigger(context.Background(), "missing", stagelog.StageAnalysis, workflow.TriggerOptions{})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestForcedRerunFromDoneStatus(t *testing.T) {
	h := newHarness(t)
	h.create(t, "article-1")
	ctx := context.Background()

	if _, err := h.manager.Trigger(ctx, "article-1", stagelog.StageAnalysis, workflow.TriggerOptions{}); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	outcome, err := h.manager.Trigger(ctx, "article-1", stagelog.StageAnalysis, workflow.TriggerOptions{Force: true})
	if err != nil {
		t.Fatalf("forced trigger: %v", err)
	}
	if outcome.Skipped || outcome.Status != content.StatusClassified {
		t.Fatalf("unexpected forced outcome %+v", outcome)
	}
	if h.stubs.analysis.Calls() != 2 {
		t.Fatalf("expected two executions, got %d", h.stubs.analysis.Calls())
	}

	if _, err := h.manager.Trigger(ctx, "article-1", stagelog.StageDesign, workflow.TriggerOptions{}); err != nil {
		t.Fatalf("design: %v", err)
	}
	_, err = h.manager.Trigger(ctx, "article-1", stagelog.StageAnalysis, workflow.TriggerOptions{Force: true})
	if !errors.Is(err, services.ErrStaleStatus) {
		t.Fatalf("expected forced analysis after design to be stale, got %v", err)
	}
}

func TestStageFailureRestoresStartStatus(t *testing.T) {
	h := newHarness(t)
	h.create(t, "article-1")
	h.stubs.analysis.set(stage.Result{}, services.Wrap(services.ErrMalformedModelOutput, "analysis", "parse", "no category", nil))

	outcome, err := h.manager.Trigger(context.Background(), "article-1", stagelog.StageAnalysis, workflow.TriggerOptions{})
	if err != nil {
		t.Fatalf("stage failures must not escape: %v", err)
	}
	if !outcome.Failed || outcome.ErrorKind != string(services.KindMalformedModelOutput) {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	item, err := h.items.Get(context.Background(), "article-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if item.Status != content.StatusReceived {
		t.Fatalf("expected received after failure, got %s", item.Status)
	}
	if len(item.Derived.ErrorLogs) != 1 || item.Derived.ErrorLogs[0].AttemptID != outcome.AttemptID {
		t.Fatalf("expected one error log for the attempt, got %+v", item.Derived.ErrorLogs)
	}
	rec, ok, err := h.log.LastRecord(context.Background(), "article-1", stagelog.StageAnalysis)
	if err != nil || !ok || rec.Status != stagelog.StatusFailed {
		t.Fatalf("expected failed record, got %+v ok=%v err=%v", rec, ok, err)
	}
	if _, ok := h.notifier.find(notifications.EventStageFailed); !ok {
		t.Fatal("expected failure notification")
	}

	h.stubs.analysis.set(stage.Result{}, nil)
	retried, err := h.manager.Trigger(context.Background(), "article-1", stagelog.StageAnalysis, workflow.TriggerOptions{})
	if err != nil || retried.Status != content.StatusClassified {
		t.Fatalf("expected retrigger to succeed, got %+v err=%v", retried, err)
	}
}

func TestStageDeadlineClassifiesAsTimeout(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Workflow.StageTimeoutSeconds = 1 })
	h.create(t, "article-1")
	h.stubs.analysis.block = true

	outcome, err := h.manager.Trigger(context.Background(), "article-1", stagelog.StageAnalysis, workflow.TriggerOptions{})
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if !outcome.Failed || outcome.ErrorKind != string(services.KindExternalServiceTimeout) {
		t.Fatalf("expected timeout failure, got %+v", outcome)
	}
	if !errors.Is(outcome.Err, services.ErrExternalServiceTimeout) {
		t.Fatalf("expected timeout marker, got %v", outcome.Err)
	}
	if got := h.status(t, "article-1"); got != content.StatusReceived {
		t.Fatalf("expected received, got %s", got)
	}
}

func TestConcurrentTriggersRunHandlerOnce(t *testing.T) {
	h := newHarness(t)
	h.create(t, "article-1")
	started := make(chan struct{})
	h.stubs.analysis.block = true
	h.stubs.analysis.started = started

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = h.manager.Trigger(ctx, "article-1", stagelog.StageAnalysis, workflow.TriggerOptions{})
	}()
	<-started

	_, err := h.manager.Trigger(context.Background(), "article-1", stagelog.StageAnalysis, workflow.TriggerOptions{})
	if !errors.Is(err, services.ErrStaleStatus) {
		t.Fatalf("expected concurrent trigger to lose the claim, got %v", err)
	}
	cancel()
	wg.Wait()
	if firstErr != nil {
		t.Fatalf("first trigger: %v", firstErr)
	}
	if h.stubs.analysis.Calls() != 1 {
		t.Fatalf("expected one execution, got %d", h.stubs.analysis.Calls())
	}
	if got := h.status(t, "article-1"); got != content.StatusReceived {
		t.Fatalf("expected cancelled attempt to restore received, got %s", got)
	}
}

func TestQualityHoldKeepsStatusAndSkipsErrorLogs(t *testing.T) {
	h := newHarness(t)
	h.create(t, "article-1")
	h.stubs.quality.set(stage.Result{
		Patch:    content.Derived{QualityMetrics: []byte(`{"score":55,"outcome":"hold"}`)},
		Detail:   map[string]any{"score": 55, "outcome": "hold"},
		Decision: stage.DecisionHold,
		Reason:   "score 55 below threshold 70",
	}, nil)

	item, err := h.manager.Drive(context.Background(), "article-1")
	if err != nil {
		t.Fatalf("Drive: %v", err)
	}
	if item.Status != content.StatusSEOOptimized {
		t.Fatalf("expected held item on seo_optimized, got %s", item.Status)
	}
	if len(item.Derived.ErrorLogs) != 0 {
		t.Fatalf("holds must not write error logs: %+v", item.Derived.ErrorLogs)
	}
	if len(item.Derived.QualityMetrics) == 0 {
		t.Fatal("expected quality metrics persisted on hold")
	}
	rec, ok, err := h.log.LastRecord(context.Background(), "article-1", stagelog.StageQuality)
	if err != nil || !ok {
		t.Fatalf("LastRecord: ok=%v err=%v", ok, err)
	}
	if rec.Status != stagelog.StatusFailed || rec.ErrorKind != stagelog.KindQualityBelowThreshold {
		t.Fatalf("unexpected hold record %+v", rec)
	}

	h.stubs.quality.set(stage.Result{
		Patch:  content.Derived{QualityMetrics: []byte(`{"score":72,"outcome":"escalate"}`)},
		Detail: map[string]any{"score": 72, "outcome": "escalate"},
	}, nil)
	report, err := h.manager.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if report.Requalified != 1 {
		t.Fatalf("expected one requalified item, got %+v", report)
	}
	if got := h.status(t, "article-1"); got != content.StatusQualityApproved {
		t.Fatalf("expected quality_approved after sweep, got %s", got)
	}
}

type recheckingStage struct {
	*stubStage
	changed bool
	checks  int
}

func (r *recheckingStage) Recheck(context.Context, *content.Item) (bool, error) {
	r.checks++
	return r.changed, nil
}

func TestSweepSkipsHoldsWhoseVerdictIsUnchanged(t *testing.T) {
	h := newHarness(t)
	quality := &recheckingStage{stubStage: h.stubs.quality}
	set := h.stubs.stageSet()
	set.Quality = quality
	h.manager.ConfigureStages(set)

	h.create(t, "article-1")
	h.stubs.quality.set(stage.Result{
		Patch:    content.Derived{QualityMetrics: []byte(`{"score":55,"outcome":"hold"}`)},
		Detail:   map[string]any{"score": 55, "outcome": "hold"},
		Decision: stage.DecisionHold,
		Reason:   "score 55 below threshold 70",
	}, nil)
	if _, err := h.manager.Drive(context.Background(), "article-1"); err != nil {
		t.Fatalf("Drive: %v", err)
	}
	records := len(h.history(t, "article-1"))

	for i := 0; i < 3; i++ {
		report, err := h.manager.Sweep(context.Background())
		if err != nil {
			t.Fatalf("Sweep: %v", err)
		}
		if report.Requalified != 0 {
			t.Fatalf("expected nothing requalified, got %+v", report)
		}
	}
	if got := len(h.history(t, "article-1")); got != records {
		t.Fatalf("idle sweeps appended stage records: %d -> %d", records, got)
	}
	if quality.Calls() != 1 || quality.checks != 3 {
		t.Fatalf("expected 1 execution and 3 rechecks, got %d and %d", quality.Calls(), quality.checks)
	}

	quality.changed = true
	h.stubs.quality.set(stage.Result{
		Patch:  content.Derived{QualityMetrics: []byte(`{"score":72,"outcome":"escalate"}`)},
		Detail: map[string]any{"score": 72, "outcome": "escalate"},
	}, nil)
	report, err := h.manager.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if report.Requalified != 1 {
		t.Fatalf("expected one requalified item, got %+v", report)
	}
	if got := h.status(t, "article-1"); got != content.StatusQualityApproved {
		t.Fatalf("expected quality_approved, got %s", got)
	}
}

func TestQualityReviewRoutesToManualReview(t *testing.T) {
	h := newHarness(t)
	h.create(t, "article-1")
	h.stubs.quality.set(stage.Result{
		Detail:   map[string]any{"score": 40, "outcome": "review"},
		Decision: stage.DecisionReview,
		Reason:   "score 40 below threshold 70 after 24h0m0s",
	}, nil)

	item, err := h.manager.Drive(context.Background(), "article-1")
	if err != nil {
		t.Fatalf("Drive: %v", err)
	}
	if item.Status != content.StatusRequiresManualReview {
		t.Fatalf("expected requires_manual_review, got %s", item.Status)
	}
	if !item.ProcessingEnd.IsZero() {
		t.Fatal("manual review is not terminal")
	}
	payload, ok := h.notifier.find(notifications.EventManualReview)
	if !ok || payload["reason"] == "" {
		t.Fatalf("expected manual review notification with reason, got %v", payload)
	}

	if _, err := h.manager.Approve(context.Background(), "article-1", "editor approved"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if got := h.status(t, "article-1"); got != content.StatusApprovedForPublishing {
		t.Fatalf("expected approved_for_publishing, got %s", got)
	}
}

func TestHoldForReview(t *testing.T) {
	h := newHarness(t)
	h.create(t, "article-1")
	if _, err := h.manager.Drive(context.Background(), "article-1"); err != nil {
		t.Fatalf("Drive: %v", err)
	}
	item, err := h.manager.HoldForReview(context.Background(), "article-1", "legal check")
	if err != nil {
		t.Fatalf("HoldForReview: %v", err)
	}
	if item.Status != content.StatusRequiresManualReview {
		t.Fatalf("expected requires_manual_review, got %s", item.Status)
	}
	if _, err := h.manager.HoldForReview(context.Background(), "article-1", "again"); !errors.Is(err, services.ErrStaleStatus) {
		t.Fatalf("expected stale status, got %v", err)
	}
}

func TestDeploymentFailureSetsFailedThenRetry(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Workflow.AutoRelease = true })
	h.create(t, "article-1")
	h.stubs.deploy.set(stage.Result{Detail: map[string]any{"status": "failed"}},
		services.Wrap(services.ErrExternalService, "deployment", "deploy", "deployment reported failed", nil))

	item, err := h.manager.Drive(context.Background(), "article-1")
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected deployment error from Drive, got %v", err)
	}
	if item.Status != content.StatusFailed {
		t.Fatalf("expected failed, got %s", item.Status)
	}
	if item.ProcessingEnd.IsZero() {
		t.Fatal("expected processing_end on failed")
	}
	if len(item.Derived.ErrorLogs) != 1 || item.Derived.ErrorLogs[0].Stage != stagelog.StageDeployment {
		t.Fatalf("unexpected error logs %+v", item.Derived.ErrorLogs)
	}

	retried, err := h.manager.Retry(context.Background(), "article-1")
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.Status != content.StatusApprovedForPublishing {
		t.Fatalf("expected approved_for_publishing after retry, got %s", retried.Status)
	}
	if !retried.ProcessingEnd.IsZero() {
		t.Fatal("retry must clear processing_end")
	}

	h.stubs.deploy.set(stage.Result{Detail: map[string]any{"status": "deployed", "url": "https://example.test/a"}}, nil)
	done, err := h.manager.Drive(context.Background(), "article-1")
	if err != nil {
		t.Fatalf("Drive after retry: %v", err)
	}
	if done.Status != content.StatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}
	if _, err := h.manager.Retry(context.Background(), "article-1"); !errors.Is(err, services.ErrStaleStatus) {
		t.Fatalf("expected retry of completed item to be rejected, got %v", err)
	}
}

func TestReclaimStaleAttempt(t *testing.T) {
	later := time.Now().Add(2 * time.Hour)
	h := newHarnessWithClock(t, func() time.Time { return later })
	h.create(t, "article-1")
	ctx := context.Background()

	if err := h.items.CompareAndSetStatus(ctx, "article-1", content.StatusReceived, content.StatusAnalyzing); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := h.log.Begin(ctx, "article-1", stagelog.StageAnalysis); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	reclaimed, err := h.manager.ReclaimStale(ctx)
	if err != nil {
		t.Fatalf("ReclaimStale: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("expected one reclaimed attempt, got %d", reclaimed)
	}
	if got := h.status(t, "article-1"); got != content.StatusReceived {
		t.Fatalf("expected received after reclaim, got %s", got)
	}
	rec, ok, err := h.log.LastRecord(ctx, "article-1", stagelog.StageAnalysis)
	if err != nil || !ok || rec.ErrorKind != string(services.KindExternalServiceTimeout) {
		t.Fatalf("expected timeout record, got %+v ok=%v err=%v", rec, ok, err)
	}

	outcome, err := h.manager.Trigger(ctx, "article-1", stagelog.StageAnalysis, workflow.TriggerOptions{})
	if err != nil || outcome.Status != content.StatusClassified {
		t.Fatalf("expected stage to run after reclaim, got %+v err=%v", outcome, err)
	}
}

func TestReconcileReleasesOrphanedClaim(t *testing.T) {
	later := time.Now().Add(2 * time.Hour)
	h := newHarnessWithClock(t, func() time.Time { return later })
	h.create(t, "article-1")
	ctx := context.Background()

	if err := h.items.CompareAndSetStatus(ctx, "article-1", content.StatusReceived, content.StatusAnalyzing); err != nil {
		t.Fatalf("claim: %v", err)
	}
	item, applied, err := h.manager.Reconcile(ctx, "article-1")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if applied != 1 || item.Status != content.StatusReceived {
		t.Fatalf("expected orphaned claim released, got applied=%d status=%s", applied, item.Status)
	}
}

func TestReconcileReplaysCompletedStages(t *testing.T) {
	h := newHarness(t)
	h.create(t, "article-1")
	ctx := context.Background()

	if _, err := h.manager.Trigger(ctx, "article-1", stagelog.StageAnalysis, workflow.TriggerOptions{}); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if err := h.items.CompareAndSetStatus(ctx, "article-1", content.StatusClassified, content.StatusAnalyzing); err != nil {
		t.Fatalf("rewind: %v", err)
	}
	item, applied, err := h.manager.Reconcile(ctx, "article-1")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if applied != 1 || item.Status != content.StatusClassified {
		t.Fatalf("expected classified after reconcile, got applied=%d status=%s", applied, item.Status)
	}
	if h.stubs.analysis.Calls() != 1 {
		t.Fatal("reconcile must not execute handlers")
	}
}

func TestSweepAutoAdvance(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Workflow.AutoAdvance = true })
	h.create(t, "article-1")
	h.create(t, "article-2")

	report, err := h.manager.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if report.Advanced != 2 {
		t.Fatalf("expected two advanced items, got %+v", report)
	}
	for _, id := range []string{"article-1", "article-2"} {
		if got := h.status(t, id); got != content.StatusQualityApproved {
			t.Fatalf("%s: expected quality_approved, got %s", id, got)
		}
	}
}

func TestItemLogWritten(t *testing.T) {
	h := newHarness(t)
	h.create(t, "article/1")

	if _, err := h.manager.Trigger(context.Background(), "article/1", stagelog.StageAnalysis, workflow.TriggerOptions{}); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(h.cfg.Paths.LogDir, "items"))
	if err != nil {
		t.Fatalf("read item log dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one item log, got %d", len(entries))
	}
	data, err := os.ReadFile(filepath.Join(h.cfg.Paths.LogDir, "items", entries[0].Name()))
	if err != nil {
		t.Fatalf("read item log: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected stage records in item log")
	}
}

func TestStatusReportsHealthAndStats(t *testing.T) {
	h := newHarness(t)
	h.create(t, "article-1")
	h.stubs.seo.health = stage.Unhealthy("seo", "analyzer offline")

	summary := h.manager.Status(context.Background())
	if summary.Running {
		t.Fatal("expected sweeper stopped")
	}
	if summary.Stats[content.StatusReceived] != 1 {
		t.Fatalf("unexpected stats %v", summary.Stats)
	}
	if len(summary.StageHealth) != 7 {
		t.Fatalf("expected seven stage health entries, got %d", len(summary.StageHealth))
	}
	if summary.StageHealth["seo"].Ready {
		t.Fatal("expected seo unhealthy")
	}

	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.manager.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
	if !h.manager.Status(context.Background()).Running {
		t.Fatal("expected running after Start")
	}
	h.manager.Stop()
	if h.manager.Status(context.Background()).Running {
		t.Fatal("expected stopped after Stop")
	}
}

func TestUnconfiguredStage(t *testing.T) {
	h := newHarness(t)
	h.manager.ConfigureStages(workflow.StageSet{Analysis: h.stubs.analysis})
	h.create(t, "article-1")

	_, err := h.manager.Trigger(context.Background(), "article-1", stagelog.StageDesign, workflow.TriggerOptions{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
