package content_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"pressline/internal/content"
	"pressline/internal/services"
	"pressline/internal/stagelog"
	"pressline/internal/testsupport"
)

func newStore(t *testing.T) *content.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return content.NewStore(testsupport.MustOpenDB(t, cfg))
}

func TestCreateAndGet(t *testing.T) {
	items := newStore(t)
	ctx := context.Background()

	created := testsupport.MustCreateItem(t, items, "c-1", map[string]any{"title": "Agents"})
	if created.Status != content.StatusReceived || created.ProcessingStart.IsZero() {
		t.Fatalf("unexpected created item %+v", created)
	}

	got, err := items.Get(ctx, "c-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var payload map[string]string
	if err := json.Unmarshal(got.RawPayload, &payload); err != nil || payload["title"] != "Agents" {
		t.Fatalf("payload not preserved: %s", got.RawPayload)
	}
	if !got.ProcessingEnd.IsZero() {
		t.Fatal("processing_end should be unset on intake")
	}

	if _, err := items.Create(ctx, "c-1", json.RawMessage(`{}`)); !errors.Is(err, content.ErrDuplicate) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected duplicate validation error, got %v", err)
	}
	if _, err := items.Create(ctx, "", json.RawMessage(`{}`)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty id, got %v", err)
	}
	if _, err := items.Create(ctx, "c-2", json.RawMessage(`{not json`)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for invalid json, got %v", err)
	}
	if _, err := items.Get(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCompareAndSetStatus(t *testing.T) {
	items := newStore(t)
	ctx := context.Background()
	testsupport.MustCreateItem(t, items, "c-1", map[string]any{})

	if err := items.CompareAndSetStatus(ctx, "c-1", content.StatusReceived, content.StatusAnalyzing); err != nil {
		t.Fatalf("CAS: %v", err)
	}

	err := items.CompareAndSetStatus(ctx, "c-1", content.StatusReceived, content.StatusAnalyzing)
	var stale *content.StaleStatusError
	if !errors.As(err, &stale) || !errors.Is(err, services.ErrStaleStatus) {
		t.Fatalf("expected stale status error, got %v", err)
	}
	if stale.Actual != content.StatusAnalyzing || stale.Expected != content.StatusReceived {
		t.Fatalf("unexpected stale details %+v", stale)
	}

	if err := items.CompareAndSetStatus(ctx, "c-1", content.StatusAnalyzing, content.StatusCompleted); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected illegal transition to be rejected, got %v", err)
	}
}

func TestConcurrentCASHasOneWinner(t *testing.T) {
	items := newStore(t)
	testsupport.MustCreateItem(t, items, "c-race", map[string]any{})

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		stales int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := items.CompareAndSetStatus(context.Background(), "c-race", content.StatusReceived, content.StatusAnalyzing)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if errors.Is(err, services.ErrStaleStatus) {
				stales++
			}
		}()
	}
	wg.Wait()
	if wins != 1 || stales != 4 {
		t.Fatalf("expected exactly one winner, got wins=%d stales=%d", wins, stales)
	}
}

func TestProcessingEndSetOnceAndClearedOnRetry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	items := content.NewStore(testsupport.MustOpenDB(t, cfg), content.WithClock(clock))
	ctx := context.Background()
	testsupport.MustCreateItem(t, items, "c-1", map[string]any{})

	path := []content.Status{
		content.StatusAnalyzing, content.StatusClassified, content.StatusDesignProcessing,
		content.StatusDesignApproved, content.StatusAssetProcessing, content.StatusAssetsValidated,
		content.StatusPageCreated, content.StatusSEOOptimized, content.StatusQualityApproved,
		content.StatusApprovedForPublishing, content.StatusFailed,
	}
	prev := content.StatusReceived
	for _, next := range path {
		if err := items.CompareAndSetStatus(ctx, "c-1", prev, next); err != nil {
			t.Fatalf("%s -> %s: %v", prev, next, err)
		}
		prev = next
	}
	failedAt := now
	item := testsupport.MustGetItem(t, items, "c-1")
	if !item.ProcessingEnd.Equal(failedAt) {
		t.Fatalf("expected processing_end %v, got %v", failedAt, item.ProcessingEnd)
	}

	now = now.Add(time.Hour)
	if err := items.CompareAndSetStatus(ctx, "c-1", content.StatusFailed, content.StatusApprovedForPublishing); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if item := testsupport.MustGetItem(t, items, "c-1"); !item.ProcessingEnd.IsZero() {
		t.Fatalf("expected processing_end cleared on retry, got %v", item.ProcessingEnd)
	}

	now = now.Add(time.Hour)
	if err := items.CompareAndSetStatus(ctx, "c-1", content.StatusApprovedForPublishing, content.StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if item := testsupport.MustGetItem(t, items, "c-1"); !item.ProcessingEnd.Equal(now) {
		t.Fatalf("expected processing_end %v, got %v", now, item.ProcessingEnd)
	}
}

func TestWriteDerivedEnforcesOwnership(t *testing.T) {
	items := newStore(t)
	ctx := context.Background()
	testsupport.MustCreateItem(t, items, "c-1", map[string]any{})

	patch := content.Derived{
		Category:        "AI_TOOLS",
		ConfidenceScore: content.Float(0.91),
		Language:        "eng",
		Analysis:        json.RawMessage(`{"summary":"s"}`),
	}
	if err := items.WriteDerived(ctx, "c-1", string(stagelog.StageAnalysis), patch); err != nil {
		t.Fatalf("WriteDerived: %v", err)
	}
	if err := items.WriteDerived(ctx, "c-1", string(stagelog.StageSEO), content.Derived{Category: "AI_RESEARCH"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ownership violation, got %v", err)
	}
	if err := items.WriteDerived(ctx, "c-1", content.OwnerOrchestrator, content.Derived{ErrorLogs: []content.ErrorLog{{Message: "x"}}}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected error_logs patch to be rejected, got %v", err)
	}

	item := testsupport.MustGetItem(t, items, "c-1")
	if item.Derived.Category != "AI_TOOLS" || item.Derived.ConfidenceScore == nil || *item.Derived.ConfidenceScore != 0.91 {
		t.Fatalf("unexpected derived fields %+v", item.Derived)
	}
	if item.Derived.Language != "eng" || string(item.Derived.Analysis) != `{"summary":"s"}` {
		t.Fatalf("unexpected analysis fields %+v", item.Derived)
	}
	if item.Status != content.StatusReceived {
		t.Fatalf("derived writes must not touch status, got %s", item.Status)
	}
}

func TestAppendErrorLogAccumulates(t *testing.T) {
	items := newStore(t)
	ctx := context.Background()
	testsupport.MustCreateItem(t, items, "c-1", map[string]any{})

	for _, msg := range []string{"first", "second"} {
		if err := items.AppendErrorLog(ctx, "c-1", content.ErrorLog{Stage: stagelog.StageAnalysis, Kind: "malformed_model_output", Message: msg}); err != nil {
			t.Fatalf("AppendErrorLog: %v", err)
		}
	}
	item := testsupport.MustGetItem(t, items, "c-1")
	if len(item.Derived.ErrorLogs) != 2 || item.Derived.ErrorLogs[1].Message != "second" {
		t.Fatalf("unexpected error logs %+v", item.Derived.ErrorLogs)
	}
	if err := items.AppendErrorLog(ctx, "missing", content.ErrorLog{Message: "x"}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListAndStats(t *testing.T) {
	items := newStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		testsupport.MustCreateItem(t, items, id, map[string]any{})
	}
	if err := items.CompareAndSetStatus(ctx, "b", content.StatusReceived, content.StatusAnalyzing); err != nil {
		t.Fatalf("CAS: %v", err)
	}

	received, err := items.ListByStatus(ctx, content.StatusReceived)
	if err != nil || len(received) != 2 {
		t.Fatalf("ListByStatus: %d items, err=%v", len(received), err)
	}
	limited, err := items.List(ctx, content.ListFilter{Limit: 1})
	if err != nil || len(limited) != 1 {
		t.Fatalf("List limit: %d items, err=%v", len(limited), err)
	}
	stats, err := items.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[content.StatusReceived] != 2 || stats[content.StatusAnalyzing] != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestCreateManyRollsBackOnDuplicate(t *testing.T) {
	items := newStore(t)
	ctx := context.Background()

	_, err := items.CreateMany(ctx, []content.Draft{
		{ContentID: "fresh", Raw: json.RawMessage(`{"title":"one"}`)},
		{ContentID: "fresh", Raw: json.RawMessage(`{"title":"two"}`)},
	})
	if !errors.Is(err, content.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if _, err := items.Get(ctx, "fresh"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected no item after rollback, got %v", err)
	}

	created, err := items.CreateMany(ctx, []content.Draft{
		{ContentID: "x", Raw: json.RawMessage(`{}`)},
		{ContentID: " y ", Raw: json.RawMessage(`[]`)},
	})
	if err != nil || len(created) != 2 || created[1].ContentID != "y" {
		t.Fatalf("CreateMany: %+v err=%v", created, err)
	}
}

func TestInsertRecordsRejectsDuplicates(t *testing.T) {
	items := newStore(t)
	ctx := context.Background()

	n, err := items.InsertRecords(ctx, "trend", []content.Record{
		{Key: "agents", Category: "AI_DEVELOPMENT", Payload: json.RawMessage(`{"name":"agents"}`)},
		{Key: "rag", Category: "AI_RESEARCH"},
	})
	if err != nil || n != 2 {
		t.Fatalf("InsertRecords: n=%d err=%v", n, err)
	}
	if _, err := items.InsertRecords(ctx, "TREND", []content.Record{{Key: "agents"}}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected duplicate to fail validation, got %v", err)
	}
	records, err := items.Records(ctx, "TREND", 0)
	if err != nil || len(records) != 2 {
		t.Fatalf("Records: %d err=%v", len(records), err)
	}
	if records[0].Key != "rag" || records[1].Category != "AI_DEVELOPMENT" {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestParseStatusAndTransitions(t *testing.T) {
	if s, err := content.ParseStatus(" SEO_OPTIMIZED "); err != nil || s != content.StatusSEOOptimized {
		t.Fatalf("ParseStatus: %v %v", s, err)
	}
	if _, err := content.ParseStatus("drafted"); err == nil {
		t.Fatal("expected unknown status error")
	}
	cases := []struct {
		from, to content.Status
		ok       bool
	}{
		{content.StatusRequiresManualReview, content.StatusApprovedForPublishing, true},
		{content.StatusSEOOptimized, content.StatusRequiresManualReview, true},
		{content.StatusCompleted, content.StatusReceived, false},
		{content.StatusReceived, content.StatusClassified, false},
	}
	for _, tc := range cases {
		if got := content.CanTransition(tc.from, tc.to); got != tc.ok {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}
