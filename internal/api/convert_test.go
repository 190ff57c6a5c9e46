package api

import (
	"encoding/json"
	"testing"
	"time"

	"pressline/internal/content"
	"pressline/internal/stage"
	"pressline/internal/stagelog"
	"pressline/internal/workflow"
)

func TestFromItemLiftsTitleAndErrorLogs(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	item := &content.Item{
		ContentID:  "c-1",
		Status:     content.StatusFailed,
		RawPayload: json.RawMessage(`{"title":"Submitted title"}`),
		Derived: content.Derived{
			Category: "AI_RESEARCH",
			Page:     json.RawMessage(`{"title":"Composed title"}`),
			ErrorLogs: []content.ErrorLog{{
				Stage:   stagelog.StageDeployment,
				Kind:    "external_service",
				Message: "webhook returned 500",
				At:      at,
			}},
		},
		ProcessingStart: at,
		ProcessingEnd:   at.Add(time.Minute),
	}
	dto := FromItem(item)
	if dto.Title != "Composed title" {
		t.Fatalf("expected page title, got %q", dto.Title)
	}
	if !dto.Terminal || dto.AwaitingReview {
		t.Fatalf("unexpected flags: terminal=%v review=%v", dto.Terminal, dto.AwaitingReview)
	}
	if len(dto.ErrorLogs) != 1 || dto.ErrorLogs[0].Stage != "deployment" {
		t.Fatalf("unexpected error logs: %+v", dto.ErrorLogs)
	}
	if dto.ProcessingEnd != "2026-03-04T05:07:07.000Z" {
		t.Fatalf("unexpected processing_end %q", dto.ProcessingEnd)
	}
	if dto.CreatedAt != "" {
		t.Fatalf("expected zero time to be omitted, got %q", dto.CreatedAt)
	}
}

func TestItemTitleFallsBackToPayload(t *testing.T) {
	item := &content.Item{RawPayload: json.RawMessage(`{"title":"  Submitted  "}`)}
	if got := ItemTitle(item); got != "Submitted" {
		t.Fatalf("unexpected title %q", got)
	}
	if got := ItemTitle(&content.Item{RawPayload: json.RawMessage(`not json`)}); got != "" {
		t.Fatalf("expected empty title for bad payload, got %q", got)
	}
}

func TestSummaryItemDropsPayloads(t *testing.T) {
	item := &content.Item{
		ContentID:  "c-2",
		Status:     content.StatusRequiresManualReview,
		RawPayload: json.RawMessage(`{"title":"T"}`),
		Derived:    content.Derived{Page: json.RawMessage(`{"title":"Page"}`)},
	}
	dto := SummaryItem(item)
	if dto.RawPayload != nil || dto.Page != nil {
		t.Fatal("expected payload fields to be dropped")
	}
	if dto.Title != "Page" || !dto.AwaitingReview {
		t.Fatalf("unexpected summary %+v", dto)
	}
}

func TestFromStatusSummaryFillsStatsAndOrdersHealth(t *testing.T) {
	summary := workflow.StatusSummary{
		Running: true,
		Stats:   map[content.Status]int{content.StatusReceived: 2},
		StageHealth: map[string]stage.Health{
			"deployment": stage.Unhealthy("deployment", "webhook not configured"),
			"analysis":   stage.Healthy("analysis"),
			"seo":        stage.Healthy("seo"),
		},
		LastItem: &content.Item{ContentID: "c-3", Status: content.StatusCompleted},
	}
	wf := FromStatusSummary(summary)
	if wf.Stats["received"] != 2 || wf.Stats["completed"] != 0 {
		t.Fatalf("unexpected stats %+v", wf.Stats)
	}
	if len(wf.Stats) != len(content.AllStatuses()) {
		t.Fatalf("expected every status present, got %d", len(wf.Stats))
	}
	names := []string{wf.StageHealth[0].Name, wf.StageHealth[1].Name, wf.StageHealth[2].Name}
	if names[0] != "analysis" || names[1] != "seo" || names[2] != "deployment" {
		t.Fatalf("unexpected health order %v", names)
	}
	if wf.StageHealth[2].Ready {
		t.Fatal("expected deployment to be unready")
	}
	if wf.LastItem == nil || wf.LastItem.ContentID != "c-3" {
		t.Fatalf("unexpected last item %+v", wf.LastItem)
	}
}

func TestFromOutcomeReportsMilliseconds(t *testing.T) {
	resp := FromOutcome(workflow.Outcome{
		ContentID:      "c-4",
		Stage:          stagelog.StageSEO,
		PreviousStatus: content.StatusPageCreated,
		Status:         content.StatusSEOOptimized,
		Duration:       1500 * time.Millisecond,
	})
	if resp.DurationMS != 1500 || resp.Stage != "seo" || resp.Status != "seo_optimized" {
		t.Fatalf("unexpected response %+v", resp)
	}
}
