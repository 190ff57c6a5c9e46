package api

import (
	"slices"
	"time"

	"pressline/internal/content"
	"pressline/internal/stage"
	"pressline/internal/stagelog"
	"pressline/internal/workflow"
)

// FromItem converts a content item to its API representation.
func FromItem(item *content.Item) Item {
	if item == nil {
		return Item{}
	}
	d := item.Derived
	dto := Item{
		ContentID:       item.ContentID,
		Status:          string(item.Status),
		Title:           ItemTitle(item),
		Category:        d.Category,
		ConfidenceScore: d.ConfidenceScore,
		Language:        d.Language,
		Terminal:        item.Status.IsTerminal(),
		AwaitingReview:  item.Status.AwaitingHuman(),
		RawPayload:      item.RawPayload,
		Analysis:        d.Analysis,
		Design:          d.Design,
		AssetReport:     d.AssetReport,
		Page:            d.Page,
		SEOElements:     d.SEOElements,
		QualityMetrics:  d.QualityMetrics,
		ProcessingStart: FormatTime(item.ProcessingStart),
		ProcessingEnd:   FormatTime(item.ProcessingEnd),
		CreatedAt:       FormatTime(item.CreatedAt),
		UpdatedAt:       FormatTime(item.UpdatedAt),
	}
	for _, entry := range d.ErrorLogs {
		dto.ErrorLogs = append(dto.ErrorLogs, ErrorLog{
			Stage:     string(entry.Stage),
			AttemptID: entry.AttemptID,
			Kind:      entry.Kind,
			Message:   entry.Message,
			At:        FormatTime(entry.At),
		})
	}
	return dto
}

// FromItems converts a slice of items into API DTOs.
func FromItems(items []*content.Item) []Item {
	if len(items) == 0 {
		return nil
	}
	out := make([]Item, 0, len(items))
	for _, item := range items {
		out = append(out, FromItem(item))
	}
	return out
}

// SummaryItem drops the bulky payload fields for listings.
func SummaryItem(item *content.Item) Item {
	dto := FromItem(item)
	dto.RawPayload = nil
	dto.Analysis = nil
	dto.Design = nil
	dto.AssetReport = nil
	dto.Page = nil
	dto.SEOElements = nil
	dto.QualityMetrics = nil
	return dto
}

// FromRecord converts a Stage Log record.
func FromRecord(rec stagelog.Record) StageRecord {
	return StageRecord{
		ID:           rec.ID,
		Stage:        string(rec.Stage),
		AttemptID:    rec.AttemptID,
		Status:       string(rec.Status),
		StartedAt:    FormatTime(rec.StartedAt),
		CompletedAt:  FormatTime(rec.CompletedAt),
		ErrorMessage: rec.ErrorMessage,
		ErrorKind:    rec.ErrorKind,
		Detail:       rec.Detail,
	}
}

// FromRecords converts records preserving append order.
func FromRecords(records []stagelog.Record) []StageRecord {
	out := make([]StageRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, FromRecord(rec))
	}
	return out
}

// FromOutcome converts a trigger outcome.
func FromOutcome(outcome workflow.Outcome) TriggerResponse {
	return TriggerResponse{
		ContentID:      outcome.ContentID,
		Stage:          string(outcome.Stage),
		AttemptID:      outcome.AttemptID,
		PreviousStatus: string(outcome.PreviousStatus),
		Status:         string(outcome.Status),
		Skipped:        outcome.Skipped,
		Held:           outcome.Held,
		Failed:         outcome.Failed,
		Reason:         outcome.Reason,
		ErrorKind:      outcome.ErrorKind,
		Error:          outcome.Error,
		Detail:         outcome.Detail,
		DurationMS:     outcome.Duration.Milliseconds(),
	}
}

// FromStatusSummary converts a workflow summary.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:     summary.Running,
		Stats:       MergeStats(summary.Stats),
		LastError:   summary.LastError,
		LastSweep:   FormatTime(summary.LastSweep),
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	if summary.LastItem != nil {
		item := SummaryItem(summary.LastItem)
		wf.LastItem = &item
	}
	return wf
}

// MergeStats keys counts by status string with every status present.
func MergeStats(stats map[content.Status]int) map[string]int {
	out := make(map[string]int, len(content.AllStatuses()))
	for _, status := range content.AllStatuses() {
		out[string(status)] = 0
	}
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// StageHealthSlice converts a stage health map into a deterministic slice
// ordered by pipeline position.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		return stagePosition(a) - stagePosition(b)
	})

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

func stagePosition(name string) int {
	if i := slices.Index(stagelog.Canonical(), stagelog.Stage(name)); i >= 0 {
		return i
	}
	return len(stagelog.Canonical())
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
