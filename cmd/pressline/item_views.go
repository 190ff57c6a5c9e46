package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"pressline/internal/api"
	"pressline/internal/content"
)

func buildItemListRows(items []api.Item) [][]string {
	if len(items) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = "Untitled"
		}
		rows = append(rows, []string{
			item.ContentID,
			title,
			formatStatusLabel(item.Status),
			fallback(item.Category, "-"),
			formatConfidence(item.ConfidenceScore),
			formatDisplayTime(item.UpdatedAt),
		})
	}
	return rows
}

func buildStatusCountRows(stats map[string]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range orderedStatuses(stats) {
		rows = append(rows, []string{formatStatusLabel(status), fmt.Sprintf("%d", stats[status])})
	}
	return rows
}

// orderedStatuses lists non-zero statuses in pipeline order, then any others.
func orderedStatuses(stats map[string]int) []string {
	known := content.AllStatuses()
	seen := make(map[string]bool, len(known))
	out := make([]string, 0, len(stats))
	for _, status := range known {
		seen[string(status)] = true
		if stats[string(status)] > 0 {
			out = append(out, string(status))
		}
	}
	extra := make([]string, 0)
	for status, count := range stats {
		if !seen[status] && count > 0 {
			extra = append(extra, status)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func buildHistoryRows(records []api.StageRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		outcome := formatStatusLabel(rec.Status)
		if rec.ErrorKind != "" {
			outcome = fmt.Sprintf("%s (%s)", outcome, rec.ErrorKind)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", rec.ID),
			rec.Stage,
			shortAttempt(rec.AttemptID),
			outcome,
			formatDisplayTime(rec.StartedAt),
			formatDuration(rec.StartedAt, rec.CompletedAt),
		})
	}
	return rows
}

func itemDetailLines(item api.Item) []string {
	lines := []string{
		fmt.Sprintf("Content ID:  %s", item.ContentID),
		fmt.Sprintf("Title:       %s", fallback(item.Title, "Untitled")),
		fmt.Sprintf("Status:      %s", formatStatusLabel(item.Status)),
		fmt.Sprintf("Category:    %s", fallback(item.Category, "-")),
		fmt.Sprintf("Confidence:  %s", formatConfidence(item.ConfidenceScore)),
		fmt.Sprintf("Language:    %s", fallback(item.Language, "-")),
		fmt.Sprintf("Terminal:    %s", yesNo(item.Terminal)),
		fmt.Sprintf("Review:      %s", yesNo(item.AwaitingReview)),
	}
	if item.ProcessingStart != "" {
		lines = append(lines, fmt.Sprintf("Started:     %s", formatDisplayTime(item.ProcessingStart)))
	}
	if item.ProcessingEnd != "" {
		lines = append(lines, fmt.Sprintf("Finished:    %s", formatDisplayTime(item.ProcessingEnd)))
	}
	for _, section := range []struct {
		name string
		raw  json.RawMessage
	}{
		{"Analysis", item.Analysis},
		{"Design", item.Design},
		{"Assets", item.AssetReport},
		{"SEO", item.SEOElements},
		{"Quality", item.QualityMetrics},
	} {
		if len(section.raw) == 0 {
			continue
		}
		lines = append(lines, "", section.name+":", indentJSON(section.raw))
	}
	if len(item.ErrorLogs) > 0 {
		lines = append(lines, "", "Errors:")
		for _, entry := range item.ErrorLogs {
			lines = append(lines, fmt.Sprintf("  %s [%s] %s: %s", formatDisplayTime(entry.At), entry.Stage, entry.Kind, entry.Message))
		}
	}
	return lines
}

func indentJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "  ", "  "); err != nil {
		return "  " + string(raw)
	}
	return "  " + buf.String()
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	t := parseAPITime(value)
	if t.IsZero() {
		return strings.TrimSpace(value)
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func formatDuration(start, end string) string {
	from, to := parseAPITime(start), parseAPITime(end)
	if from.IsZero() || to.IsZero() {
		return "-"
	}
	return to.Sub(from).Round(time.Millisecond).String()
}

func parseAPITime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

func formatConfidence(score *float64) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *score)
}

func shortAttempt(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func fallback(value, alt string) string {
	if strings.TrimSpace(value) == "" {
		return alt
	}
	return value
}
