package api

import (
	"encoding/json"
	"strings"

	"pressline/internal/content"
)

// PayloadField extracts a string field from a JSON object.
func PayloadField(raw json.RawMessage, field, fallback string) string {
	if len(raw) == 0 {
		return fallback
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fallback
	}
	value, ok := payload[field].(string)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

// ItemTitle prefers the composed page title, then the submitted title.
func ItemTitle(item *content.Item) string {
	if item == nil {
		return ""
	}
	if title := PayloadField(item.Derived.Page, "title", ""); title != "" {
		return title
	}
	return PayloadField(item.RawPayload, "title", "")
}
