package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pressline/internal/logging"
	"pressline/internal/notifications"
	"pressline/internal/stagelog"
)

func (m *Manager) notifyStageError(ctx context.Context, name stagelog.Stage, contentID string, stageErr error) {
	if stageErr == nil {
		return
	}
	m.publish(ctx, notifications.EventStageFailed, notifications.Payload{
		"error":     stageErr,
		"context":   fmt.Sprintf("%s (%s)", name, contentID),
		"contentID": contentID,
	})
}

func (m *Manager) notifyManualReview(ctx context.Context, contentID, reason string) {
	m.publish(ctx, notifications.EventManualReview, notifications.Payload{
		"title":     m.pageTitle(ctx, contentID),
		"contentID": contentID,
		"reason":    reason,
	})
}

func (m *Manager) notifyPublished(ctx context.Context, contentID string, detail json.RawMessage) {
	var deployed struct {
		URL string `json:"url"`
	}
	if len(detail) > 0 {
		_ = json.Unmarshal(detail, &deployed)
	}
	m.publish(ctx, notifications.EventPublished, notifications.Payload{
		"title":     m.pageTitle(ctx, contentID),
		"contentID": contentID,
		"url":       deployed.URL,
	})
}

func (m *Manager) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		logger := logging.WithContext(ctx, m.logger)
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send notification")
			return
		}
		logger.Debug("notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}

// pageTitle prefers the composed page title and falls back to the analysis title.
func (m *Manager) pageTitle(ctx context.Context, contentID string) string {
	item, err := m.items.Get(ctx, contentID)
	if err != nil {
		return ""
	}
	var titled struct {
		Title string `json:"title"`
	}
	for _, raw := range [][]byte{item.Derived.Page, item.Derived.Analysis} {
		if len(raw) == 0 {
			continue
		}
		if err := json.Unmarshal(raw, &titled); err == nil && strings.TrimSpace(titled.Title) != "" {
			return strings.TrimSpace(titled.Title)
		}
	}
	return ""
}
