package workflow

import (
	"context"
	"strings"

	"pressline/internal/content"
	"pressline/internal/logging"
	"pressline/internal/services"
	"pressline/internal/stagelog"
)

// Approve releases a quality-approved or reviewed item for publishing.
func (m *Manager) Approve(ctx context.Context, contentID, reason string) (*content.Item, error) {
	return m.operatorTransition(ctx, contentID, "release", reason, content.StatusApprovedForPublishing,
		content.StatusQualityApproved, content.StatusRequiresManualReview)
}

// HoldForReview routes an item that passed SEO to manual review.
func (m *Manager) HoldForReview(ctx context.Context, contentID, reason string) (*content.Item, error) {
	item, err := m.operatorTransition(ctx, contentID, "manual_review", reason, content.StatusRequiresManualReview,
		content.StatusSEOOptimized, content.StatusQualityApproved)
	if err != nil {
		return nil, err
	}
	m.notifyManualReview(ctx, contentID, reason)
	return item, nil
}

// Retry moves a failed item back to the start status of the stage that
// failed it, clearing processing_end.
func (m *Manager) Retry(ctx context.Context, contentID string) (*content.Item, error) {
	item, err := m.items.Get(ctx, contentID)
	if err != nil {
		return nil, err
	}
	target, err := m.retryTarget(ctx, contentID)
	if err != nil {
		return nil, err
	}
	return m.operatorTransition(ctx, item.ContentID, "retry", "operator retry", target, content.StatusFailed)
}

func (m *Manager) retryTarget(ctx context.Context, contentID string) (content.Status, error) {
	history, err := m.log.History(ctx, contentID)
	if err != nil {
		return "", err
	}
	for i := len(history) - 1; i >= 0; i-- {
		rec := history[i]
		if rec.Status != stagelog.StatusFailed || rec.ErrorKind == stagelog.KindQualityBelowThreshold {
			continue
		}
		if stg, err := m.lookupStage(rec.Stage); err == nil {
			return stg.startStatus, nil
		}
	}
	return content.StatusApprovedForPublishing, nil
}

func (m *Manager) operatorTransition(ctx context.Context, contentID, decision, reason string, next content.Status, allowed ...content.Status) (*content.Item, error) {
	item, err := m.items.Get(ctx, contentID)
	if err != nil {
		return nil, err
	}
	permitted := false
	for _, status := range allowed {
		if item.Status == status {
			permitted = true
			break
		}
	}
	if !permitted {
		return nil, &content.StaleStatusError{ContentID: item.ContentID, Expected: allowed[0], Actual: item.Status, Next: next}
	}

	logger := logging.WithContext(services.WithContentID(ctx, item.ContentID), m.logger)
	if err := m.transition(ctx, logger, item.ContentID, item.Status, next); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	attrs := logging.DecisionAttrs(decision, string(next), reason)
	attrs = append(attrs,
		logging.String(logging.FieldEventType, "operator_transition"),
		logging.String("from_status", string(item.Status)),
	)
	logger.Info("item status changed", logging.Args(attrs...)...)

	updated, err := m.items.Get(ctx, item.ContentID)
	if err != nil {
		return nil, err
	}
	m.setLastItem(updated)
	return updated, nil
}
