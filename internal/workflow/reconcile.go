package workflow

import (
	"context"

	"pressline/internal/content"
	"pressline/internal/logging"
	"pressline/internal/stagelog"
)

// Reconcile repairs status writes that lagged the stage log. Starting from
// the item's current status it replays every stage whose last completed
// record was never followed by its status write, and returns claims that
// no open attempt backs to the stage's start status. It returns the
// refreshed item and the number of status writes applied.
func (m *Manager) Reconcile(ctx context.Context, contentID string) (*content.Item, int, error) {
	applied := 0
	for range len(stagelog.Canonical()) + 1 {
		item, err := m.items.Get(ctx, contentID)
		if err != nil {
			return nil, applied, err
		}
		stg, ok := m.stageForStatus(item.Status)
		if !ok {
			return item, applied, nil
		}
		_, open, err := m.log.OpenAttempt(ctx, item.ContentID, stg.name)
		if err != nil {
			return item, applied, err
		}
		if open {
			return item, applied, nil
		}

		ctx := withStageContext(ctx, item.ContentID, stg.name)
		logger := logging.WithContext(ctx, m.logger)
		prior, done, err := m.log.LastSuccess(ctx, item.ContentID, stg.name)
		if err != nil {
			return item, applied, err
		}
		if !done {
			if item.Status != stg.processingStatus || stg.processingStatus == "" {
				return item, applied, nil
			}
			// Claims younger than the stale age may still be opening their attempt.
			if m.now().Sub(item.UpdatedAt) < m.cfg.StaleAttemptAge() {
				return item, applied, nil
			}
			// A processing status with no open attempt is an orphaned claim.
			if err := m.transition(ctx, logger, item.ContentID, item.Status, stg.startStatus); err != nil {
				return item, applied, err
			}
			applied++
			logging.WarnWithContext(logger, "released orphaned stage claim", "claim_released",
				logging.String("from_status", string(item.Status)),
				logging.String(logging.FieldImpact, "stage runs again on the next trigger"),
			)
			continue
		}

		status, err := m.replayStatus(ctx, logger, stg, item.ContentID, item.Status, prior)
		if err != nil {
			return item, applied, err
		}
		applied++
		logger.Info("reconciled lagging status",
			logging.String(logging.FieldEventType, "status_reconciled"),
			logging.String("from_status", string(item.Status)),
			logging.String("to_status", string(status)),
		)
	}
	item, err := m.items.Get(ctx, contentID)
	return item, applied, err
}
