package workflow

import (
	"context"
	"fmt"
	"time"

	"pressline/internal/content"
	"pressline/internal/logging"
	"pressline/internal/services"
	"pressline/internal/stagelog"
)

// ReclaimStale closes attempts that stayed open longer than the configured
// stale age. Each is recorded as a timeout failure and, when the item still
// holds the stage's processing status, the item returns to the start status.
func (m *Manager) ReclaimStale(ctx context.Context) (int, error) {
	age := m.cfg.StaleAttemptAge()
	attempts, err := m.log.OpenAttempts(ctx, m.now().Add(-age))
	if err != nil {
		return 0, err
	}
	reclaimed := 0
	for _, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return reclaimed, err
		}
		if err := m.reclaimAttempt(ctx, attempt, age); err != nil {
			if services.IsFatal(err) {
				return reclaimed, err
			}
			logging.WarnWithContext(logging.WithContext(withStageContext(ctx, attempt.ContentID, attempt.Stage), m.logger),
				"failed to reclaim stale attempt", "reclaim_failed",
				logging.String(logging.FieldAttemptID, attempt.ID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "attempt is retried on the next sweep"),
			)
			continue
		}
		reclaimed++
	}
	return reclaimed, nil
}

func (m *Manager) reclaimAttempt(ctx context.Context, attempt stagelog.Attempt, age time.Duration) error {
	ctx = withStageContext(ctx, attempt.ContentID, attempt.Stage)
	logger := logging.WithContext(ctx, m.logger).With(logging.String(logging.FieldAttemptID, attempt.ID))

	failure := stagelog.Failure{
		Kind:    string(services.KindExternalServiceTimeout),
		Message: fmt.Sprintf("attempt abandoned; no result after %s", age),
	}
	if _, err := m.log.Fail(ctx, attempt, failure, nil); err != nil {
		return err
	}
	if err := m.items.AppendErrorLog(ctx, attempt.ContentID, content.ErrorLog{
		Stage:     attempt.Stage,
		AttemptID: attempt.ID,
		Kind:      failure.Kind,
		Message:   failure.Message,
	}); err != nil && services.IsFatal(err) {
		return err
	}

	stg, err := m.lookupStage(attempt.Stage)
	if err == nil && stg.processingStatus != "" {
		item, err := m.items.Get(ctx, attempt.ContentID)
		if err != nil {
			return err
		}
		if item.Status == stg.processingStatus {
			if err := m.transition(ctx, logger, item.ContentID, item.Status, stg.startStatus); err != nil {
				return err
			}
		}
	}
	logging.WarnWithContext(logger, "reclaimed stale attempt", "attempt_reclaimed",
		logging.String(logging.FieldErrorKind, failure.Kind),
		logging.String(logging.FieldErrorHint, "check why the stage did not finish"),
		logging.String(logging.FieldImpact, "stage runs again on the next trigger"),
	)
	return nil
}
