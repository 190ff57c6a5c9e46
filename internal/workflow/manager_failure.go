package workflow

import (
	"context"
	"log/slog"
	"strings"

	"pressline/internal/content"
	"pressline/internal/logging"
	"pressline/internal/services"
	"pressline/internal/stagelog"
)

// handleStageFailure closes attempt as failed, appends to the item's
// error_logs, and moves the item back to origin (or the stage's failure
// status). Only storage errors escape.
func (m *Manager) handleStageFailure(ctx context.Context, logger *slog.Logger, stg pipelineStage, attempt stagelog.Attempt, entry, origin content.Status, stageErr error, detail any, outcome Outcome) (Outcome, error) {
	failure := stagelog.FailureFromError(stageErr)
	rec, err := m.log.Fail(ctx, attempt, failure, detail)
	if err != nil {
		m.restoreStatus(ctx, logger, attempt.ContentID, entry, origin)
		return outcome, err
	}
	if err := m.items.AppendErrorLog(ctx, attempt.ContentID, content.ErrorLog{
		Stage:     stg.name,
		AttemptID: attempt.ID,
		Kind:      failure.Kind,
		Message:   failure.Message,
	}); err != nil {
		if services.IsFatal(err) {
			m.restoreStatus(ctx, logger, attempt.ContentID, entry, origin)
			return outcome, err
		}
		logging.WarnWithContext(logger, "failed to append error log", "error_log_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "failure is recorded in the stage log only"),
		)
	}

	target := origin
	if stg.failureStatus != "" {
		target = stg.failureStatus
	}
	if target != entry {
		if err := m.transition(ctx, logger, attempt.ContentID, entry, target); err != nil {
			return outcome, err
		}
	}

	attrs := []logging.Attr{
		logging.String("resolved_status", string(target)),
		logging.String("error_message", strings.TrimSpace(failure.Message)),
		logging.Alert("stage_failure"),
		logging.Duration("stage_duration", outcome.Duration),
	}
	attrs = append(attrs, logging.ErrorDetails(stageErr)...)
	logging.ErrorWithContext(logger, "stage failed", "stage_failure", attrs...)

	outcome.Failed = true
	outcome.Status = target
	outcome.ErrorKind = failure.Kind
	outcome.Error = failure.Message
	outcome.Detail = rec.Detail
	outcome.Err = stageErr

	m.observer.ObserveStage(string(stg.name), "failed", outcome.Duration)
	m.setLastError(stageErr)
	m.rememberItem(ctx, attempt.ContentID)
	m.notifyStageError(ctx, stg.name, attempt.ContentID, stageErr)
	return outcome, nil
}
