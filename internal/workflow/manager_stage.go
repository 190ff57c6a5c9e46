package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"pressline/internal/content"
	"pressline/internal/logging"
	"pressline/internal/services"
	"pressline/internal/stage"
	"pressline/internal/stagelog"
)

// Trigger runs one stage for one item.
//
// A stage with a completed record is not executed again unless opts.Force is
// set; the recorded result is returned with Skipped set, and a status write
// that lagged the record is replayed. Stage failures are reported on the
// Outcome. The returned error is reserved for unknown items or stages, status
// conflicts, open attempts, and storage unavailability.
func (m *Manager) Trigger(ctx context.Context, contentID string, name stagelog.Stage, opts TriggerOptions) (Outcome, error) {
	stg, err := m.lookupStage(name)
	if err != nil {
		return Outcome{}, err
	}
	item, err := m.items.Get(ctx, contentID)
	if err != nil {
		return Outcome{}, err
	}

	ctx = withStageContext(ctx, item.ContentID, stg.name)
	logger, closeLog := m.attemptLogger(ctx, item.ContentID)
	defer closeLog()

	outcome := Outcome{
		ContentID:      item.ContentID,
		Stage:          stg.name,
		PreviousStatus: item.Status,
		Status:         item.Status,
	}

	if !opts.Force {
		prior, ok, err := m.log.LastSuccess(ctx, item.ContentID, stg.name)
		if err != nil {
			return outcome, err
		}
		if ok {
			return m.replay(ctx, logger, stg, item, prior, outcome)
		}
	}

	origin := item.Status
	if !m.mayEnter(stg, origin, opts.Force) {
		return outcome, &content.StaleStatusError{
			ContentID: item.ContentID,
			Expected:  stg.startStatus,
			Actual:    origin,
			Next:      stg.entryStatus(stg.startStatus),
		}
	}
	entry := stg.entryStatus(origin)
	if err := m.transition(ctx, logger, item.ContentID, origin, entry); err != nil {
		return outcome, err
	}
	item.Status = entry

	attempt, err := m.log.Begin(ctx, item.ContentID, stg.name)
	if err != nil {
		m.restoreStatus(context.WithoutCancel(ctx), logger, item.ContentID, entry, origin)
		return outcome, err
	}
	outcome.AttemptID = attempt.ID
	logger = logger.With(logging.String(logging.FieldAttemptID, attempt.ID))

	started := m.now()
	logger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("origin_status", string(origin)),
		logging.String("entry_status", string(entry)),
		logging.Bool("forced", opts.Force),
	)

	result, runErr := m.runHandler(ctx, stg, item)
	outcome.Duration = m.now().Sub(started)

	// Persistence after the handler returns must survive caller cancellation so
	// the attempt is always closed.
	persistCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		if services.IsFatal(runErr) {
			m.restoreStatus(persistCtx, logger, item.ContentID, entry, origin)
			return outcome, runErr
		}
		return m.handleStageFailure(persistCtx, logger, stg, attempt, entry, origin, runErr, result.Detail, outcome)
	}

	if err := m.items.WriteDerived(persistCtx, item.ContentID, string(stg.name), result.Patch); err != nil {
		if services.IsFatal(err) {
			m.restoreStatus(persistCtx, logger, item.ContentID, entry, origin)
			return outcome, err
		}
		return m.handleStageFailure(persistCtx, logger, stg, attempt, entry, origin, err, result.Detail, outcome)
	}

	if result.Decision == stage.DecisionHold {
		return m.holdAttempt(persistCtx, logger, stg, attempt, entry, origin, result, outcome)
	}

	rec, err := m.log.Complete(persistCtx, attempt, result.Detail)
	if err != nil {
		m.restoreStatus(persistCtx, logger, item.ContentID, entry, origin)
		return outcome, err
	}
	outcome.Detail = rec.Detail
	outcome.Reason = result.Reason

	target := stg.doneStatus
	label := "completed"
	if result.Decision == stage.DecisionReview && stg.reviewStatus != "" {
		target = stg.reviewStatus
		label = "review"
	}
	if err := m.transition(persistCtx, logger, item.ContentID, entry, target); err != nil {
		// The completed record stands; Reconcile replays the status write.
		return outcome, err
	}
	m.observer.ObserveStage(string(stg.name), label, outcome.Duration)

	logger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(target)),
		logging.Duration("stage_duration", outcome.Duration),
	)
	outcome.Status = m.afterTransition(persistCtx, logger, item.ContentID, target, rec.Detail, result.Reason)
	m.rememberItem(persistCtx, item.ContentID)
	return outcome, nil
}

// mayEnter reports whether a stage may start from status. Forced re-runs may
// also start from the stage's own done status while the item is not terminal.
func (m *Manager) mayEnter(stg pipelineStage, status content.Status, force bool) bool {
	if status == stg.startStatus {
		return true
	}
	if !force || status != stg.doneStatus || status.IsTerminal() {
		return false
	}
	entry := stg.entryStatus(status)
	return entry == status || content.CanTransition(status, entry)
}

func (m *Manager) runHandler(ctx context.Context, stg pipelineStage, item *content.Item) (stage.Result, error) {
	stageCtx, cancel := context.WithTimeout(ctx, m.cfg.StageTimeout())
	defer cancel()

	if err := stg.handler.Prepare(stageCtx, item); err != nil {
		return stage.Result{}, deadlineError(stageCtx, stg.name, err)
	}
	result, err := stg.handler.Execute(stageCtx, item)
	if err != nil {
		return result, deadlineError(stageCtx, stg.name, err)
	}
	return result, nil
}

// deadlineError tags errors caused by the stage deadline so they classify as
// collaborator timeouts.
func deadlineError(ctx context.Context, name stagelog.Stage, err error) error {
	if errors.Is(err, services.ErrExternalServiceTimeout) || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return err
	}
	return services.Wrap(services.ErrExternalServiceTimeout, string(name), "execute", "stage deadline exceeded", err)
}

// holdAttempt closes a quality hold. The gate's metrics are kept, the attempt
// is recorded as a below-threshold failure, and the status is left for the
// sweeper to re-evaluate. Holds are not errors and skip error_logs.
func (m *Manager) holdAttempt(ctx context.Context, logger *slog.Logger, stg pipelineStage, attempt stagelog.Attempt, entry, origin content.Status, result stage.Result, outcome Outcome) (Outcome, error) {
	rec, err := m.log.Fail(ctx, attempt, stagelog.Failure{Kind: stagelog.KindQualityBelowThreshold, Message: result.Reason}, result.Detail)
	if err != nil {
		m.restoreStatus(ctx, logger, attempt.ContentID, entry, origin)
		return outcome, err
	}
	if entry != origin {
		if err := m.transition(ctx, logger, attempt.ContentID, entry, origin); err != nil {
			return outcome, err
		}
	}
	outcome.Held = true
	outcome.Status = origin
	outcome.Reason = result.Reason
	outcome.Detail = rec.Detail
	m.observer.ObserveStage(string(stg.name), "held", outcome.Duration)

	attrs := logging.DecisionAttrs("quality_hold", "held", result.Reason)
	attrs = append(attrs, logging.String(logging.FieldEventType, "stage_held"))
	logger.Info("item held below quality threshold", logging.Args(attrs...)...)
	return outcome, nil
}

// replay answers a non-forced trigger for a stage that already completed.
// When the item still sits on the stage's start or processing status, the
// status write that should have followed the completed record is applied.
func (m *Manager) replay(ctx context.Context, logger *slog.Logger, stg pipelineStage, item *content.Item, prior stagelog.Record, outcome Outcome) (Outcome, error) {
	outcome.Skipped = true
	outcome.AttemptID = prior.AttemptID
	outcome.Detail = prior.Detail
	m.observer.ObserveStage(string(stg.name), "skipped", 0)

	lagging := item.Status == stg.startStatus || (stg.processingStatus != "" && item.Status == stg.processingStatus)
	if !lagging {
		attrs := logging.DecisionAttrs("stage_trigger", "skip", "stage already completed")
		attrs = append(attrs, logging.String("attempt", prior.AttemptID))
		logger.Debug("stage already completed", logging.Args(attrs...)...)
		return outcome, nil
	}
	if _, open, err := m.log.OpenAttempt(ctx, item.ContentID, stg.name); err != nil {
		return outcome, err
	} else if open {
		return outcome, nil
	}

	status, err := m.replayStatus(ctx, logger, stg, item.ContentID, item.Status, prior)
	if err != nil {
		return outcome, err
	}
	outcome.Status = status
	attrs := logging.DecisionAttrs("stage_trigger", "replay", "status lagged completed record")
	attrs = append(attrs,
		logging.String(logging.FieldEventType, "stage_replayed"),
		logging.String("next_status", string(status)),
	)
	logger.Info("replayed completed stage", logging.Args(attrs...)...)
	return outcome, nil
}

// replayStatus walks current through the processing status to the status
// prior's result selects.
func (m *Manager) replayStatus(ctx context.Context, logger *slog.Logger, stg pipelineStage, contentID string, current content.Status, prior stagelog.Record) (content.Status, error) {
	if current == stg.startStatus && stg.processingStatus != "" {
		if err := m.transition(ctx, logger, contentID, current, stg.processingStatus); err != nil {
			return current, err
		}
		current = stg.processingStatus
	}
	target := m.recordedTarget(stg, prior)
	if err := m.transition(ctx, logger, contentID, current, target); err != nil {
		return current, err
	}
	return m.afterTransition(ctx, logger, contentID, target, prior.Detail, ""), nil
}

// recordedTarget maps a completed record onto the status it produced. Only
// the quality stage can route elsewhere than its done status.
func (m *Manager) recordedTarget(stg pipelineStage, rec stagelog.Record) content.Status {
	if stg.reviewStatus == "" || len(rec.Detail) == 0 {
		return stg.doneStatus
	}
	var verdict struct {
		Outcome string `json:"outcome"`
	}
	if err := json.Unmarshal(rec.Detail, &verdict); err == nil && verdict.Outcome == "review" {
		return stg.reviewStatus
	}
	return stg.doneStatus
}

// transition performs one compare-and-set status write.
func (m *Manager) transition(ctx context.Context, logger *slog.Logger, contentID string, from, to content.Status) error {
	if err := m.items.CompareAndSetStatus(ctx, contentID, from, to); err != nil {
		return err
	}
	if from != to {
		m.observer.ObserveTransition(string(from), string(to))
		logger.Debug("status transition",
			logging.String(logging.FieldEventType, "status_transition"),
			logging.String("from_status", string(from)),
			logging.String("to_status", string(to)),
		)
	}
	return nil
}

// restoreStatus undoes an entry write after the attempt could not proceed.
func (m *Manager) restoreStatus(ctx context.Context, logger *slog.Logger, contentID string, entry, origin content.Status) {
	if entry == origin {
		return
	}
	if err := m.transition(ctx, logger, contentID, entry, origin); err != nil {
		logging.WarnWithContext(logger, "failed to restore status", "status_restore_failed",
			logging.Error(err),
			logging.String("from_status", string(entry)),
			logging.String("to_status", string(origin)),
			logging.String(logging.FieldErrorHint, "the sweeper reclaims the item once the attempt is stale"),
			logging.String(logging.FieldImpact, "item stays in its processing status"),
		)
	}
}

// afterTransition runs the side effects tied to reaching status and returns
// the status the item ends on.
func (m *Manager) afterTransition(ctx context.Context, logger *slog.Logger, contentID string, status content.Status, detail json.RawMessage, reason string) content.Status {
	switch status {
	case content.StatusRequiresManualReview:
		m.notifyManualReview(ctx, contentID, reason)
	case content.StatusCompleted:
		m.notifyPublished(ctx, contentID, detail)
	case content.StatusQualityApproved:
		if m.cfg == nil || !m.cfg.Workflow.AutoRelease {
			return status
		}
		item, err := m.Approve(ctx, contentID, "auto release")
		if err != nil {
			logging.WarnWithContext(logger, "auto release failed", "auto_release_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "approve the item manually"),
				logging.String(logging.FieldImpact, "item waits in quality_approved"),
			)
			return status
		}
		return item.Status
	}
	return status
}

func (m *Manager) rememberItem(ctx context.Context, contentID string) {
	item, err := m.items.Get(ctx, contentID)
	if err != nil {
		return
	}
	m.setLastItem(item)
}
