package workflow

import (
	"context"
	"errors"
	"time"

	"pressline/internal/content"
	"pressline/internal/logging"
	"pressline/internal/services"
	"pressline/internal/stage"
	"pressline/internal/stagelog"
)

// Drive triggers stages for contentID until the item completes, fails,
// waits on a human, or is held by the quality gate. A stage failure is
// returned as the error alongside the refreshed item.
func (m *Manager) Drive(ctx context.Context, contentID string) (*content.Item, error) {
	var item *content.Item
	for range len(stagelog.Canonical()) * 2 {
		if err := ctx.Err(); err != nil {
			return item, err
		}
		current, err := m.items.Get(ctx, contentID)
		if err != nil {
			return item, err
		}
		item = current
		if item.Status.IsTerminal() || item.Status.AwaitingHuman() {
			return item, nil
		}
		stg, ok := m.stageForStatus(item.Status)
		if !ok || stg.startStatus != item.Status {
			return item, nil
		}

		outcome, err := m.Trigger(ctx, contentID, stg.name, TriggerOptions{})
		if err != nil {
			return item, err
		}
		if outcome.Failed {
			refreshed, getErr := m.items.Get(ctx, contentID)
			if getErr == nil {
				item = refreshed
			}
			return item, outcome.Err
		}
		if outcome.Held || !outcome.Advanced() {
			return m.items.Get(ctx, contentID)
		}
	}
	return m.items.Get(ctx, contentID)
}

// SweepReport counts what one sweep changed.
type SweepReport struct {
	Reclaimed   int `json:"reclaimed"`
	Reconciled  int `json:"reconciled"`
	Requalified int `json:"requalified"`
	Advanced    int `json:"advanced"`
}

// Sweep runs one maintenance pass: reclaim stale attempts, reconcile lagging
// statuses, re-run the quality gate for held items, optionally drive idle
// items forward, and refresh the status gauges.
func (m *Manager) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	logger := logging.WithContext(ctx, m.logger)

	reclaimed, err := m.ReclaimStale(ctx)
	report.Reclaimed = reclaimed
	if err != nil {
		return report, err
	}

	open, err := m.items.ListByStatus(ctx, m.nonTerminalStatuses()...)
	if err != nil {
		return report, err
	}
	for _, item := range open {
		_, applied, err := m.Reconcile(ctx, item.ContentID)
		if err != nil {
			if services.IsFatal(err) {
				return report, err
			}
			logger.Debug("reconcile skipped", logging.String(logging.FieldContentID, item.ContentID), logging.Error(err))
			continue
		}
		report.Reconciled += applied
	}

	requalified, err := m.requalifyHeld(ctx)
	report.Requalified = requalified
	if err != nil {
		return report, err
	}

	if m.cfg != nil && m.cfg.Workflow.AutoAdvance {
		advanced, err := m.advanceIdle(ctx)
		report.Advanced = advanced
		if err != nil {
			return report, err
		}
	}

	m.refreshGauges(ctx)
	m.mu.Lock()
	m.lastSweep = m.now()
	m.mu.Unlock()
	if report != (SweepReport{}) {
		logger.Info("sweep finished",
			logging.String(logging.FieldEventType, "sweep_complete"),
			logging.Int("reclaimed", report.Reclaimed),
			logging.Int("reconciled", report.Reconciled),
			logging.Int("requalified", report.Requalified),
			logging.Int("advanced", report.Advanced),
		)
	}
	return report, nil
}

// requalifyHeld re-runs the quality gate for items whose last quality
// attempt was a hold. When the quality handler can recheck, items whose
// verdict would not change are skipped so idle holds add no stage records.
func (m *Manager) requalifyHeld(ctx context.Context) (int, error) {
	stg, err := m.lookupStage(stagelog.StageQuality)
	if err != nil {
		return 0, nil
	}
	checker, _ := stg.handler.(stage.Rechecker)
	held, err := m.items.ListByStatus(ctx, content.StatusSEOOptimized)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, item := range held {
		rec, ok, err := m.log.LastRecord(ctx, item.ContentID, stagelog.StageQuality)
		if err != nil {
			return count, err
		}
		if !ok || rec.ErrorKind != stagelog.KindQualityBelowThreshold {
			continue
		}
		if checker != nil {
			if changed, err := checker.Recheck(ctx, item); err == nil && !changed {
				continue
			}
		}
		outcome, err := m.Trigger(ctx, item.ContentID, stagelog.StageQuality, TriggerOptions{})
		if err != nil {
			if services.IsFatal(err) {
				return count, err
			}
			continue
		}
		if outcome.Advanced() {
			count++
		}
	}
	return count, nil
}

// advanceIdle drives items resting on a stage start status.
func (m *Manager) advanceIdle(ctx context.Context) (int, error) {
	starts := make([]content.Status, 0, len(m.configuredStages()))
	for _, stg := range m.configuredStages() {
		starts = append(starts, stg.startStatus)
	}
	idle, err := m.items.ListByStatus(ctx, starts...)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, item := range idle {
		if item.Status == content.StatusSEOOptimized {
			rec, ok, err := m.log.LastRecord(ctx, item.ContentID, stagelog.StageQuality)
			if err != nil {
				return count, err
			}
			if ok && rec.ErrorKind == stagelog.KindQualityBelowThreshold {
				continue
			}
		}
		before := item.Status
		after, err := m.Drive(ctx, item.ContentID)
		if err != nil && services.IsFatal(err) {
			return count, err
		}
		if after != nil && after.Status != before {
			count++
		}
	}
	return count, nil
}

func (m *Manager) nonTerminalStatuses() []content.Status {
	var out []content.Status
	for _, status := range content.AllStatuses() {
		if !status.IsTerminal() && !status.AwaitingHuman() {
			out = append(out, status)
		}
	}
	return out
}

func (m *Manager) refreshGauges(ctx context.Context) {
	stats, err := m.items.Stats(ctx)
	if err != nil {
		return
	}
	counts := make(map[string]int, len(stats))
	for status, n := range stats {
		counts[string(status)] = n
	}
	m.observer.SetStatusCounts(counts)
}

// Start launches the background sweeper.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.stages) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.runSweeper(runCtx)
	return nil
}

// Stop terminates the sweeper and waits for the current pass to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runSweeper(ctx context.Context) {
	defer m.wg.Done()
	interval := m.cfg.SweepInterval()
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := m.Sweep(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.setLastError(err)
			logging.ErrorWithContext(m.logger, "sweep failed", "sweep_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check database connectivity"),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
