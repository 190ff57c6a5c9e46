package workflow

import (
	"context"
	"time"

	"pressline/internal/content"
	"pressline/internal/logging"
	"pressline/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool                    `json:"running"`
	LastError   string                  `json:"last_error,omitempty"`
	LastItem    *content.Item           `json:"last_item,omitempty"`
	LastSweep   time.Time               `json:"last_sweep,omitzero"`
	Stats       map[content.Status]int  `json:"stats"`
	StageHealth map[string]stage.Health `json:"stage_health"`
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastItem := m.lastItem
	lastSweep := m.lastSweep
	stageSet := make([]pipelineStage, len(m.stages))
	copy(stageSet, m.stages)
	m.mu.RUnlock()

	stats, err := m.items.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read item stats", logging.Error(err))
	}

	health := make(map[string]stage.Health, len(stageSet))
	for _, stg := range stageSet {
		health[string(stg.name)] = stg.handler.HealthCheck(ctx)
	}

	summary := StatusSummary{Running: running, LastSweep: lastSweep, Stats: stats, StageHealth: health}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastItem != nil {
		copy := *lastItem
		summary.LastItem = &copy
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *content.Item) {
	m.mu.Lock()
	if item != nil {
		copy := *item
		m.lastItem = &copy
	} else {
		m.lastItem = nil
	}
	m.mu.Unlock()
}
