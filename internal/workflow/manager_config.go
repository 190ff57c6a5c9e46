package workflow

import (
	"fmt"

	"pressline/internal/content"
	"pressline/internal/services"
	"pressline/internal/stage"
	"pressline/internal/stagelog"
)

// ConfigureStages registers the stage handlers. Nil handlers leave their
// stage unconfigured; triggering it fails with a configuration error.
func (m *Manager) ConfigureStages(set StageSet) {
	table := []pipelineStage{
		{
			name:             stagelog.StageAnalysis,
			handler:          set.Analysis,
			startStatus:      content.StatusReceived,
			processingStatus: content.StatusAnalyzing,
			doneStatus:       content.StatusClassified,
		},
		{
			name:             stagelog.StageDesign,
			handler:          set.Design,
			startStatus:      content.StatusClassified,
			processingStatus: content.StatusDesignProcessing,
			doneStatus:       content.StatusDesignApproved,
		},
		{
			name:             stagelog.StageAssetValidation,
			handler:          set.AssetValidation,
			startStatus:      content.StatusDesignApproved,
			processingStatus: content.StatusAssetProcessing,
			doneStatus:       content.StatusAssetsValidated,
		},
		{
			name:        stagelog.StagePageComposition,
			handler:     set.PageComposition,
			startStatus: content.StatusAssetsValidated,
			doneStatus:  content.StatusPageCreated,
		},
		{
			name:        stagelog.StageSEO,
			handler:     set.SEO,
			startStatus: content.StatusPageCreated,
			doneStatus:  content.StatusSEOOptimized,
		},
		{
			name:         stagelog.StageQuality,
			handler:      set.Quality,
			startStatus:  content.StatusSEOOptimized,
			doneStatus:   content.StatusQualityApproved,
			reviewStatus: content.StatusRequiresManualReview,
		},
		{
			name:          stagelog.StageDeployment,
			handler:       set.Deployment,
			startStatus:   content.StatusApprovedForPublishing,
			doneStatus:    content.StatusCompleted,
			failureStatus: content.StatusFailed,
		},
	}

	byName := make(map[stagelog.Stage]pipelineStage, len(table))
	byStatus := make(map[content.Status]pipelineStage, len(table)*2)
	stages := make([]pipelineStage, 0, len(table))
	for _, stg := range table {
		if stg.handler == nil {
			continue
		}
		stages = append(stages, stg)
		byName[stg.name] = stg
		byStatus[stg.startStatus] = stg
		if stg.processingStatus != "" {
			byStatus[stg.processingStatus] = stg
		}
	}

	m.mu.Lock()
	m.stages = stages
	m.stageByName = byName
	m.stageByStatus = byStatus
	m.mu.Unlock()
}

func (m *Manager) lookupStage(name stagelog.Stage) (pipelineStage, error) {
	m.mu.RLock()
	stg, ok := m.stageByName[name]
	m.mu.RUnlock()
	if !ok {
		return pipelineStage{}, services.Wrap(services.ErrConfiguration, string(name), "lookup stage", fmt.Sprintf("stage %s not configured", name), nil)
	}
	return stg, nil
}

// stageForStatus returns the stage that runs from (or is running at) status.
func (m *Manager) stageForStatus(status content.Status) (pipelineStage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stg, ok := m.stageByStatus[status]
	return stg, ok
}

func (m *Manager) configuredStages() []pipelineStage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]pipelineStage, len(m.stages))
	copy(out, m.stages)
	return out
}

// Handler returns the handler registered for name, if any.
func (m *Manager) Handler(name stagelog.Stage) (stage.Handler, bool) {
	stg, err := m.lookupStage(name)
	if err != nil {
		return nil, false
	}
	return stg.handler, true
}
