package workflow

import (
	"encoding/json"
	"time"

	"pressline/internal/content"
	"pressline/internal/stage"
	"pressline/internal/stagelog"
)

// StageSet bundles the concrete stage handlers the manager orchestrates.
type StageSet struct {
	Analysis        stage.Handler
	Design          stage.Handler
	AssetValidation stage.Handler
	PageComposition stage.Handler
	SEO             stage.Handler
	Quality         stage.Handler
	Deployment      stage.Handler
}

type pipelineStage struct {
	name             stagelog.Stage
	handler          stage.Handler
	startStatus      content.Status
	processingStatus content.Status
	doneStatus       content.Status
	// reviewStatus receives DecisionReview results; empty when the stage
	// cannot route to review.
	reviewStatus content.Status
	// failureStatus replaces the origin status on failure; empty restores
	// the status the item had before the attempt.
	failureStatus content.Status
}

// entryStatus is the status written while the stage runs. Stages without a
// processing status keep the status they started from.
func (s pipelineStage) entryStatus(origin content.Status) content.Status {
	if s.processingStatus != "" {
		return s.processingStatus
	}
	return origin
}

// TriggerOptions tunes a single Trigger call.
type TriggerOptions struct {
	// Force re-runs a stage that already completed, as long as the item still
	// sits on a status from which the stage may legally run.
	Force bool
}

// Outcome reports what one Trigger did.
type Outcome struct {
	ContentID      string          `json:"content_id"`
	Stage          stagelog.Stage  `json:"stage"`
	AttemptID      string          `json:"attempt_id,omitempty"`
	PreviousStatus content.Status  `json:"previous_status"`
	Status         content.Status  `json:"status"`
	Skipped        bool            `json:"skipped"`
	Held           bool            `json:"held"`
	Failed         bool            `json:"failed"`
	Reason         string          `json:"reason,omitempty"`
	ErrorKind      string          `json:"error_kind,omitempty"`
	Error          string          `json:"error,omitempty"`
	Detail         json.RawMessage `json:"detail,omitempty"`
	Duration       time.Duration   `json:"duration_ns"`

	// Err is the stage failure behind Failed; kept for callers that classify it.
	Err error `json:"-"`
}

// Advanced reports whether the trigger moved the item forward.
func (o Outcome) Advanced() bool {
	return !o.Failed && !o.Held && o.Status != o.PreviousStatus
}
