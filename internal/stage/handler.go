package stage

import (
	"context"

	"pressline/internal/content"
)

// Handler describes the contract the orchestrator needs from each stage.
// Prepare validates inputs, Execute produces the owned derived fields.
// Neither may change the item's status.
type Handler interface {
	Prepare(context.Context, *content.Item) error
	Execute(context.Context, *content.Item) (Result, error)
	HealthCheck(context.Context) Health
}

// Rechecker is implemented by stages that can hold an item. Recheck reports
// whether running the stage again now could change the stored verdict. The
// sweep skips held items for which it returns false.
type Rechecker interface {
	Recheck(context.Context, *content.Item) (bool, error)
}

// Decision steers the orchestrator after a successful Execute.
type Decision string

const (
	// DecisionAdvance moves the item to the stage's done status.
	DecisionAdvance Decision = ""
	// DecisionReview routes the item to requires_manual_review.
	DecisionReview Decision = "review"
	// DecisionHold leaves the status unchanged; the attempt is recorded as a
	// quality_below_threshold failure and re-evaluated later.
	DecisionHold Decision = "hold"
)

// Result is what a stage hands back to the orchestrator.
type Result struct {
	// Patch carries the derived fields the stage owns.
	Patch content.Derived
	// Detail is stored on the terminal stage record and replayed on
	// idempotent re-triggers.
	Detail   any
	Decision Decision
	// Reason explains a non-advance decision.
	Reason string
}
