package quality

import (
	"fmt"
	"strings"
	"time"

	"pressline/internal/config"
)

// Criterion names one rubric signal.
type Criterion string

const (
	CriterionContentLength      Criterion = "content_length"
	CriterionStructure          Criterion = "structure"
	CriterionVisualAssets       Criterion = "visual_assets"
	CriterionCodeExamples       Criterion = "code_examples"
	CriterionIntelligenceSignal Criterion = "intelligence_signal"
	CriterionProcessingDuration Criterion = "processing_duration"
)

// rubric lists the criteria in evaluation order with their fixed weights.
// Weights sum to 100.
var rubric = []struct {
	name   Criterion
	weight int
}{
	{CriterionContentLength, 25},
	{CriterionStructure, 20},
	{CriterionVisualAssets, 15},
	{CriterionCodeExamples, 15},
	{CriterionIntelligenceSignal, 15},
	{CriterionProcessingDuration, 10},
}

// Outcome is the gate's verdict.
type Outcome string

const (
	// OutcomeApprove: score met the threshold.
	OutcomeApprove Outcome = "approve"
	// OutcomeEscalate: score below threshold but the item aged past the
	// escalation window; approved with ReasonAutoApprovedAfterTimeout.
	OutcomeEscalate Outcome = "escalate"
	// OutcomeReview: aged past the window with timeout_action = review.
	OutcomeReview Outcome = "review"
	// OutcomeHold: below threshold and still inside the window; re-evaluated later.
	OutcomeHold Outcome = "hold"
)

// ReasonAutoApprovedAfterTimeout is recorded on escalated approvals.
const ReasonAutoApprovedAfterTimeout = "auto-approved-after-timeout"

// Timeout actions.
const (
	TimeoutActionApprove = "approve"
	TimeoutActionReview  = "review"
)

// Input carries the signals the rubric scores.
type Input struct {
	ContentLength      int
	HasTitle           bool
	HasDescription     bool
	VisualAssets       int
	CodeExamples       int
	IntelligenceSignal bool
	ProcessingDuration time.Duration
	// Age is the time since intake.
	Age time.Duration
}

// CriterionResult is one scored rubric line.
type CriterionResult struct {
	Name      Criterion `json:"name"`
	Weight    int       `json:"weight"`
	Satisfied bool      `json:"satisfied"`
	Observed  string    `json:"observed"`
}

// Decision is stored in the quality_metrics derived field.
type Decision struct {
	Score       int               `json:"score"`
	Threshold   int               `json:"threshold"`
	Outcome     Outcome           `json:"outcome"`
	Reason      string            `json:"reason"`
	Criteria    []CriterionResult `json:"criteria"`
	AgeSeconds  int64             `json:"age_seconds"`
	EvaluatedAt time.Time         `json:"evaluated_at"`
}

// Approved reports whether the item may proceed to publishing.
func (d Decision) Approved() bool {
	return d.Outcome == OutcomeApprove || d.Outcome == OutcomeEscalate
}

// Policy is the gate configuration.
type Policy struct {
	Threshold        int
	EscalationWindow time.Duration
	TimeoutAction    string
	MinContentLength int
	MinVisualAssets  int
	MinCodeExamples  int
	MinProcessing    time.Duration
}

// PolicyFromConfig maps the [quality] section onto a Policy.
func PolicyFromConfig(cfg config.Quality) Policy {
	return Policy{
		Threshold:        cfg.ApproveThreshold,
		EscalationWindow: time.Duration(cfg.EscalationHours) * time.Hour,
		TimeoutAction:    cfg.TimeoutAction,
		MinContentLength: cfg.MinContentLength,
		MinVisualAssets:  cfg.MinVisualAssets,
		MinCodeExamples:  cfg.MinCodeExamples,
		MinProcessing:    time.Duration(cfg.MinProcessingSeconds) * time.Second,
	}
}

// Gate scores items against the rubric.
type Gate struct {
	policy Policy
}

// NewGate constructs a gate.
func NewGate(policy Policy) *Gate {
	return &Gate{policy: policy}
}

// Policy returns the gate's policy.
func (g *Gate) Policy() Policy { return g.policy }

// Score evaluates the rubric.
func (g *Gate) Score(in Input) (int, []CriterionResult) {
	p := g.policy
	checks := map[Criterion]struct {
		ok       bool
		observed string
	}{
		CriterionContentLength:      {in.ContentLength >= p.MinContentLength, fmt.Sprintf("%d/%d chars", in.ContentLength, p.MinContentLength)},
		CriterionStructure:          {in.HasTitle && in.HasDescription, fmt.Sprintf("title=%t description=%t", in.HasTitle, in.HasDescription)},
		CriterionVisualAssets:       {in.VisualAssets >= p.MinVisualAssets, fmt.Sprintf("%d/%d assets", in.VisualAssets, p.MinVisualAssets)},
		CriterionCodeExamples:       {in.CodeExamples >= p.MinCodeExamples, fmt.Sprintf("%d/%d examples", in.CodeExamples, p.MinCodeExamples)},
		CriterionIntelligenceSignal: {in.IntelligenceSignal, fmt.Sprintf("present=%t", in.IntelligenceSignal)},
		CriterionProcessingDuration: {in.ProcessingDuration >= p.MinProcessing, fmt.Sprintf("%s/%s", in.ProcessingDuration.Round(time.Second), p.MinProcessing)},
	}
	score := 0
	results := make([]CriterionResult, 0, len(rubric))
	for _, entry := range rubric {
		check := checks[entry.name]
		if check.ok {
			score += entry.weight
		}
		results = append(results, CriterionResult{Name: entry.name, Weight: entry.weight, Satisfied: check.ok, Observed: check.observed})
	}
	return score, results
}

// Decide applies the two-speed policy to a score: at or above the threshold
// approves; below it, items at least EscalationWindow old escalate and younger
// items are held.
func (g *Gate) Decide(score int, age time.Duration) (Outcome, string) {
	p := g.policy
	if score >= p.Threshold {
		return OutcomeApprove, ""
	}
	if p.EscalationWindow > 0 && age >= p.EscalationWindow {
		if p.TimeoutAction == TimeoutActionReview {
			return OutcomeReview, fmt.Sprintf("score %d below threshold %d after %s; routed to manual review", score, p.Threshold, p.EscalationWindow)
		}
		return OutcomeEscalate, ReasonAutoApprovedAfterTimeout
	}
	return OutcomeHold, fmt.Sprintf("score %d below threshold %d", score, p.Threshold)
}

// Evaluate scores in and decides.
func (g *Gate) Evaluate(in Input, now time.Time) Decision {
	score, criteria := g.Score(in)
	outcome, reason := g.Decide(score, in.Age)
	if outcome == OutcomeApprove {
		reason = approvalReason(criteria)
	}
	return Decision{
		Score:       score,
		Threshold:   g.policy.Threshold,
		Outcome:     outcome,
		Reason:      reason,
		Criteria:    criteria,
		AgeSeconds:  int64(in.Age / time.Second),
		EvaluatedAt: now.UTC(),
	}
}

func approvalReason(criteria []CriterionResult) string {
	met := make([]string, 0, len(criteria))
	for _, c := range criteria {
		if c.Satisfied {
			met = append(met, string(c.Name))
		}
	}
	return "rubric satisfied: " + strings.Join(met, ", ")
}
