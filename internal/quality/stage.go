package quality

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"pressline/internal/analysis"
	"pressline/internal/composer"
	"pressline/internal/content"
	"pressline/internal/logging"
	"pressline/internal/seo"
	"pressline/internal/services"
	"pressline/internal/stage"
	"pressline/internal/stagelog"
)

const stageName = string(stagelog.StageQuality)

// Stage runs the quality gate for an item.
type Stage struct {
	gate    *Gate
	now     func() time.Time
	logger  *slog.Logger
	observe func(Decision)
}

// StageOption configures the stage.
type StageOption func(*Stage)

// WithClock overrides the evaluation clock.
func WithClock(now func() time.Time) StageOption {
	return func(s *Stage) {
		if now != nil {
			s.now = now
		}
	}
}

// WithObserver registers a callback for every gate decision (used for metrics).
func WithObserver(fn func(Decision)) StageOption {
	return func(s *Stage) { s.observe = fn }
}

// NewStage constructs the quality stage.
func NewStage(gate *Gate, logger *slog.Logger, opts ...StageOption) *Stage {
	s := &Stage{gate: gate, now: time.Now, logger: logging.NewComponentLogger(logger, "quality")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prepare requires SEO elements and a page.
func (s *Stage) Prepare(ctx context.Context, item *content.Item) error {
	if s.gate == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "quality gate not configured", nil)
	}
	if len(item.Derived.SEOElements) == 0 || len(item.Derived.Page) == 0 {
		return services.Wrap(services.ErrValidation, stageName, "prepare", "item has no page or seo elements; run seo first", nil)
	}
	return nil
}

// Execute scores the item and maps the gate outcome onto a stage decision.
func (s *Stage) Execute(ctx context.Context, item *content.Item) (stage.Result, error) {
	in, err := BuildInput(item, s.now())
	if err != nil {
		return stage.Result{}, err
	}
	decision := s.gate.Evaluate(in, s.now())
	encoded, err := stage.Marshal(stageName, "quality_metrics", decision)
	if err != nil {
		return stage.Result{}, err
	}

	attrs := logging.DecisionAttrs("quality_gate", string(decision.Outcome), decision.Reason)
	attrs = append(attrs,
		logging.String(logging.FieldEventType, "quality_evaluated"),
		logging.Int("score", decision.Score),
		logging.Int("threshold", decision.Threshold),
	)
	logging.WithContext(ctx, s.logger).Info("quality gate evaluated", logging.Args(attrs...)...)
	if s.observe != nil {
		s.observe(decision)
	}

	result := stage.Result{Patch: content.Derived{QualityMetrics: encoded}, Detail: decision, Reason: decision.Reason}
	switch decision.Outcome {
	case OutcomeHold:
		result.Decision = stage.DecisionHold
	case OutcomeReview:
		result.Decision = stage.DecisionReview
	}
	return result, nil
}

// Recheck evaluates the gate without writing anything. A re-run is only
// worthwhile when the item would leave the hold or its score moved since the
// stored decision.
func (s *Stage) Recheck(_ context.Context, item *content.Item) (bool, error) {
	if s.gate == nil {
		return true, nil
	}
	in, err := BuildInput(item, s.now())
	if err != nil {
		return true, err
	}
	fresh := s.gate.Evaluate(in, s.now())
	if fresh.Outcome != OutcomeHold {
		return true, nil
	}
	var stored Decision
	if err := content.Decode(item.Derived.QualityMetrics, &stored); err != nil || stored.Outcome != OutcomeHold {
		return true, nil
	}
	return fresh.Score != stored.Score, nil
}

// HealthCheck reports whether the gate is wired.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.gate == nil {
		return stage.Unhealthy(stageName, "quality gate not configured")
	}
	return stage.Healthy(stageName)
}

// BuildInput gathers the rubric signals from the item's derived fields.
func BuildInput(item *content.Item, now time.Time) (Input, error) {
	payload, err := stage.PayloadOf(item)
	if err != nil {
		return Input{}, err
	}
	var page composer.Page
	if err := content.Decode(item.Derived.Page, &page); err != nil {
		return Input{}, services.Wrap(services.ErrValidation, stageName, "decode page", "", err)
	}
	var elements seo.Elements
	if err := content.Decode(item.Derived.SEOElements, &elements); err != nil {
		return Input{}, services.Wrap(services.ErrValidation, stageName, "decode seo elements", "", err)
	}
	var record analysis.Record
	if err := content.Decode(item.Derived.Analysis, &record); err != nil {
		return Input{}, services.Wrap(services.ErrValidation, stageName, "decode analysis", "", err)
	}

	codeSource := page.BodyHTML
	if codeSource == "" {
		codeSource = payload.Body
	}
	age := item.Age(now)
	return Input{
		ContentLength:      payload.Length(),
		HasTitle:           strings.TrimSpace(elements.Title) != "",
		HasDescription:     strings.TrimSpace(elements.Description) != "",
		VisualAssets:       len(page.Assets),
		CodeExamples:       CountCodeExamples(codeSource),
		IntelligenceSignal: record.HasSignal(),
		ProcessingDuration: age,
		Age:                age,
	}, nil
}
