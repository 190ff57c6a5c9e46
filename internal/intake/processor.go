package intake

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"pressline/internal/config"
	"pressline/internal/content"
	"pressline/internal/logging"
	"pressline/internal/services"
	"pressline/internal/taxonomy"
)

// Normalizer resolves free-form categories to canonical values.
type Normalizer interface {
	Resolve(ctx context.Context, input string) taxonomy.Resolution
}

// Runner drives a freshly received item through the pipeline.
type Runner interface {
	Drive(ctx context.Context, contentID string) (*content.Item, error)
}

// Processor handles single and batch intake.
type Processor struct {
	items         *content.Store
	normalizer    Normalizer
	runner        Runner
	logger        *slog.Logger
	maxOperations int
	runPipeline   bool
	observer      func(OperationResult)
	now           func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithRunner lets Submit drive new items synchronously when run_pipeline is on.
func WithRunner(r Runner) Option {
	return func(p *Processor) { p.runner = r }
}

// WithObserver registers a callback for every batch operation result.
func WithObserver(fn func(OperationResult)) Option {
	return func(p *Processor) { p.observer = fn }
}

// WithClock overrides the processing-time clock.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// NewProcessor constructs a Processor.
func NewProcessor(items *content.Store, normalizer Normalizer, cfg config.Intake, logger *slog.Logger, opts ...Option) *Processor {
	p := &Processor{
		items:         items,
		normalizer:    normalizer,
		logger:        logging.NewComponentLogger(logger, "intake"),
		maxOperations: cfg.MaxBatchOperations,
		runPipeline:   cfg.RunPipeline,
		now:           time.Now,
	}
	if p.maxOperations <= 0 {
		p.maxOperations = 10
	}
	if p.normalizer == nil {
		p.normalizer = taxonomy.NewNormalizer(nil, logger)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SubmitResult is the single intake response.
type SubmitResult struct {
	Success          bool   `json:"success"`
	ContentID        string `json:"content_id"`
	ProcessingTimeMS int64  `json:"processing_time_ms"`
	FinalStatus      string `json:"final_status"`
	Error            string `json:"error,omitempty"`
}

// Submit records a new item in received. With run_pipeline enabled and a
// runner wired, the item is driven as far as it goes before returning; a stage
// failure along the way is reported in FinalStatus, not as an error.
func (p *Processor) Submit(ctx context.Context, contentID string, raw json.RawMessage) (SubmitResult, error) {
	started := p.now()
	contentID = strings.TrimSpace(contentID)
	ctx = services.WithContentID(ctx, contentID)
	logger := logging.WithContext(ctx, p.logger)

	item, err := p.items.Create(ctx, contentID, raw)
	if err != nil {
		return SubmitResult{ContentID: contentID, Error: err.Error()}, err
	}
	logger.Info("content received",
		logging.String(logging.FieldEventType, "content_received"),
		logging.Int("payload_bytes", len(raw)),
	)

	result := SubmitResult{Success: true, ContentID: contentID, FinalStatus: string(item.Status)}
	if p.runPipeline && p.runner != nil {
		driven, err := p.runner.Drive(ctx, contentID)
		if driven != nil {
			result.FinalStatus = string(driven.Status)
		}
		if err != nil {
			if services.IsFatal(err) {
				return SubmitResult{ContentID: contentID, Error: err.Error()}, err
			}
			result.Error = err.Error()
			logging.WarnWithContext(logger, "pipeline stopped after intake", "intake_drive_stopped",
				logging.String(logging.FieldErrorHint, services.Details(err).Hint),
				logging.String(logging.FieldImpact, "item waits for a retrigger"),
				logging.Error(err),
			)
		}
	}
	result.ProcessingTimeMS = p.now().Sub(started).Milliseconds()
	return result, nil
}
