package analysis

import (
	"context"
	"log/slog"
	"strings"

	"pressline/internal/content"
	"pressline/internal/extract"
	"pressline/internal/language"
	"pressline/internal/logging"
	"pressline/internal/services"
	"pressline/internal/stage"
	"pressline/internal/stagelog"
	"pressline/internal/taxonomy"
)

const stageName = string(stagelog.StageAnalysis)

// Classifier is the generative classifier collaborator: given a prompt it
// returns free text that should contain one structured record.
type Classifier interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Stage classifies an item and detects its language.
type Stage struct {
	classifier Classifier
	normalizer *taxonomy.Normalizer
	extractor  *extract.Extractor
	logger     *slog.Logger
}

// New constructs the analysis stage.
func New(classifier Classifier, normalizer *taxonomy.Normalizer, logger *slog.Logger) *Stage {
	if normalizer == nil {
		normalizer = taxonomy.NewNormalizer(nil, logger)
	}
	return &Stage{
		classifier: classifier,
		normalizer: normalizer,
		extractor:  extract.New(extract.ClassificationShape...),
		logger:     logging.NewComponentLogger(logger, "analysis"),
	}
}

// Prepare checks the payload carries text to classify.
func (s *Stage) Prepare(ctx context.Context, item *content.Item) error {
	if s.classifier == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "classifier not configured", nil)
	}
	payload, err := stage.PayloadOf(item)
	if err != nil {
		return err
	}
	if strings.TrimSpace(payload.Text()) == "" {
		return services.Wrap(services.ErrValidation, stageName, "prepare", "payload has no title or body to classify", nil)
	}
	return nil
}

// Execute calls the classifier, extracts the structured record and normalizes
// the category.
func (s *Stage) Execute(ctx context.Context, item *content.Item) (stage.Result, error) {
	payload, err := stage.PayloadOf(item)
	if err != nil {
		return stage.Result{}, err
	}
	logger := logging.WithContext(ctx, s.logger)

	raw, err := s.classifier.Complete(ctx, SystemPrompt(s.normalizer.Taxonomy()), UserPrompt(payload))
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrExternalService, stageName, "classify", "classifier call failed", err)
	}

	var resp Response
	strategy, err := s.extractor.Extract(ctx, raw, &resp)
	if err != nil {
		if ctx.Err() != nil {
			return stage.Result{}, err
		}
		logger.Warn("classifier output could not be parsed",
			logging.String(logging.FieldEventType, "classifier_output_malformed"),
			logging.String(logging.FieldErrorHint, "inspect the classifier response and prompt"),
			logging.String(logging.FieldImpact, "analysis stage failed; retrigger after fixing the prompt"),
			logging.Int("response_length", len(raw)),
			logging.String("response_snippet", extract.Snippet(raw)),
		)
		return stage.Result{}, services.Wrap(services.ErrMalformedModelOutput, stageName, "extract", "", err)
	}

	resolution := s.normalizer.Resolve(ctx, resp.Classification.Category)
	detected := language.Detect(payload.Text())
	record := Record{
		Category:           resolution.Canonical,
		CategoryInput:      resp.Classification.Category,
		CategoryMatch:      string(resolution.Match),
		Confidence:         normalizeConfidence(resp.Classification.Confidence),
		Topics:             resp.Classification.Topics,
		Summary:            strings.TrimSpace(resp.Classification.Summary),
		SEO:                resp.SEOElements,
		Strategy:           string(strategy),
		Language:           detected.Code,
		LanguageConfidence: detected.Confidence,
	}
	encoded, err := stage.Marshal(stageName, "analysis", record)
	if err != nil {
		return stage.Result{}, err
	}

	logger.Info("content classified",
		logging.String(logging.FieldEventType, "classification_complete"),
		logging.String("category", record.Category),
		logging.String("extraction_strategy", record.Strategy),
		logging.Float64("confidence", record.Confidence),
		logging.String("language", record.Language),
	)

	return stage.Result{
		Patch: content.Derived{
			Category:        record.Category,
			ConfidenceScore: content.Float(record.Confidence),
			Language:        record.Language,
			Analysis:        encoded,
		},
		Detail: record,
	}, nil
}

// HealthCheck reports whether a classifier is wired.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if s.classifier == nil {
		return stage.Unhealthy(stageName, "classifier not configured")
	}
	return stage.Healthy(stageName)
}
