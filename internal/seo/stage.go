package seo

import (
	"context"
	"log/slog"

	"pressline/internal/analysis"
	"pressline/internal/composer"
	"pressline/internal/content"
	"pressline/internal/logging"
	"pressline/internal/services"
	"pressline/internal/stage"
	"pressline/internal/stagelog"
)

const stageName = string(stagelog.StageSEO)

// Stage finalizes the SEO elements for the composed page.
type Stage struct {
	logger *slog.Logger
}

// NewStage constructs the SEO stage.
func NewStage(logger *slog.Logger) *Stage {
	return &Stage{logger: logging.NewComponentLogger(logger, "seo")}
}

// Prepare requires a composed page.
func (s *Stage) Prepare(ctx context.Context, item *content.Item) error {
	if len(item.Derived.Page) == 0 {
		return services.Wrap(services.ErrValidation, stageName, "prepare", "item has no page; run page composition first", nil)
	}
	return nil
}

// Execute computes the elements.
func (s *Stage) Execute(ctx context.Context, item *content.Item) (stage.Result, error) {
	payload, err := stage.PayloadOf(item)
	if err != nil {
		return stage.Result{}, err
	}
	var page composer.Page
	if err := content.Decode(item.Derived.Page, &page); err != nil {
		return stage.Result{}, services.Wrap(services.ErrValidation, stageName, "decode page", "", err)
	}
	var record analysis.Record
	if err := content.Decode(item.Derived.Analysis, &record); err != nil {
		return stage.Result{}, services.Wrap(services.ErrValidation, stageName, "decode analysis", "", err)
	}

	elements := Finalize(record, payload, page, item.Derived.Language)
	logging.WithContext(ctx, s.logger).Debug("seo elements finalized",
		logging.String("slug", elements.Slug),
		logging.Int("keywords", len(elements.Keywords)),
	)
	encoded, err := stage.Marshal(stageName, "seo_elements", elements)
	if err != nil {
		return stage.Result{}, err
	}
	return stage.Result{Patch: content.Derived{SEOElements: encoded}, Detail: elements}, nil
}

// HealthCheck always reports ready.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(stageName)
}
