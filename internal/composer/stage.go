package composer

import (
	"context"
	"log/slog"

	"pressline/internal/assets"
	"pressline/internal/content"
	"pressline/internal/design"
	"pressline/internal/logging"
	"pressline/internal/services"
	"pressline/internal/stage"
	"pressline/internal/stagelog"
)

const stageName = string(stagelog.StagePageComposition)

// Stage composes the page from the outputs of the earlier stages.
type Stage struct {
	logger *slog.Logger
}

// NewStage constructs the page composition stage.
func NewStage(logger *slog.Logger) *Stage {
	return &Stage{logger: logging.NewComponentLogger(logger, "composer")}
}

// Prepare requires the design assignment and asset report.
func (s *Stage) Prepare(ctx context.Context, item *content.Item) error {
	if len(item.Derived.Design) == 0 {
		return services.Wrap(services.ErrValidation, stageName, "prepare", "item has no design assignment; run design first", nil)
	}
	if len(item.Derived.AssetReport) == 0 {
		return services.Wrap(services.ErrValidation, stageName, "prepare", "item has no asset report; run asset validation first", nil)
	}
	return nil
}

// Execute builds the page.
func (s *Stage) Execute(ctx context.Context, item *content.Item) (stage.Result, error) {
	payload, err := stage.PayloadOf(item)
	if err != nil {
		return stage.Result{}, err
	}
	var assignment design.Assignment
	if err := content.Decode(item.Derived.Design, &assignment); err != nil {
		return stage.Result{}, services.Wrap(services.ErrValidation, stageName, "decode design", "", err)
	}
	var report assets.Report
	if err := content.Decode(item.Derived.AssetReport, &report); err != nil {
		return stage.Result{}, services.Wrap(services.ErrValidation, stageName, "decode asset report", "", err)
	}

	page, err := Compose(payload, assignment, report, item.Derived.Language)
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrValidation, stageName, "compose", "body could not be parsed", err)
	}
	if len(page.PrunedAssets) > 0 {
		logging.WithContext(ctx, s.logger).Info("broken images pruned from page",
			logging.String(logging.FieldEventType, "page_assets_pruned"),
			logging.Int("pruned", len(page.PrunedAssets)),
		)
	}
	encoded, err := stage.Marshal(stageName, "page", page)
	if err != nil {
		return stage.Result{}, err
	}
	return stage.Result{Patch: content.Derived{Page: encoded}, Detail: map[string]any{
		"slug":          page.Slug,
		"template":      page.Template,
		"assets":        len(page.Assets),
		"pruned_assets": len(page.PrunedAssets),
	}}, nil
}

// HealthCheck always reports ready.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(stageName)
}
