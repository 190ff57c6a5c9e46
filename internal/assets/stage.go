package assets

import (
	"context"
	"log/slog"

	"pressline/internal/content"
	"pressline/internal/logging"
	"pressline/internal/services"
	"pressline/internal/stage"
	"pressline/internal/stagelog"
)

const stageName = string(stagelog.StageAssetValidation)

// Stage runs the validator over the item's referenced assets.
type Stage struct {
	validator *Validator
	logger    *slog.Logger
}

// NewStage constructs the asset validation stage.
func NewStage(validator *Validator, logger *slog.Logger) *Stage {
	return &Stage{validator: validator, logger: logging.NewComponentLogger(logger, "asset-validation")}
}

// Prepare checks the payload parses.
func (s *Stage) Prepare(ctx context.Context, item *content.Item) error {
	if s.validator == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "asset validator not configured", nil)
	}
	_, err := stage.PayloadOf(item)
	return err
}

// Execute validates every referenced asset. Broken assets are a data quality
// signal for the quality gate and never fail the stage.
func (s *Stage) Execute(ctx context.Context, item *content.Item) (stage.Result, error) {
	payload, err := stage.PayloadOf(item)
	if err != nil {
		return stage.Result{}, err
	}
	urls := ExtractURLs(payload)
	report, err := s.validator.Validate(ctx, urls)
	if err != nil {
		return stage.Result{}, err
	}

	logger := logging.WithContext(ctx, s.logger)
	if report.BrokenCount > 0 {
		logger.Warn("broken assets found",
			logging.String(logging.FieldEventType, "assets_broken"),
			logging.String(logging.FieldErrorKind, string(services.KindAssetUnreachable)),
			logging.String(logging.FieldErrorHint, "check the asset URLs"),
			logging.String(logging.FieldImpact, "broken images are pruned from the page and lower the quality score"),
			logging.Int("broken", report.BrokenCount),
			logging.Any("broken_urls", report.BrokenURLs),
		)
	} else {
		logger.Info("assets validated",
			logging.String(logging.FieldEventType, "assets_validated"),
			logging.Int("total", report.Total),
		)
	}

	encoded, err := stage.Marshal(stageName, "asset_report", report)
	if err != nil {
		return stage.Result{}, err
	}
	return stage.Result{Patch: content.Derived{AssetReport: encoded}, Detail: report}, nil
}

// HealthCheck reports whether the validator is wired.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.validator == nil {
		return stage.Unhealthy(stageName, "asset validator not configured")
	}
	return stage.Healthy(stageName)
}
