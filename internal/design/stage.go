package design

import (
	"context"
	"log/slog"
	"strings"

	"pressline/internal/content"
	"pressline/internal/logging"
	"pressline/internal/services"
	"pressline/internal/stage"
	"pressline/internal/stagelog"
	"pressline/internal/taxonomy"
)

const stageName = string(stagelog.StageDesign)

// Assignment is stored in the design derived field.
type Assignment struct {
	Category   string   `json:"category"`
	Template   string   `json:"template"`
	Layout     string   `json:"layout"`
	Palette    string   `json:"palette"`
	Components []string `json:"components,omitempty"`
	Fallback   bool     `json:"fallback,omitempty"`
}

// Stage assigns presentation rules from the item's canonical category.
type Stage struct {
	tax    *taxonomy.Taxonomy
	logger *slog.Logger
}

// New constructs the design stage.
func New(tax *taxonomy.Taxonomy, logger *slog.Logger) *Stage {
	if tax == nil {
		tax = taxonomy.Embedded()
	}
	return &Stage{tax: tax, logger: logging.NewComponentLogger(logger, "design")}
}

// Prepare requires the analysis stage to have set a category.
func (s *Stage) Prepare(ctx context.Context, item *content.Item) error {
	if item == nil || strings.TrimSpace(item.Derived.Category) == "" {
		return services.Wrap(services.ErrValidation, stageName, "prepare", "item has no category; run analysis first", nil)
	}
	return nil
}

// Execute looks up the design rules for the category.
func (s *Stage) Execute(ctx context.Context, item *content.Item) (stage.Result, error) {
	assignment := Assign(s.tax, item.Derived.Category)
	if assignment.Fallback {
		logging.WithContext(ctx, s.logger).Warn("no design rules for category; using default layout",
			logging.String(logging.FieldEventType, "design_fallback"),
			logging.String(logging.FieldErrorHint, "add design rules for the category to the taxonomy file"),
			logging.String(logging.FieldImpact, "item rendered with the default template"),
			logging.String("category", item.Derived.Category),
		)
	}
	encoded, err := stage.Marshal(stageName, "design", assignment)
	if err != nil {
		return stage.Result{}, err
	}
	return stage.Result{Patch: content.Derived{Design: encoded}, Detail: assignment}, nil
}

// HealthCheck always reports ready; the stage has no collaborators.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(stageName)
}

// Assign resolves the design rules for category, falling back to the
// taxonomy default.
func Assign(tax *taxonomy.Taxonomy, category string) Assignment {
	rules, ok := tax.DesignFor(category)
	return Assignment{
		Category:   category,
		Template:   rules.Template,
		Layout:     rules.Layout,
		Palette:    rules.Palette,
		Components: rules.Components,
		Fallback:   !ok,
	}
}
