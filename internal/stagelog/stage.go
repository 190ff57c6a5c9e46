package stagelog

import (
	"fmt"
	"strings"

	"pressline/internal/services"
)

// Stage names one fixed pipeline step.
type Stage string

const (
	StageAnalysis        Stage = "analysis"
	StageDesign          Stage = "design"
	StageAssetValidation Stage = "asset_validation"
	StagePageComposition Stage = "page_composition"
	StageSEO             Stage = "seo"
	StageQuality         Stage = "quality"
	StageDeployment      Stage = "deployment"
)

var canonicalStages = []Stage{
	StageAnalysis,
	StageDesign,
	StageAssetValidation,
	StagePageComposition,
	StageSEO,
	StageQuality,
	StageDeployment,
}

// Canonical returns the stages in pipeline order.
func Canonical() []Stage {
	out := make([]Stage, len(canonicalStages))
	copy(out, canonicalStages)
	return out
}

// ParseStage accepts stage names case-insensitively; hyphens are treated as underscores.
func ParseStage(value string) (Stage, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
	for _, stage := range canonicalStages {
		if string(stage) == normalized {
			return stage, nil
		}
	}
	return "", services.Wrap(services.ErrValidation, "", "parse stage", fmt.Sprintf("unknown stage %q", value), nil)
}

// Status is the state recorded by one stage record.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the record closes an attempt.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
