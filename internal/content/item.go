package content

import (
	"encoding/json"
	"time"

	"pressline/internal/stagelog"
)

// Item is one content item moving through the pipeline.
type Item struct {
	ContentID       string          `json:"content_id"`
	Status          Status          `json:"status"`
	RawPayload      json.RawMessage `json:"raw_payload"`
	Derived         Derived         `json:"derived"`
	ProcessingStart time.Time       `json:"processing_start"`
	ProcessingEnd   time.Time       `json:"processing_end,omitzero"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Age is the time elapsed since intake.
func (i *Item) Age(now time.Time) time.Duration {
	if i == nil || i.ProcessingStart.IsZero() {
		return 0
	}
	return now.Sub(i.ProcessingStart)
}

// Derived holds the fields stages populate. Each field has exactly one
// owning stage; see Owner. Structured fields are kept as JSON so this package
// stays independent of the stage packages that define their shapes.
type Derived struct {
	Category        string          `json:"category,omitempty"`
	ConfidenceScore *float64        `json:"confidence_score,omitempty"`
	Language        string          `json:"language,omitempty"`
	Analysis        json.RawMessage `json:"analysis,omitempty"`
	Design          json.RawMessage `json:"design,omitempty"`
	AssetReport     json.RawMessage `json:"asset_report,omitempty"`
	Page            json.RawMessage `json:"page,omitempty"`
	SEOElements     json.RawMessage `json:"seo_elements,omitempty"`
	QualityMetrics  json.RawMessage `json:"quality_metrics,omitempty"`
	ErrorLogs       []ErrorLog      `json:"error_logs,omitempty"`
}

// ErrorLog is one orchestrator-recorded stage failure.
type ErrorLog struct {
	Stage     stagelog.Stage `json:"stage"`
	AttemptID string         `json:"attempt_id,omitempty"`
	Kind      string         `json:"kind"`
	Message   string         `json:"message"`
	At        time.Time      `json:"at"`
}

// Field names a derived field.
type Field string

const (
	FieldCategory        Field = "category"
	FieldConfidenceScore Field = "confidence_score"
	FieldLanguage        Field = "language"
	FieldAnalysis        Field = "analysis"
	FieldDesign          Field = "design"
	FieldAssetReport     Field = "asset_report"
	FieldPage            Field = "page"
	FieldSEOElements     Field = "seo_elements"
	FieldQualityMetrics  Field = "quality_metrics"
	FieldErrorLogs       Field = "error_logs"
)

// OwnerOrchestrator is the owner of error_logs.
const OwnerOrchestrator = "orchestrator"

var owners = map[Field]string{
	FieldCategory:        string(stagelog.StageAnalysis),
	FieldConfidenceScore: string(stagelog.StageAnalysis),
	FieldLanguage:        string(stagelog.StageAnalysis),
	FieldAnalysis:        string(stagelog.StageAnalysis),
	FieldDesign:          string(stagelog.StageDesign),
	FieldAssetReport:     string(stagelog.StageAssetValidation),
	FieldPage:            string(stagelog.StagePageComposition),
	FieldSEOElements:     string(stagelog.StageSEO),
	FieldQualityMetrics:  string(stagelog.StageQuality),
	FieldErrorLogs:       OwnerOrchestrator,
}

// Owner returns the single writer of field.
func Owner(field Field) string {
	return owners[field]
}

// columns maps each patchable field to its storage column.
var columns = map[Field]string{
	FieldCategory:        "category",
	FieldConfidenceScore: "confidence_score",
	FieldLanguage:        "language",
	FieldAnalysis:        "analysis_json",
	FieldDesign:          "design_json",
	FieldAssetReport:     "asset_report_json",
	FieldPage:            "page_json",
	FieldSEOElements:     "seo_elements_json",
	FieldQualityMetrics:  "quality_metrics_json",
}

// setFields lists the fields a patch writes along with their stored values.
func (d Derived) setFields() map[Field]any {
	out := make(map[Field]any)
	if d.Category != "" {
		out[FieldCategory] = d.Category
	}
	if d.ConfidenceScore != nil {
		out[FieldConfidenceScore] = *d.ConfidenceScore
	}
	if d.Language != "" {
		out[FieldLanguage] = d.Language
	}
	raw := map[Field]json.RawMessage{
		FieldAnalysis:       d.Analysis,
		FieldDesign:         d.Design,
		FieldAssetReport:    d.AssetReport,
		FieldPage:           d.Page,
		FieldSEOElements:    d.SEOElements,
		FieldQualityMetrics: d.QualityMetrics,
	}
	for field, value := range raw {
		if len(value) > 0 {
			out[field] = string(value)
		}
	}
	if len(d.ErrorLogs) > 0 {
		out[FieldErrorLogs] = d.ErrorLogs
	}
	return out
}

// Empty reports whether the patch writes nothing.
func (d Derived) Empty() bool {
	return len(d.setFields()) == 0
}

// Float returns a pointer to v for ConfidenceScore patches.
func Float(v float64) *float64 { return &v }

// Decode unmarshals a structured derived field into target. Empty fields leave target untouched.
func Decode(raw json.RawMessage, target any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, target)
}
