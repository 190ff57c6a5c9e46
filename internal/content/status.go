package content

import (
	"fmt"
	"strings"

	"pressline/internal/services"
)

// Status is the single source of truth for an item's pipeline position.
type Status string

const (
	StatusReceived              Status = "received"
	StatusAnalyzing             Status = "analyzing"
	StatusClassified            Status = "classified"
	StatusDesignProcessing      Status = "design_processing"
	StatusDesignApproved        Status = "design_approved"
	StatusAssetProcessing       Status = "asset_processing"
	StatusAssetsValidated       Status = "assets_validated"
	StatusPageCreated           Status = "page_created"
	StatusSEOOptimized          Status = "seo_optimized"
	StatusQualityApproved       Status = "quality_approved"
	StatusRequiresManualReview  Status = "requires_manual_review"
	StatusApprovedForPublishing Status = "approved_for_publishing"
	StatusCompleted             Status = "completed"
	StatusFailed                Status = "failed"
)

var allStatuses = []Status{
	StatusReceived,
	StatusAnalyzing,
	StatusClassified,
	StatusDesignProcessing,
	StatusDesignApproved,
	StatusAssetProcessing,
	StatusAssetsValidated,
	StatusPageCreated,
	StatusSEOOptimized,
	StatusQualityApproved,
	StatusRequiresManualReview,
	StatusApprovedForPublishing,
	StatusCompleted,
	StatusFailed,
}

// AllStatuses returns every status in pipeline order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, error) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, nil
		}
	}
	return "", services.Wrap(services.ErrValidation, "", "parse status", fmt.Sprintf("unknown status %q", value), nil)
}

// IsTerminal reports whether the status ends the pipeline run and stamps processing_end.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// AwaitingHuman reports whether the item waits on an operator decision.
func (s Status) AwaitingHuman() bool {
	return s == StatusRequiresManualReview
}

// edges lists the status writes the orchestrator may perform. Self edges are
// forced re-runs of stages with no processing state.
var edges = map[Status][]Status{
	StatusReceived:              {StatusAnalyzing},
	StatusAnalyzing:             {StatusClassified, StatusReceived},
	StatusClassified:            {StatusDesignProcessing, StatusAnalyzing},
	StatusDesignProcessing:      {StatusDesignApproved, StatusClassified},
	StatusDesignApproved:        {StatusAssetProcessing, StatusDesignProcessing},
	StatusAssetProcessing:       {StatusAssetsValidated, StatusDesignApproved},
	StatusAssetsValidated:       {StatusPageCreated, StatusAssetProcessing},
	StatusPageCreated:           {StatusSEOOptimized, StatusPageCreated},
	StatusSEOOptimized:          {StatusQualityApproved, StatusRequiresManualReview, StatusSEOOptimized},
	StatusQualityApproved:       {StatusApprovedForPublishing, StatusRequiresManualReview, StatusQualityApproved},
	StatusRequiresManualReview:  {StatusApprovedForPublishing},
	StatusApprovedForPublishing: {StatusCompleted, StatusFailed},
	StatusCompleted:             {},
	StatusFailed: {
		StatusApprovedForPublishing,
		StatusReceived,
		StatusClassified,
		StatusDesignApproved,
		StatusAssetsValidated,
		StatusPageCreated,
		StatusSEOOptimized,
	},
}

// CanTransition reports whether from → to is a legal orchestrator write.
func CanTransition(from, to Status) bool {
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}
