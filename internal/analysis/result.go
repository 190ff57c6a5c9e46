package analysis

import "strings"

// Response is the structured record the classifier is asked to return.
type Response struct {
	Classification struct {
		Category   string   `json:"category"`
		Confidence float64  `json:"confidence"`
		Topics     []string `json:"topics"`
		Summary    string   `json:"summary"`
	} `json:"classification"`
	SEOElements SEOHints `json:"seoElements"`
}

// SEOHints are the classifier's SEO suggestions, finalized by the seo stage.
type SEOHints struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// Record is stored in the analysis derived field.
type Record struct {
	Category           string   `json:"category"`
	CategoryInput      string   `json:"category_input"`
	CategoryMatch      string   `json:"category_match"`
	Confidence         float64  `json:"confidence"`
	Topics             []string `json:"topics,omitempty"`
	Summary            string   `json:"summary,omitempty"`
	SEO                SEOHints `json:"seo"`
	Strategy           string   `json:"extraction_strategy"`
	Language           string   `json:"language,omitempty"`
	LanguageConfidence float64  `json:"language_confidence,omitempty"`
}

// HasSignal reports whether the classifier produced anything beyond a bare category.
func (r Record) HasSignal() bool {
	return r.Confidence > 0 || len(r.Topics) > 0 || strings.TrimSpace(r.Summary) != ""
}

// normalizeConfidence clamps model confidence into [0,1]. Values above 1 are
// read as percentages.
func normalizeConfidence(v float64) float64 {
	if v > 1 && v <= 100 {
		v /= 100
	}
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
