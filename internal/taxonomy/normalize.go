package taxonomy

import (
	"context"
	"log/slog"

	"pressline/internal/logging"
)

// Match describes how an input resolved.
type Match string

const (
	MatchDirect  Match = "direct"
	MatchSynonym Match = "synonym"
	MatchDefault Match = "default"
)

// Resolution is the outcome of normalizing one category input.
type Resolution struct {
	Input     string `json:"input"`
	Canonical string `json:"canonical"`
	Match     Match  `json:"match"`
}

// Normalizer maps free-form inputs onto canonical categories.
type Normalizer struct {
	tax     *Taxonomy
	logger  *slog.Logger
	observe func(Resolution)
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithObserver registers a callback invoked for every resolution (used for metrics).
func WithObserver(fn func(Resolution)) NormalizerOption {
	return func(n *Normalizer) { n.observe = fn }
}

// NewNormalizer builds a normalizer over tax.
func NewNormalizer(tax *Taxonomy, logger *slog.Logger, opts ...NormalizerOption) *Normalizer {
	if tax == nil {
		tax = Embedded()
	}
	n := &Normalizer{tax: tax, logger: logging.NewComponentLogger(logger, "taxonomy")}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Taxonomy returns the underlying taxonomy.
func (n *Normalizer) Taxonomy() *Taxonomy { return n.tax }

// Resolve maps input to a canonical category. It never fails: unmapped input
// falls back to the default category and is logged as such.
func (n *Normalizer) Resolve(ctx context.Context, input string) Resolution {
	res := n.resolve(input)
	attrs := logging.DecisionAttrs("category_normalization", res.Canonical, string(res.Match))
	attrs = append(attrs,
		logging.String("category_input", input),
		logging.String(logging.FieldEventType, "category_resolved"),
	)
	logger := logging.WithContext(ctx, n.logger)
	if res.Match == MatchDefault {
		attrs = append(attrs, logging.String(logging.FieldImpact, "category coerced to default"))
		logger.Warn("category fell back to default", logging.Args(attrs...)...)
	} else {
		logger.Info("category resolved", logging.Args(attrs...)...)
	}
	if n.observe != nil {
		n.observe(res)
	}
	return res
}

func (n *Normalizer) resolve(input string) Resolution {
	folded := Fold(input)
	if _, ok := n.tax.byName[folded]; ok {
		return Resolution{Input: input, Canonical: folded, Match: MatchDirect}
	}
	if target, ok := n.tax.synonyms[folded]; ok {
		return Resolution{Input: input, Canonical: target, Match: MatchSynonym}
	}
	return Resolution{Input: input, Canonical: n.tax.Default, Match: MatchDefault}
}
