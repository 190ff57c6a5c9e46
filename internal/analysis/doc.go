// Package analysis implements the classification stage.
//
// The stage prompts the classifier collaborator with the article and the
// canonical taxonomy, recovers the structured record with the extract
// package, maps the proposed category onto the taxonomy and detects the
// article language. It owns the category, confidence_score, language and
// analysis fields.
package analysis
