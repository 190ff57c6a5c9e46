// Package taxonomy holds the closed set of canonical content categories, the
// synonym table that maps free-form inputs onto it, and the design rules
// assigned per category.
//
// The taxonomy ships embedded and may be replaced by a YAML file at
// intake.taxonomy_path. Unmapped inputs resolve to the documented default
// category; every resolution is logged as a decision so silent coercion is
// visible.
package taxonomy
