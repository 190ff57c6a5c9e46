// Package language detects the language of submitted content and normalizes
// language codes.
//
// Detect runs whatlanggo over the classification text and reports ISO 639-1
// codes where the code table knows the language. The SEO stage uses the same
// table to emit the page lang attribute and the display name.
package language
