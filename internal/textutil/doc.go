// Package textutil provides the text helpers shared by the composition, SEO and
// publishing stages: ASCII slug folding, rune-safe truncation, keyword term
// extraction and filename sanitization.
package textutil
