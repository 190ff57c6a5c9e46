package analysis

import (
	"fmt"
	"strings"

	"pressline/internal/stage"
	"pressline/internal/taxonomy"
)

// maxPromptRunes bounds the article text sent to the classifier.
const maxPromptRunes = 12000

const systemPromptTemplate = `You classify technology news articles for a publishing pipeline.

Choose exactly one category from this list:
%s
Also propose SEO elements for the article page.

Respond ONLY with JSON in this shape:
{"classification": {"category": "<one category from the list>", "confidence": 0.0-1.0, "topics": ["..."], "summary": "one sentence"},
 "seoElements": {"title": "<= 60 characters", "description": "<= 160 characters", "keywords": ["..."]}}`

// SystemPrompt renders the classifier system prompt listing the taxonomy.
func SystemPrompt(tax *taxonomy.Taxonomy) string {
	if tax == nil {
		tax = taxonomy.Embedded()
	}
	return fmt.Sprintf(systemPromptTemplate, tax.PromptList())
}

// UserPrompt renders the article for the classifier.
func UserPrompt(p stage.Payload) string {
	var b strings.Builder
	if p.Title != "" {
		b.WriteString("Title: ")
		b.WriteString(p.Title)
		b.WriteByte('\n')
	}
	if p.Description != "" {
		b.WriteString("Summary: ")
		b.WriteString(p.Description)
		b.WriteByte('\n')
	}
	if len(p.Tags) > 0 {
		b.WriteString("Tags: ")
		b.WriteString(strings.Join(p.Tags, ", "))
		b.WriteByte('\n')
	}
	if p.Body != "" {
		b.WriteString("\n")
		b.WriteString(truncateRunes(p.Body, maxPromptRunes))
	}
	return strings.TrimSpace(b.String())
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
