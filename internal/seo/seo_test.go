package seo

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"pressline/internal/analysis"
	"pressline/internal/composer"
	"pressline/internal/content"
	"pressline/internal/logging"
	"pressline/internal/stage"
)

func TestFinalizeClampsAndDedupes(t *testing.T) {
	record := analysis.Record{
		Topics: []string{"Agents", "sdk"},
		SEO: analysis.SEOHints{
			Title:       strings.Repeat("Very long headline words ", 6),
			Description: strings.Repeat("A description that goes on and on. ", 10),
			Keywords:    []string{"SDK", "sdk", " agents ", "Tool Calls"},
		},
	}
	p := stage.Payload{Tags: []string{"openai", "Agents"}, SourceURL: "https://news.example.com/x"}
	page := composer.Page{
		Slug:     "agent-sdk",
		Title:    "Agent SDK",
		BodyHTML: "<p>Streaming tool calls arrive in the streaming SDK.</p><pre><code>ignored code tokens</code></pre>",
		Assets:   []string{"https://cdn.example.com/hero.png"},
	}

	el := Finalize(record, p, page, "en")
	if utf8.RuneCountInString(el.Title) > MaxTitleRunes || utf8.RuneCountInString(el.Description) > MaxDescriptionRunes {
		t.Fatalf("limits not applied: %q / %q", el.Title, el.Description)
	}
	if el.Slug != "agent-sdk" || el.Language != "en" || el.LanguageName != "English" {
		t.Fatalf("unexpected slug/lang %+v", el)
	}
	if el.OpenGraph["og:locale"] != "en_US" {
		t.Fatalf("expected en_US locale, got %q", el.OpenGraph["og:locale"])
	}
	if len(el.Keywords) > MaxKeywords {
		t.Fatalf("too many keywords %v", el.Keywords)
	}
	wantPrefix := []string{"sdk", "agents", "tool calls", "openai"}
	for i, kw := range wantPrefix {
		if el.Keywords[i] != kw {
			t.Fatalf("unexpected keywords %v", el.Keywords)
		}
	}
	for _, kw := range el.Keywords {
		if kw == "ignored" {
			t.Fatalf("code tokens leaked into keywords %v", el.Keywords)
		}
	}
	if el.OpenGraph["og:image"] != "https://cdn.example.com/hero.png" || el.OpenGraph["og:url"] != p.SourceURL {
		t.Fatalf("unexpected open graph %v", el.OpenGraph)
	}
}

func TestFinalizeFallbacks(t *testing.T) {
	page := composer.Page{Title: "Café Déjà Vu", BodyHTML: "<p></p><p>First real paragraph.</p>"}
	el := Finalize(analysis.Record{}, stage.Payload{}, page, "")
	if el.Title != "Café Déjà Vu" || el.Slug != "cafe-deja-vu" {
		t.Fatalf("unexpected title/slug %+v", el)
	}
	if el.Description != "First real paragraph." {
		t.Fatalf("unexpected description %q", el.Description)
	}
	if el.Language != "und" {
		t.Fatalf("expected und language, got %q", el.Language)
	}
}

func TestStageExecute(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{"title": "T", "description": "D"})
	pageJSON, _ := json.Marshal(composer.Page{Slug: "t", Title: "T", BodyHTML: "<p>x</p>"})
	item := &content.Item{ContentID: "s-1", RawPayload: raw, Derived: content.Derived{Page: pageJSON, Language: "de"}}
	s := NewStage(logging.NewNop())
	if err := s.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	result, err := s.Execute(context.Background(), item)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var el Elements
	if err := json.Unmarshal(result.Patch.SEOElements, &el); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if el.Description != "D" || el.Language != "de" {
		t.Fatalf("unexpected elements %+v", el)
	}
}
