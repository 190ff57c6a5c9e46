package taxonomy_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pressline/internal/logging"
	"pressline/internal/services"
	"pressline/internal/taxonomy"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		input     string
		canonical string
		match     taxonomy.Match
	}{
		{"AI_DEVELOPMENT", "AI_DEVELOPMENT", taxonomy.MatchDirect},
		{"ai-research", "AI_RESEARCH", taxonomy.MatchDirect},
		{"  Ai Tools ", "AI_TOOLS", taxonomy.MatchDirect},
		{"AI_PRODUCT_NEWS", "AI_DEVELOPMENT", taxonomy.MatchSynonym},
		{"ai product news", "AI_DEVELOPMENT", taxonomy.MatchSynonym},
		{"Régulation", "AI_POLICY", taxonomy.MatchSynonym},
		{"ＭＬＯＰＳ", "AI_INFRASTRUCTURE", taxonomy.MatchSynonym},
		{"CELEBRITY_GOSSIP", "EMERGING_TECH", taxonomy.MatchDefault},
		{"", "EMERGING_TECH", taxonomy.MatchDefault},
	}
	var seen []taxonomy.Resolution
	n := taxonomy.NewNormalizer(nil, nil, taxonomy.WithObserver(func(r taxonomy.Resolution) { seen = append(seen, r) }))
	for _, tc := range cases {
		got := n.Resolve(context.Background(), tc.input)
		if got.Canonical != tc.canonical || got.Match != tc.match || got.Input != tc.input {
			t.Fatalf("Resolve(%q) = %+v, want %s/%s", tc.input, got, tc.canonical, tc.match)
		}
	}
	if len(seen) != len(cases) {
		t.Fatalf("observer saw %d resolutions, want %d", len(seen), len(cases))
	}
}

func TestResolveLogsDefaultFallback(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Console: &buf})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	n := taxonomy.NewNormalizer(nil, logger.Logger)
	n.Resolve(context.Background(), "SPORTS")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log: %v (%q)", err, buf.String())
	}
	if record["decision_type"] != "category_normalization" || record["decision_result"] != "EMERGING_TECH" ||
		record["decision_reason"] != "default" || record["category_input"] != "SPORTS" || record["level"] != "warn" {
		t.Fatalf("unexpected decision log %+v", record)
	}
}

func TestEmbeddedTaxonomy(t *testing.T) {
	tax := taxonomy.Embedded()
	names := tax.Names()
	want := []string{"AI_BUSINESS", "AI_DEVELOPMENT", "AI_INFRASTRUCTURE", "AI_POLICY", "AI_RESEARCH", "AI_TOOLS", "EMERGING_TECH"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected categories %v", names)
	}
	if tax.Default != "EMERGING_TECH" {
		t.Fatalf("unexpected default %q", tax.Default)
	}
	design, ok := tax.DesignFor("AI_RESEARCH")
	if !ok || design.Template != "research-brief" {
		t.Fatalf("unexpected design %+v ok=%v", design, ok)
	}
	fallback, ok := tax.DesignFor("UNKNOWN")
	if ok || fallback.Template != "standard-article" {
		t.Fatalf("expected default design, got %+v ok=%v", fallback, ok)
	}
	if !strings.Contains(tax.PromptList(), "- AI_POLICY: ") {
		t.Fatalf("prompt list missing category: %q", tax.PromptList())
	}
}

func TestLoadOverrideValidates(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	body := "default: general\ncategories:\n  - name: general\n  - name: ai news\nsynonyms:\n  genai: ai-news\n"
	if err := os.WriteFile(good, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tax, err := taxonomy.Load(good)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	res := taxonomy.NewNormalizer(tax, nil).Resolve(context.Background(), "GenAI")
	if res.Canonical != "AI_NEWS" || res.Match != taxonomy.MatchSynonym {
		t.Fatalf("unexpected resolution %+v", res)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("default: missing\ncategories:\n  - name: only\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := taxonomy.Load(bad); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := taxonomy.Load(filepath.Join(dir, "absent.yaml")); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing file, got %v", err)
	}
}

func TestFold(t *testing.T) {
	cases := map[string]string{
		"ai/dev..tools": "AI_DEV_TOOLS",
		"__x__":         "X",
		"Café Tech":     "CAFE_TECH",
	}
	for in, want := range cases {
		if got := taxonomy.Fold(in); got != want {
			t.Fatalf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}
