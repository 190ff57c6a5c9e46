package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"pressline/internal/content"
	"pressline/internal/logging"
	"pressline/internal/services"
	"pressline/internal/taxonomy"
)

type stubClassifier struct {
	reply  string
	err    error
	system string
	user   string
}

func (s *stubClassifier) Complete(_ context.Context, system, user string) (string, error) {
	s.system = system
	s.user = user
	return s.reply, s.err
}

func newItem(t *testing.T, payload map[string]any) *content.Item {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &content.Item{ContentID: "item-1", Status: content.StatusAnalyzing, RawPayload: raw}
}

const article = "OpenAI shipped a new SDK for developers building agents. The release adds streaming tool calls, typed responses and better retries for production workloads."

func TestExecuteExtractsAndNormalizesCategory(t *testing.T) {
	var resolutions []taxonomy.Resolution
	normalizer := taxonomy.NewNormalizer(nil, logging.NewNop(), taxonomy.WithObserver(func(r taxonomy.Resolution) {
		resolutions = append(resolutions, r)
	}))
	classifier := &stubClassifier{reply: "Sure! Here is the result:\n```json\n" +
		`{"classification":{"category":"ai product news","confidence":87,"topics":["sdk"],"summary":"New SDK"},` +
		`"seoElements":{"title":"New agent SDK","description":"What changed","keywords":["sdk","agents"]}}` +
		"\n```\nLet me know if you need more."}
	s := New(classifier, normalizer, logging.NewNop())
	item := newItem(t, map[string]any{"title": "New agent SDK", "body": article})

	if err := s.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	result, err := s.Execute(context.Background(), item)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Patch.Category != "AI_DEVELOPMENT" {
		t.Fatalf("expected AI_DEVELOPMENT, got %q", result.Patch.Category)
	}
	if result.Patch.ConfidenceScore == nil || *result.Patch.ConfidenceScore != 0.87 {
		t.Fatalf("expected confidence 0.87, got %v", result.Patch.ConfidenceScore)
	}
	if result.Patch.Language != "en" {
		t.Fatalf("expected language en, got %q", result.Patch.Language)
	}
	var record Record
	if err := json.Unmarshal(result.Patch.Analysis, &record); err != nil {
		t.Fatalf("decode analysis: %v", err)
	}
	if record.Strategy != "fenced" || record.CategoryMatch != "synonym" || record.SEO.Title != "New agent SDK" {
		t.Fatalf("unexpected record %+v", record)
	}
	if len(resolutions) != 1 || resolutions[0].Match != taxonomy.MatchSynonym {
		t.Fatalf("expected one synonym resolution, got %+v", resolutions)
	}
	if !strings.Contains(classifier.system, "AI_POLICY") {
		t.Fatalf("expected taxonomy in system prompt, got %q", classifier.system)
	}
	if !strings.Contains(classifier.user, "Title: New agent SDK") {
		t.Fatalf("expected title in user prompt, got %q", classifier.user)
	}
}

func TestExecuteUnknownCategoryFallsBackToDefault(t *testing.T) {
	classifier := &stubClassifier{reply: `{"classification":{"category":"Cooking","confidence":0.4},"seoElements":{}}`}
	s := New(classifier, nil, logging.NewNop())
	result, err := s.Execute(context.Background(), newItem(t, map[string]any{"body": article}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Patch.Category != "EMERGING_TECH" {
		t.Fatalf("expected default category, got %q", result.Patch.Category)
	}
}

func TestExecuteMalformedOutput(t *testing.T) {
	classifier := &stubClassifier{reply: "I think this is about AI policy, probably."}
	s := New(classifier, nil, logging.NewNop())
	_, err := s.Execute(context.Background(), newItem(t, map[string]any{"body": article}))
	if !errors.Is(err, services.ErrMalformedModelOutput) {
		t.Fatalf("expected malformed output, got %v", err)
	}
	if services.KindOf(err) != services.KindMalformedModelOutput {
		t.Fatalf("unexpected kind %s", services.KindOf(err))
	}
}

func TestExecuteClassifierTimeoutKeepsKind(t *testing.T) {
	timeout := services.Wrap(services.ErrExternalServiceTimeout, "", "llm complete", "", context.DeadlineExceeded)
	s := New(&stubClassifier{err: timeout}, nil, logging.NewNop())
	_, err := s.Execute(context.Background(), newItem(t, map[string]any{"body": article}))
	if services.KindOf(err) != services.KindExternalServiceTimeout {
		t.Fatalf("expected timeout kind, got %s (%v)", services.KindOf(err), err)
	}
}

func TestPrepareValidation(t *testing.T) {
	if err := New(nil, nil, logging.NewNop()).Prepare(context.Background(), newItem(t, map[string]any{"body": "x"})); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	s := New(&stubClassifier{}, nil, logging.NewNop())
	if err := s.Prepare(context.Background(), newItem(t, map[string]any{"tags": []string{"a"}})); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNormalizeConfidence(t *testing.T) {
	cases := map[float64]float64{-1: 0, 0.5: 0.5, 1: 1, 87: 0.87, 250: 1}
	for in, want := range cases {
		if got := normalizeConfidence(in); got != want {
			t.Fatalf("normalizeConfidence(%v) = %v, want %v", in, got, want)
		}
	}
}
