package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"

	"pressline/internal/services"
)

// Strategy names one recovery strategy.
type Strategy string

const (
	StrategyDirect         Strategy = "direct"
	StrategyFenced         Strategy = "fenced"
	StrategyBalancedBraces Strategy = "balanced_braces"
)

// ClassificationShape is the required key set for classifier responses.
var ClassificationShape = []string{"classification", "seoElements"}

// SnippetLimit bounds the text carried by MalformedOutputError, in runes.
const SnippetLimit = 500

// MaxInputBytes bounds the text Extract will scan. Longer text is reported as
// malformed without trying any strategy.
const MaxInputBytes = 1 << 20

// maxBraceCandidates bounds how many balanced spans are decoded.
const maxBraceCandidates = 64

// MalformedOutputError reports that every strategy was exhausted.
type MalformedOutputError struct {
	Snippet string
	Length  int
	Tried   []Strategy
}

func (e *MalformedOutputError) Error() string {
	names := make([]string, len(e.Tried))
	for i, s := range e.Tried {
		names[i] = string(s)
	}
	return fmt.Sprintf("malformed model output (%d bytes, tried %s): %s", e.Length, strings.Join(names, ", "), e.Snippet)
}

func (e *MalformedOutputError) Unwrap() error { return services.ErrMalformedModelOutput }

type strategy struct {
	name       Strategy
	candidates func(text string) []string
}

var chain = []strategy{
	{StrategyDirect, directCandidates},
	{StrategyFenced, fencedCandidates},
	{StrategyBalancedBraces, braceCandidates},
}

// Extractor validates candidates against a required top-level key set.
type Extractor struct {
	Required []string
}

// New returns an Extractor requiring the given top-level keys.
func New(required ...string) *Extractor {
	return &Extractor{Required: required}
}

// Extract decodes the first acceptable candidate into target and reports the
// strategy that produced it. ctx is checked between candidates.
func (e *Extractor) Extract(ctx context.Context, text string, target any) (Strategy, error) {
	tried := make([]Strategy, 0, len(chain))
	if len(text) > MaxInputBytes {
		return "", &MalformedOutputError{Snippet: Snippet(text), Length: len(text), Tried: tried}
	}
	for _, s := range chain {
		tried = append(tried, s.name)
		for _, candidate := range s.candidates(text) {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			if e.accepts(candidate, target) {
				return s.name, nil
			}
		}
	}
	return "", &MalformedOutputError{Snippet: Snippet(text), Length: len(text), Tried: tried}
}

func (e *Extractor) accepts(candidate string, target any) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil || fields == nil {
		return false
	}
	for _, key := range e.Required {
		if _, ok := fields[key]; !ok {
			return false
		}
	}
	if target == nil {
		return true
	}
	if v := reflect.ValueOf(target); v.Kind() == reflect.Pointer && !v.IsNil() {
		v.Elem().SetZero()
	}
	return json.Unmarshal([]byte(candidate), target) == nil
}

// Snippet collapses whitespace and truncates text to SnippetLimit runes.
func Snippet(text string) string {
	clean := strings.Join(strings.Fields(text), " ")
	if clean == "" {
		return "<empty>"
	}
	if utf8.RuneCountInString(clean) <= SnippetLimit {
		return clean
	}
	runes := []rune(clean)
	return string(runes[:SnippetLimit]) + "..."
}

func directCandidates(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	return []string{trimmed}
}

const fence = "```"

// fencedCandidates returns the body of every fenced block in order. An
// unterminated final fence yields the remaining text.
func fencedCandidates(text string) []string {
	var out []string
	rest := text
	for {
		open := strings.Index(rest, fence)
		if open < 0 {
			return out
		}
		body := rest[open+len(fence):]
		closing := strings.Index(body, fence)
		if closing >= 0 {
			rest = body[closing+len(fence):]
			body = body[:closing]
		} else {
			rest = ""
		}
		if candidate := strings.TrimSpace(stripFenceTag(body)); candidate != "" {
			out = append(out, candidate)
		}
		if rest == "" {
			return out
		}
	}
}

// stripFenceTag drops a leading language tag such as json or JSON.
func stripFenceTag(body string) string {
	line, remainder, found := strings.Cut(body, "\n")
	tag := strings.TrimSpace(line)
	if !found || tag == "" {
		return body
	}
	for _, r := range tag {
		if !(r == '-' || r == '_' || r == '+' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return body
		}
	}
	return remainder
}

type span struct {
	start int
	end   int
}

func (s span) size() int { return s.end - s.start }

// braceCandidates returns balanced {...} substrings, longest first with ties
// broken by position. Braces inside JSON strings are ignored. String state is
// tracked only inside a brace so quotes in surrounding prose do not count.
func braceCandidates(text string) []string {
	var (
		spans    []span
		open     []int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = len(open) > 0
		case '{':
			open = append(open, i)
		case '}':
			if len(open) == 0 {
				continue
			}
			start := open[len(open)-1]
			open = open[:len(open)-1]
			spans = append(spans, span{start: start, end: i + 1})
		}
	}
	sort.SliceStable(spans, func(a, b int) bool {
		if spans[a].size() != spans[b].size() {
			return spans[a].size() > spans[b].size()
		}
		return spans[a].start < spans[b].start
	})
	out := make([]string, 0, min(len(spans), maxBraceCandidates))
	seen := make(map[string]struct{})
	for _, sp := range spans {
		if len(out) == maxBraceCandidates {
			break
		}
		candidate := text[sp.start:sp.end]
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}
	return out
}
