package textutil

import (
	"regexp"
	"sort"
	"strings"
)

// tokenSplitPattern matches non-alphanumeric character sequences for tokenization.
var tokenSplitPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// stopWords are dropped from keyword candidates.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {}, "from": {},
	"are": {}, "was": {}, "were": {}, "has": {}, "have": {}, "had": {}, "its": {},
	"not": {}, "but": {}, "you": {}, "your": {}, "can": {}, "will": {}, "into": {},
	"their": {}, "they": {}, "them": {}, "than": {}, "then": {}, "there": {}, "which": {},
	"about": {}, "more": {}, "also": {}, "new": {}, "how": {}, "what": {}, "when": {},
	"who": {}, "why": {}, "all": {}, "our": {}, "out": {}, "over": {}, "some": {},
	"such": {}, "these": {}, "those": {}, "been": {}, "being": {}, "just": {}, "like": {},
	"one": {}, "two": {}, "use": {}, "used": {}, "using": {}, "via": {}, "per": {},
}

// Tokenize splits text into lowercase tokens, filtering short tokens.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	raw := tokenSplitPattern.Split(lowered, -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		if len([]rune(token)) < 3 {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// TopTerms returns up to n of the most frequent non-stop-word tokens in text.
// Ties keep first-appearance order.
func TopTerms(text string, n int) []string {
	if n <= 0 {
		return nil
	}
	counts := make(map[string]int)
	var order []string
	for _, token := range Tokenize(text) {
		if _, stop := stopWords[token]; stop {
			continue
		}
		if isNumeric(token) {
			continue
		}
		if counts[token] == 0 {
			order = append(order, token)
		}
		counts[token]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}

func isNumeric(token string) bool {
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
