package textutil

import "strings"

const ellipsis = "…"

// Truncate shortens s to at most limit runes. When text is cut it breaks at the
// last word boundary that keeps at least half the limit and appends an ellipsis,
// which counts toward the limit.
func Truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit == 1 {
		return ellipsis
	}
	cut := runes[:limit-1]
	if idx := lastSpace(cut); idx >= limit/2 {
		cut = cut[:idx]
	}
	return strings.TrimRight(string(cut), " ,;:-") + ellipsis
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}
