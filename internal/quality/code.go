package quality

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CountCodeExamples counts <pre> blocks in HTML plus fenced markdown blocks
// left in the text.
func CountCodeExamples(body string) int {
	count := 0
	text := body
	if strings.Contains(body, "<") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(body)); err == nil {
			count = doc.Find("pre").Length()
			doc.Find("pre").Remove()
			text = doc.Text()
		}
	}
	fences := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			fences++
		}
	}
	return count + fences/2
}
