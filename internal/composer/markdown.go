package composer

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdown renders submissions with GitHub flavoured extensions. Raw HTML
// inside markdown is omitted and dangerous link schemes are blanked.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// bodyPolicy is the allow-list every composed body passes through.
var bodyPolicy = newBodyPolicy()

func newBodyPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+-]+$`)).OnElements("code")
	policy.AllowAttrs("loading").Matching(regexp.MustCompile(`^(lazy|eager)$`)).OnElements("img")
	return policy
}

// looksLikeHTML reports whether body is already markup.
func looksLikeHTML(body string) bool {
	trimmed := strings.TrimSpace(body)
	return strings.HasPrefix(trimmed, "<") && strings.Contains(trimmed, ">")
}

func renderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Sanitize applies the body allow-list. Scripts, event handlers and
// non-web URL schemes are removed.
func Sanitize(body string) string {
	return bodyPolicy.Sanitize(body)
}
