package assets

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pressline/internal/stage"
)

// markdownImage matches ![alt](url "title") references.
var markdownImage = regexp.MustCompile(`!\[[^\]]*\]\(\s*<?([^)\s>]+)>?(?:\s+"[^"]*")?\s*\)`)

// inlineSelectors lists markup that references a renderable asset.
var inlineSelectors = []struct {
	selector string
	attr     string
}{
	{"img", "src"},
	{"picture source", "srcset"},
	{"video", "src"},
	{"video", "poster"},
	{"video source", "src"},
	{"audio", "src"},
	{"audio source", "src"},
}

// ExtractURLs collects the asset URLs referenced by a payload: inline HTML
// markup, markdown image references and the structured assets list. Relative
// references resolve against the payload's source URL; anything that is not
// an absolute http(s) URL afterwards is dropped. Order of first appearance is
// preserved and duplicates are removed.
func ExtractURLs(p stage.Payload) []string {
	var base *url.URL
	if p.SourceURL != "" {
		if parsed, err := url.Parse(p.SourceURL); err == nil && parsed.IsAbs() {
			base = parsed
		}
	}

	var found []string
	if strings.Contains(p.Body, "<") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.Body)); err == nil {
			for _, sel := range inlineSelectors {
				doc.Find(sel.selector).Each(func(_ int, s *goquery.Selection) {
					value, ok := s.Attr(sel.attr)
					if !ok {
						return
					}
					if sel.attr == "srcset" {
						found = append(found, srcsetURLs(value)...)
						return
					}
					found = append(found, value)
				})
			}
		}
	}
	for _, match := range markdownImage.FindAllStringSubmatch(p.Body, -1) {
		found = append(found, match[1])
	}
	found = append(found, p.Assets...)

	return normalizeURLs(base, found)
}

func srcsetURLs(srcset string) []string {
	var out []string
	for _, candidate := range strings.Split(srcset, ",") {
		fields := strings.Fields(candidate)
		if len(fields) > 0 {
			out = append(out, fields[0])
		}
	}
	return out
}

func normalizeURLs(base *url.URL, raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, value := range raw {
		value = strings.TrimSpace(value)
		if value == "" || strings.HasPrefix(value, "data:") {
			continue
		}
		parsed, err := url.Parse(value)
		if err != nil {
			continue
		}
		if !parsed.IsAbs() {
			if base == nil {
				continue
			}
			parsed = base.ResolveReference(parsed)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			continue
		}
		parsed.Fragment = ""
		key := parsed.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// Resolve applies the extraction rules to a single reference: relative
// references resolve against sourceURL and only http(s) results are kept.
func Resolve(sourceURL, ref string) (string, bool) {
	var base *url.URL
	if parsed, err := url.Parse(sourceURL); err == nil && parsed.IsAbs() {
		base = parsed
	}
	out := normalizeURLs(base, []string{ref})
	if len(out) == 0 {
		return "", false
	}
	return out[0], true
}
