package seo

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pressline/internal/analysis"
	"pressline/internal/composer"
	"pressline/internal/language"
	"pressline/internal/stage"
	"pressline/internal/textutil"
)

// Limits applied to the finalized elements.
const (
	MaxTitleRunes       = 60
	MaxDescriptionRunes = 160
	MaxKeywords         = 10
)

// Elements is stored in the seo_elements derived field.
type Elements struct {
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Slug         string            `json:"slug"`
	Keywords     []string          `json:"keywords"`
	Language     string            `json:"language"`
	LanguageName string            `json:"language_name"`
	OpenGraph    map[string]string `json:"open_graph"`
}

// Finalize derives the SEO elements from the classifier hints, the payload and
// the composed page. Classifier suggestions win when present; every field is
// clamped to its limit.
func Finalize(record analysis.Record, p stage.Payload, page composer.Page, lang string) Elements {
	title := firstNonEmpty(record.SEO.Title, page.Title, p.Title)
	description := firstNonEmpty(record.SEO.Description, p.Description, record.Summary, firstParagraph(page.BodyHTML))

	el := Elements{
		Title:       textutil.Truncate(title, MaxTitleRunes),
		Description: textutil.Truncate(description, MaxDescriptionRunes),
		Slug:        textutil.Slugify(firstNonEmpty(page.Slug, title)),
		Keywords:    keywords(record, p, page),
	}
	if lang = strings.TrimSpace(lang); lang == "" {
		lang = language.Undetermined
	}
	el.Language = lang
	el.LanguageName = language.DisplayName(lang)
	el.OpenGraph = map[string]string{
		"og:title":       el.Title,
		"og:description": el.Description,
		"og:type":        "article",
	}
	if locale := language.OpenGraphLocale(lang); locale != "" {
		el.OpenGraph["og:locale"] = locale
	}
	if len(page.Assets) > 0 {
		el.OpenGraph["og:image"] = page.Assets[0]
	}
	if p.SourceURL != "" {
		el.OpenGraph["og:url"] = p.SourceURL
	}
	return el
}

func keywords(record analysis.Record, p stage.Payload, page composer.Page) []string {
	candidates := make([]string, 0, 32)
	candidates = append(candidates, record.SEO.Keywords...)
	candidates = append(candidates, p.Tags...)
	candidates = append(candidates, record.Topics...)
	candidates = append(candidates, textutil.TopTerms(pageText(page.BodyHTML), MaxKeywords)...)

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, MaxKeywords)
	for _, kw := range candidates {
		kw = strings.ToLower(strings.Join(strings.Fields(kw), " "))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
		if len(out) == MaxKeywords {
			break
		}
	}
	return out
}

func pageText(bodyHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(bodyHTML))
	if err != nil {
		return ""
	}
	doc.Find("pre, code").Remove()
	return doc.Text()
}

func firstParagraph(bodyHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(bodyHTML))
	if err != nil {
		return ""
	}
	var text string
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text = strings.TrimSpace(s.Text())
		return text == ""
	})
	return text
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
