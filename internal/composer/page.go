package composer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pressline/internal/assets"
	"pressline/internal/design"
	"pressline/internal/stage"
	"pressline/internal/textutil"
)

// Page is the composed page stored in the page derived field and handed to
// the deploy collaborator after SEO finalization.
type Page struct {
	Slug         string   `json:"slug"`
	Title        string   `json:"title"`
	Summary      string   `json:"summary,omitempty"`
	BodyHTML     string   `json:"body_html"`
	Category     string   `json:"category"`
	Language     string   `json:"language,omitempty"`
	Template     string   `json:"template"`
	Layout       string   `json:"layout"`
	Palette      string   `json:"palette"`
	Components   []string `json:"components,omitempty"`
	Assets       []string `json:"assets"`
	PrunedAssets []string `json:"pruned_assets,omitempty"`
	SourceURL    string   `json:"source_url,omitempty"`
	Author       string   `json:"author,omitempty"`
}

// Compose builds the page from the payload, the design assignment and the
// asset report. The body is sanitized before images whose source the report
// marks broken are removed.
func Compose(p stage.Payload, assignment design.Assignment, report assets.Report, language string) (Page, error) {
	body := p.Body
	if !looksLikeHTML(body) {
		rendered, err := renderMarkdown(body)
		if err != nil {
			return Page{}, err
		}
		body = rendered
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(Sanitize(body)))
	if err != nil {
		return Page{}, err
	}

	var pruned []string
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		resolved, ok := assets.Resolve(p.SourceURL, src)
		if !ok {
			return
		}
		if report.Broken(resolved) {
			pruned = append(pruned, resolved)
			s.Remove()
			return
		}
		s.SetAttr("src", resolved)
		s.SetAttr("loading", "lazy")
	})

	bodyHTML, err := doc.Find("body").Html()
	if err != nil {
		return Page{}, err
	}

	healthy := make([]string, 0, report.HealthyCount)
	for _, r := range report.Results {
		if r.HealthStatus == assets.Healthy {
			healthy = append(healthy, r.URL)
		}
	}

	title := p.Title
	if title == "" {
		title = firstHeading(doc)
	}
	return Page{
		Slug:         textutil.Slugify(title),
		Title:        title,
		Summary:      p.Description,
		BodyHTML:     strings.TrimSpace(bodyHTML),
		Category:     assignment.Category,
		Language:     language,
		Template:     assignment.Template,
		Layout:       assignment.Layout,
		Palette:      assignment.Palette,
		Components:   assignment.Components,
		Assets:       healthy,
		PrunedAssets: pruned,
		SourceURL:    p.SourceURL,
		Author:       p.Author,
	}, nil
}

func firstHeading(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("h1, h2").First().Text())
}
