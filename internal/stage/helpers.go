package stage

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"pressline/internal/content"
	"pressline/internal/services"
)

// Payload is the lenient view of a raw submission shared by the stages.
type Payload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Body        string   `json:"body"`
	SourceURL   string   `json:"source_url"`
	Tags        []string `json:"tags"`
	Assets      []string `json:"assets"`
	Author      string   `json:"author"`
}

type rawPayload struct {
	Title       string            `json:"title"`
	Headline    string            `json:"headline"`
	Description string            `json:"description"`
	Summary     string            `json:"summary"`
	Deck        string            `json:"deck"`
	Body        string            `json:"body"`
	Content     string            `json:"content"`
	Text        string            `json:"text"`
	Markdown    string            `json:"markdown"`
	HTML        string            `json:"html"`
	SourceURL   string            `json:"source_url"`
	URL         string            `json:"url"`
	Tags        []string          `json:"tags"`
	Keywords    []string          `json:"keywords"`
	Assets      []json.RawMessage `json:"assets"`
	Images      []json.RawMessage `json:"images"`
	Author      string            `json:"author"`
}

// ParsePayload decodes an item's raw submission. Common field aliases are
// accepted (headline, summary, content, markdown, ...). Structured assets may be
// plain URL strings or objects with a url/src field.
func ParsePayload(raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 {
		return Payload{}, services.Wrap(services.ErrValidation, "stage", "parse payload", "raw payload is empty", nil)
	}
	var r rawPayload
	if err := json.Unmarshal(raw, &r); err != nil {
		return Payload{}, services.Wrap(services.ErrValidation, "stage", "parse payload", "raw payload is not a JSON object", err)
	}
	p := Payload{
		Title:       firstNonEmpty(r.Title, r.Headline),
		Description: firstNonEmpty(r.Description, r.Summary, r.Deck),
		Body:        firstNonEmpty(r.Body, r.Content, r.Markdown, r.HTML, r.Text),
		SourceURL:   firstNonEmpty(r.SourceURL, r.URL),
		Author:      strings.TrimSpace(r.Author),
	}
	p.Tags = append(p.Tags, trimAll(r.Tags)...)
	p.Tags = append(p.Tags, trimAll(r.Keywords)...)
	for _, entry := range append(r.Assets, r.Images...) {
		if url := assetURL(entry); url != "" {
			p.Assets = append(p.Assets, url)
		}
	}
	return p, nil
}

// PayloadOf parses item's raw payload.
func PayloadOf(item *content.Item) (Payload, error) {
	if item == nil {
		return Payload{}, services.Wrap(services.ErrValidation, "stage", "parse payload", "item is required", nil)
	}
	return ParsePayload(item.RawPayload)
}

// Text is the content used for classification and length checks.
func (p Payload) Text() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Title, p.Description, p.Body} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Length is the body length in runes.
func (p Payload) Length() int {
	return utf8.RuneCountInString(p.Body)
}

// Marshal encodes v for a derived field.
func Marshal(stageName, field string, v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "encode "+field, "", err)
	}
	return data, nil
}

func assetURL(entry json.RawMessage) string {
	var s string
	if err := json.Unmarshal(entry, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		URL string `json:"url"`
		Src string `json:"src"`
	}
	if err := json.Unmarshal(entry, &obj); err == nil {
		return firstNonEmpty(obj.URL, obj.Src)
	}
	return ""
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
