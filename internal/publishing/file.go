package publishing

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"pressline/internal/composer"
	"pressline/internal/fileutil"
	"pressline/internal/services"
	"pressline/internal/textutil"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="{{.SEO.Language}}">
<head>
<meta charset="utf-8">
<title>{{.SEO.Title}}</title>
<meta name="description" content="{{.SEO.Description}}">
{{- if .SEO.Keywords}}
<meta name="keywords" content="{{range $i, $k := .SEO.Keywords}}{{if $i}}, {{end}}{{$k}}{{end}}">
{{- end}}
{{- range $key, $value := .SEO.OpenGraph}}
<meta property="{{$key}}" content="{{$value}}">
{{- end}}
</head>
<body class="template-{{.Page.Template}} layout-{{.Page.Layout}} palette-{{.Page.Palette}}">
<article data-category="{{.Page.Category}}">
<h1>{{.Page.Title}}</h1>
{{.Body}}
</article>
</body>
</html>
`))

type pageView struct {
	Request
	Body template.HTML
}

// FileDeployer renders pages into a local publish directory. It is the
// fallback when no webhook is configured.
type FileDeployer struct {
	dir string
	now func() time.Time
}

// NewFileDeployer writes pages beneath dir.
func NewFileDeployer(dir string) *FileDeployer {
	return &FileDeployer{dir: dir, now: time.Now}
}

// Name identifies the deployer in logs.
func (d *FileDeployer) Name() string { return "file" }

// Deploy writes <slug>.html and a <slug>.json sidecar holding the request.
func (d *FileDeployer) Deploy(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, services.Wrap(services.ErrExternalServiceTimeout, stageName, "deploy", "context done before write", err)
	}
	started := d.now()
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return Response{}, services.Wrap(services.ErrConfiguration, stageName, "create publish dir", d.dir, err)
	}

	slug := req.SEO.Slug
	if slug == "" {
		slug = req.Page.Slug
	}
	name := textutil.SanitizeFileName(slug)
	if name == "" {
		name = textutil.SanitizeFileName(req.ContentID)
	}

	var buf bytes.Buffer
	view := pageView{Request: req, Body: template.HTML(composer.Sanitize(req.Page.BodyHTML))}
	if err := pageTemplate.Execute(&buf, view); err != nil {
		return Response{}, services.Wrap(services.ErrValidation, stageName, "render page", "", err)
	}
	pagePath := filepath.Join(d.dir, name+".html")
	if err := fileutil.WriteFileAtomic(pagePath, buf.Bytes(), 0o644); err != nil {
		return Response{Status: StatusFailed, Message: err.Error(), Target: pagePath}, nil
	}

	meta, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return Response{}, services.Wrap(services.ErrValidation, stageName, "encode sidecar", "", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(d.dir, name+".json"), meta, 0o644); err != nil {
		return Response{Status: StatusFailed, Message: err.Error(), Target: pagePath}, nil
	}

	return Response{
		Status:    StatusDeployed,
		URL:       "file://" + pagePath,
		BuildTime: formatBuildTime(d.now().Sub(started)),
		Message:   "sha256 " + fileutil.ChecksumBytes(buf.Bytes()),
		Target:    pagePath,
	}, nil
}
