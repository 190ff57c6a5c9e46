package publishing

import (
	"context"
	"strings"
	"time"

	"pressline/internal/composer"
	"pressline/internal/seo"
)

// Deployment outcomes reported by the deploy collaborator.
const (
	StatusDeployed = "deployed"
	StatusFailed   = "failed"
)

// Request is the finalized page payload handed to a deployer.
type Request struct {
	ContentID string        `json:"content_id"`
	Page      composer.Page `json:"page"`
	SEO       seo.Elements  `json:"seo"`
}

// Response mirrors the deploy collaborator contract. Only Status is
// interpreted; URL and BuildTime are recorded for operators.
type Response struct {
	Status    string `json:"status"`
	URL       string `json:"url,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	Message   string `json:"message,omitempty"`
	Target    string `json:"target,omitempty"`
}

// Deployed reports whether the collaborator accepted the page.
func (r Response) Deployed() bool {
	return strings.EqualFold(strings.TrimSpace(r.Status), StatusDeployed)
}

// Deployer publishes finalized pages.
type Deployer interface {
	Name() string
	Deploy(ctx context.Context, req Request) (Response, error)
}

func formatBuildTime(d time.Duration) string {
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d.Round(time.Millisecond).String()
}
