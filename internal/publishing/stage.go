package publishing

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"pressline/internal/config"
	"pressline/internal/content"
	"pressline/internal/logging"
	"pressline/internal/services"
	"pressline/internal/stage"
	"pressline/internal/stagelog"
)

const stageName = string(stagelog.StageDeployment)

// NewDeployer picks the webhook deployer when a webhook is configured and the
// file deployer otherwise.
func NewDeployer(cfg *config.Config) Deployer {
	if cfg == nil {
		return nil
	}
	if strings.TrimSpace(cfg.Publishing.WebhookURL) != "" {
		return NewWebhookDeployer(cfg.Publishing, nil)
	}
	return NewFileDeployer(cfg.Paths.PublishDir)
}

// Stage hands the finalized page to the deployer. A deployment owns no
// derived field; the collaborator response is kept in the stage log.
type Stage struct {
	deployer Deployer
	logger   *slog.Logger
}

// NewStage constructs the deployment stage.
func NewStage(deployer Deployer, logger *slog.Logger) *Stage {
	return &Stage{deployer: deployer, logger: logging.NewComponentLogger(logger, "publishing")}
}

// Prepare requires a deployer plus the page and SEO elements.
func (s *Stage) Prepare(ctx context.Context, item *content.Item) error {
	if s.deployer == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "no deployer configured", nil)
	}
	if len(item.Derived.Page) == 0 || len(item.Derived.SEOElements) == 0 {
		return services.Wrap(services.ErrValidation, stageName, "prepare", "item has no page or seo elements", nil)
	}
	return nil
}

// Execute deploys the page. Any error, timeout or failed status fails the stage.
func (s *Stage) Execute(ctx context.Context, item *content.Item) (stage.Result, error) {
	req := Request{ContentID: item.ContentID}
	if err := content.Decode(item.Derived.Page, &req.Page); err != nil {
		return stage.Result{}, services.Wrap(services.ErrValidation, stageName, "decode page", "", err)
	}
	if err := content.Decode(item.Derived.SEOElements, &req.SEO); err != nil {
		return stage.Result{}, services.Wrap(services.ErrValidation, stageName, "decode seo elements", "", err)
	}

	logger := logging.WithContext(ctx, s.logger)
	resp, err := s.deployer.Deploy(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, services.ErrExternalServiceTimeout) {
			err = services.Wrap(services.ErrExternalServiceTimeout, stageName, "deploy", s.deployer.Name(), err)
		}
		return stage.Result{}, err
	}
	if !resp.Deployed() {
		message := strings.TrimSpace(resp.Message)
		if message == "" {
			message = "deployer reported status " + resp.Status
		}
		return stage.Result{Detail: resp}, services.Wrap(services.ErrExternalService, stageName, "deploy", message, nil)
	}

	logger.Info("page deployed",
		logging.String(logging.FieldEventType, "page_deployed"),
		logging.String("deployer", s.deployer.Name()),
		logging.String("url", resp.URL),
		logging.String("build_time", resp.BuildTime),
	)
	return stage.Result{Detail: resp}, nil
}

// HealthCheck reports whether a deployer is wired.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.deployer == nil {
		return stage.Unhealthy(stageName, "no deployer configured")
	}
	return stage.Healthy(stageName)
}

var (
	_ stage.Handler = (*Stage)(nil)
	_ Deployer      = (*WebhookDeployer)(nil)
	_ Deployer      = (*FileDeployer)(nil)
)

