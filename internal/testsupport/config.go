package testsupport

import (
	"path/filepath"
	"testing"

	"pressline/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Probe and stage timeouts are shortened so failure paths finish quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.PublishDir = filepath.Join(base, "published")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Paths.APIToken = ""
	cfgVal.Storage.Driver = "sqlite"
	cfgVal.Storage.DSN = ""
	cfgVal.LLM.APIKey = "test"
	cfgVal.Assets.ProbeTimeoutSeconds = 2
	cfgVal.Assets.OverallTimeoutSeconds = 5
	cfgVal.Assets.RedisAddr = ""
	cfgVal.Workflow.StageTimeoutSeconds = 5
	cfgVal.Workflow.StaleAttemptSeconds = 60
	cfgVal.Notifications.NtfyTopic = ""
	cfgVal.Quality.MinProcessingSeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithAPIToken requires bearer auth on the generated config.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithWebhook points the publishing section at url.
func WithWebhook(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Publishing.WebhookURL = url
	}
}

// WithLLMEndpoint points the classifier client at url.
func WithLLMEndpoint(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = url
	}
}

// WithAutoRelease toggles releasing quality-approved items automatically.
func WithAutoRelease(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.AutoRelease = enabled
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
