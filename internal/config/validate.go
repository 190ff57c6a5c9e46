package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateAssets(); err != nil {
		return err
	}
	if err := c.validateQuality(); err != nil {
		return err
	}
	if err := c.validateIntake(); err != nil {
		return err
	}
	if err := c.validatePublishing(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Driver {
	case "sqlite":
		return nil
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return errors.New("storage.dsn is required when storage.driver is postgres (or set PRESSLINE_DATABASE_DSN)")
		}
		return nil
	default:
		return fmt.Errorf("storage.driver: unsupported value %q (expected sqlite or postgres)", c.Storage.Driver)
	}
}

func (c *Config) validateAssets() error {
	if c.Assets.ProbeTimeoutSeconds <= 0 {
		return errors.New("assets.probe_timeout_seconds must be positive")
	}
	if c.Assets.OverallTimeoutSeconds < c.Assets.ProbeTimeoutSeconds {
		return errors.New("assets.overall_timeout_seconds must be at least assets.probe_timeout_seconds")
	}
	if c.Assets.MaxConcurrency <= 0 {
		return errors.New("assets.max_concurrency must be positive")
	}
	if c.Assets.CacheTTLSeconds < 0 {
		return errors.New("assets.cache_ttl_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validateQuality() error {
	if c.Quality.ApproveThreshold < 0 || c.Quality.ApproveThreshold > 100 {
		return errors.New("quality.approve_threshold must be between 0 and 100")
	}
	if c.Quality.EscalationHours <= 0 {
		return errors.New("quality.escalation_hours must be positive")
	}
	switch c.Quality.TimeoutAction {
	case "approve", "review":
	default:
		return fmt.Errorf("quality.timeout_action: unsupported value %q (expected approve or review)", c.Quality.TimeoutAction)
	}
	if c.Quality.MinContentLength < 0 || c.Quality.MinVisualAssets < 0 || c.Quality.MinCodeExamples < 0 || c.Quality.MinProcessingSeconds < 0 {
		return errors.New("quality minimums must not be negative")
	}
	return nil
}

func (c *Config) validateIntake() error {
	if c.Intake.MaxBatchOperations < 1 || c.Intake.MaxBatchOperations > MaxBatchOperationsLimit {
		return fmt.Errorf("intake.max_batch_operations must be between 1 and %d", MaxBatchOperationsLimit)
	}
	return nil
}

func (c *Config) validatePublishing() error {
	if c.Publishing.TimeoutSeconds <= 0 {
		return errors.New("publishing.timeout_seconds must be positive")
	}
	if raw := strings.TrimSpace(c.Publishing.WebhookURL); raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("publishing.webhook_url: invalid url %q", raw)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.StageTimeoutSeconds <= 0 {
		return errors.New("workflow.stage_timeout_seconds must be positive")
	}
	if c.Workflow.SweepIntervalSeconds <= 0 {
		return errors.New("workflow.sweep_interval_seconds must be positive")
	}
	if c.Workflow.StaleAttemptSeconds < c.Workflow.StageTimeoutSeconds {
		return errors.New("workflow.stale_attempt_seconds must be at least workflow.stage_timeout_seconds")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
