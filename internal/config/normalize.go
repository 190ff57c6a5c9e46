package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStorage()
	c.normalizeLLM()
	c.normalizeAssets()
	if err := c.normalizeIntake(); err != nil {
		return err
	}
	c.normalizeQuality()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.PublishDir) == "" {
		c.Paths.PublishDir = defaultPublishDir
	}
	if c.Paths.PublishDir, err = expandPath(c.Paths.PublishDir); err != nil {
		return fmt.Errorf("paths.publish_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("PRESSLINE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeStorage() {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = defaultStorageDriver
	}
	if c.Storage.DSN == "" {
		if value, ok := os.LookupEnv("PRESSLINE_DATABASE_DSN"); ok {
			c.Storage.DSN = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLLM() {
	if c.LLM.APIKey == "" {
		for _, key := range []string{"PRESSLINE_LLM_API_KEY", "OPENROUTER_API_KEY"} {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.LLM.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeAssets() {
	if c.Assets.RedisAddr == "" {
		if value, ok := os.LookupEnv("PRESSLINE_REDIS_ADDR"); ok {
			c.Assets.RedisAddr = strings.TrimSpace(value)
		}
	}
	c.Assets.UserAgent = strings.TrimSpace(c.Assets.UserAgent)
	if c.Assets.UserAgent == "" {
		c.Assets.UserAgent = defaultAssetUserAgent
	}
}

func (c *Config) normalizeIntake() error {
	if strings.TrimSpace(c.Intake.TaxonomyPath) == "" {
		c.Intake.TaxonomyPath = ""
		return nil
	}
	expanded, err := expandPath(c.Intake.TaxonomyPath)
	if err != nil {
		return fmt.Errorf("intake.taxonomy_path: %w", err)
	}
	c.Intake.TaxonomyPath = expanded
	return nil
}

func (c *Config) normalizeQuality() {
	c.Quality.TimeoutAction = strings.ToLower(strings.TrimSpace(c.Quality.TimeoutAction))
	if c.Quality.TimeoutAction == "" {
		c.Quality.TimeoutAction = defaultQualityTimeoutAction
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
