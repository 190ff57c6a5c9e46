package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	PublishDir string `toml:"publish_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Storage selects the database backing content items and the stage log.
type Storage struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// LLM contains the classifier connection settings.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Assets contains asset validator settings.
type Assets struct {
	ProbeTimeoutSeconds   int    `toml:"probe_timeout_seconds"`
	OverallTimeoutSeconds int    `toml:"overall_timeout_seconds"`
	MaxConcurrency        int    `toml:"max_concurrency"`
	UserAgent             string `toml:"user_agent"`
	CacheTTLSeconds       int    `toml:"cache_ttl_seconds"`
	RedisAddr             string `toml:"redis_addr"`
	RedisPassword         string `toml:"redis_password"`
	RedisDB               int    `toml:"redis_db"`
}

// Quality contains the quality gate policy.
type Quality struct {
	ApproveThreshold     int    `toml:"approve_threshold"`
	EscalationHours      int    `toml:"escalation_hours"`
	TimeoutAction        string `toml:"timeout_action"`
	MinContentLength     int    `toml:"min_content_length"`
	MinVisualAssets      int    `toml:"min_visual_assets"`
	MinCodeExamples      int    `toml:"min_code_examples"`
	MinProcessingSeconds int    `toml:"min_processing_seconds"`
}

// Intake contains single and batch intake settings.
type Intake struct {
	MaxBatchOperations int    `toml:"max_batch_operations"`
	TaxonomyPath       string `toml:"taxonomy_path"`
	RunPipeline        bool   `toml:"run_pipeline"`
}

// Publishing contains deploy collaborator settings.
type Publishing struct {
	WebhookURL     string `toml:"webhook_url"`
	WebhookToken   string `toml:"webhook_token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow contains orchestrator timing.
type Workflow struct {
	StageTimeoutSeconds  int  `toml:"stage_timeout_seconds"`
	SweepIntervalSeconds int  `toml:"sweep_interval_seconds"`
	StaleAttemptSeconds  int  `toml:"stale_attempt_seconds"`
	ErrorRetryInterval   int  `toml:"error_retry_interval"`
	AutoAdvance          bool `toml:"auto_advance"`
	AutoRelease          bool `toml:"auto_release"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	ManualReview   bool   `toml:"manual_review"`
	Published      bool   `toml:"published"`
	Failures       bool   `toml:"failures"`
}

// Metrics toggles the prometheus endpoint.
type Metrics struct {
	Enabled bool `toml:"enabled"`
}

// Config encapsulates all configuration values for pressline.
//
// Configuration sections by subsystem:
//   - Paths: data, log and publish directories plus the API bind address
//   - Storage: sqlite (default) or postgres
//   - LLM: classifier connection settings
//   - Assets: probe timeouts, concurrency and the optional redis cache
//   - Quality: gate threshold and escalation policy
//   - Intake: batch limits and taxonomy override
//   - Publishing: deploy webhook
//   - Workflow: stage timeouts and sweeper cadence
//   - Logging: log format, level, and rotation
//   - Notifications: ntfy push notification settings
//   - Metrics: prometheus endpoint
type Config struct {
	Paths         Paths         `toml:"paths"`
	Storage       Storage       `toml:"storage"`
	LLM           LLM           `toml:"llm"`
	Assets        Assets        `toml:"assets"`
	Quality       Quality       `toml:"quality"`
	Intake        Intake        `toml:"intake"`
	Publishing    Publishing    `toml:"publishing"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
	Metrics       Metrics       `toml:"metrics"`
}

// EnvConfigPath names the environment variable consulted when no explicit
// config path is given.
const EnvConfigPath = "PRESSLINE_CONFIG"

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load resolves the config file, decodes it over Default(), then normalizes and
// validates the result. It returns the resolved path and whether the file
// existed; a missing file is not an error. Unknown keys are rejected.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	err = toml.NewDecoder(file).DisallowUnknownFields().Decode(cfg)
	var strict *toml.StrictMissingError
	if errors.As(err, &strict) {
		keys := make([]string, 0, len(strict.Errors))
		for i := range strict.Errors {
			keys = append(keys, strings.Join(strict.Errors[i].Key(), "."))
		}
		return fmt.Errorf("parse config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// resolveConfigPath picks the config file: the explicit path, then
// $PRESSLINE_CONFIG, then the user config, then ./pressline.toml. An explicit
// or env path is returned even when it does not exist yet.
func resolveConfigPath(path string) (string, bool, error) {
	if explicit := firstNonEmpty(path, os.Getenv(EnvConfigPath)); explicit != "" {
		expanded, err := expandPath(explicit)
		if err != nil {
			return "", false, err
		}
		exists, err := fileExists(expanded)
		return expanded, exists, err
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, projectPath} {
		if ok, err := fileExists(candidate); err != nil {
			return "", false, err
		} else if ok {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	case info.IsDir():
		return false, fmt.Errorf("config path %s is a directory", path)
	default:
		return true, nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.PublishDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the sqlite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "pressline.db")
}

// StageTimeout bounds a single stage execution.
func (c *Config) StageTimeout() time.Duration {
	return time.Duration(c.Workflow.StageTimeoutSeconds) * time.Second
}

// SweepInterval returns the sweeper cadence.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Workflow.SweepIntervalSeconds) * time.Second
}

// StaleAttemptAge returns how long an open stage attempt may stay open before it is reclaimed.
func (c *Config) StaleAttemptAge() time.Duration {
	return time.Duration(c.Workflow.StaleAttemptSeconds) * time.Second
}

// EscalationWindow returns the age after which a low-scoring item is escalated.
func (c *Config) EscalationWindow() time.Duration {
	return time.Duration(c.Quality.EscalationHours) * time.Hour
}

// expandPath resolves "~" against the home directory and returns an absolute,
// cleaned path. Empty input stays empty.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, strings.TrimPrefix(value, "~"))
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
