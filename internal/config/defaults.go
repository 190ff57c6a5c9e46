package config

// MaxBatchOperationsLimit is the largest accepted intake.max_batch_operations.
const MaxBatchOperationsLimit = 10

const (
	defaultConfigPath                 = "~/.config/pressline/config.toml"
	projectConfigName                 = "pressline.toml"
	defaultDataDir                    = "~/.local/share/pressline"
	defaultLogDir                     = "~/.local/share/pressline/logs"
	defaultPublishDir                 = "~/.local/share/pressline/published"
	defaultAPIBind                    = "127.0.0.1:7620"
	defaultStorageDriver              = "sqlite"
	defaultLLMBaseURL                 = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel                   = "google/gemini-3-flash-preview"
	defaultLLMReferer                 = "https://github.com/pressline/pressline"
	defaultLLMTitle                   = "Pressline Classifier"
	defaultLLMTimeoutSeconds          = 60
	defaultAssetProbeTimeoutSeconds   = 5
	defaultAssetOverallTimeoutSeconds = 20
	defaultAssetMaxConcurrency        = 8
	defaultAssetUserAgent             = "pressline-asset-validator/1.0"
	defaultAssetCacheTTLSeconds       = 900
	defaultQualityApproveThreshold    = 70
	defaultQualityEscalationHours     = 24
	defaultQualityTimeoutAction       = "approve"
	defaultQualityMinContentLength    = 1500
	defaultQualityMinVisualAssets     = 1
	defaultQualityMinCodeExamples     = 1
	defaultQualityMinProcessingSecs   = 5
	defaultMaxBatchOperations         = 10
	defaultPublishingTimeoutSeconds   = 120
	defaultStageTimeoutSeconds        = 180
	defaultSweepIntervalSeconds       = 300
	defaultStaleAttemptSeconds        = 900
	defaultErrorRetryInterval         = 10
	defaultLogFormat                  = "console"
	defaultLogLevel                   = "info"
	defaultLogMaxSizeMB               = 20
	defaultLogMaxBackups              = 5
	defaultLogMaxAgeDays              = 30
	defaultNotifyRequestTimeout       = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			PublishDir: defaultPublishDir,
			APIBind:    defaultAPIBind,
		},
		Storage: Storage{
			Driver: defaultStorageDriver,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Assets: Assets{
			ProbeTimeoutSeconds:   defaultAssetProbeTimeoutSeconds,
			OverallTimeoutSeconds: defaultAssetOverallTimeoutSeconds,
			MaxConcurrency:        defaultAssetMaxConcurrency,
			UserAgent:             defaultAssetUserAgent,
			CacheTTLSeconds:       defaultAssetCacheTTLSeconds,
		},
		Quality: Quality{
			ApproveThreshold:     defaultQualityApproveThreshold,
			EscalationHours:      defaultQualityEscalationHours,
			TimeoutAction:        defaultQualityTimeoutAction,
			MinContentLength:     defaultQualityMinContentLength,
			MinVisualAssets:      defaultQualityMinVisualAssets,
			MinCodeExamples:      defaultQualityMinCodeExamples,
			MinProcessingSeconds: defaultQualityMinProcessingSecs,
		},
		Intake: Intake{
			MaxBatchOperations: defaultMaxBatchOperations,
			RunPipeline:        true,
		},
		Publishing: Publishing{
			TimeoutSeconds: defaultPublishingTimeoutSeconds,
		},
		Workflow: Workflow{
			StageTimeoutSeconds:  defaultStageTimeoutSeconds,
			SweepIntervalSeconds: defaultSweepIntervalSeconds,
			StaleAttemptSeconds:  defaultStaleAttemptSeconds,
			ErrorRetryInterval:   defaultErrorRetryInterval,
			AutoRelease:          true,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
			Compress:   true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			ManualReview:   true,
			Published:      true,
			Failures:       true,
		},
		Metrics: Metrics{
			Enabled: true,
		},
	}
}
