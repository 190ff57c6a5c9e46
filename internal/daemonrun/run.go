package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"pressline/internal/analysis"
	"pressline/internal/assets"
	"pressline/internal/composer"
	"pressline/internal/config"
	"pressline/internal/content"
	"pressline/internal/daemon"
	"pressline/internal/design"
	"pressline/internal/intake"
	"pressline/internal/logging"
	"pressline/internal/metrics"
	"pressline/internal/publishing"
	"pressline/internal/quality"
	"pressline/internal/seo"
	"pressline/internal/services/llm"
	"pressline/internal/stagelog"
	"pressline/internal/store"
	"pressline/internal/taxonomy"
	"pressline/internal/workflow"
)

// PIDFileName is written next to the lock file while the daemon runs.
const PIDFileName = "presslined.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the pressline daemon and blocks until a termination signal or
// ctx cancellation.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logCfg := *cfg
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		logCfg.Logging.Level = level
	}
	if opts.Development {
		logCfg.Logging.Level = "debug"
	}
	logger, err := logging.NewFromConfig(&logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logConfigSnapshot(logger.Logger, cfg)
	pidPath := filepath.Join(cfg.Paths.LogDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	db, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return err
	}

	d, err := Build(cfg, db, logger.Logger)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger.Logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the lock file, api_bind, and database access"),
			logging.String(logging.FieldImpact, "no items will be processed"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("pressline daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

// Build wires every pipeline stage, the workflow manager, and the intake
// processor around db and returns an unstarted daemon.
func Build(cfg *config.Config, db *store.DB, logger *slog.Logger) (*daemon.Daemon, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("config and store are required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	tax, err := taxonomy.Load(cfg.Intake.TaxonomyPath)
	if err != nil {
		return nil, err
	}
	normalizer := taxonomy.NewNormalizer(tax, logger, taxonomy.WithObserver(func(res taxonomy.Resolution) {
		m.ObserveCategory(res.Canonical, string(res.Match))
	}))

	items := content.NewStore(db)
	history := stagelog.New(db)
	manager := workflow.NewManager(cfg, items, history, logger, workflow.WithObserver(m))
	manager.ConfigureStages(buildStages(cfg, tax, normalizer, m, logger))

	processor := intake.NewProcessor(items, normalizer, cfg.Intake, logger,
		intake.WithRunner(manager),
		intake.WithObserver(func(res intake.OperationResult) {
			m.ObserveBatchOperation(res.Table, res.Success)
		}),
	)

	return daemon.New(cfg, daemon.Dependencies{
		DB:       db,
		Items:    items,
		History:  history,
		Workflow: manager,
		Intake:   processor,
		Metrics:  m,
	}, logger)
}

func buildStages(cfg *config.Config, tax *taxonomy.Taxonomy, normalizer *taxonomy.Normalizer, m *metrics.Metrics, logger *slog.Logger) workflow.StageSet {
	classifier := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})

	validatorOpts := []assets.Option{
		assets.WithObserver(func(res assets.Result, d time.Duration) {
			m.ObserveAssetProbe(string(res.HealthStatus), res.Cached, d)
		}),
	}
	if cache := assets.NewRedisCache(cfg.Assets); cache != nil {
		validatorOpts = append(validatorOpts, assets.WithCache(cache))
	}
	validator := assets.NewValidator(cfg.Assets, logger, validatorOpts...)

	gate := quality.NewGate(quality.PolicyFromConfig(cfg.Quality))
	return workflow.StageSet{
		Analysis:        analysis.New(classifier, normalizer, logger),
		Design:          design.New(tax, logger),
		AssetValidation: assets.NewStage(validator, logger),
		PageComposition: composer.NewStage(logger),
		SEO:             seo.NewStage(logger),
		Quality: quality.NewStage(gate, logger, quality.WithObserver(func(d quality.Decision) {
			m.ObserveQualityScore(d.Score)
		})),
		Deployment: publishing.NewStage(publishing.NewDeployer(cfg), logger),
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("storage_driver", cfg.Storage.Driver),
		logging.Bool("llm_key_present", strings.TrimSpace(cfg.LLM.APIKey) != ""),
		logging.String("llm_model", cfg.LLM.Model),
		logging.Bool("asset_cache_enabled", strings.TrimSpace(cfg.Assets.RedisAddr) != ""),
		logging.Bool("webhook_configured", strings.TrimSpace(cfg.Publishing.WebhookURL) != ""),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Bool("api_auth", strings.TrimSpace(cfg.Paths.APIToken) != ""),
		logging.Bool("auto_advance", cfg.Workflow.AutoAdvance),
		logging.Bool("auto_release", cfg.Workflow.AutoRelease),
	)
}
