package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"pressline/internal/config"
	"pressline/internal/content"
	"pressline/internal/intake"
	"pressline/internal/logging"
	"pressline/internal/metrics"
	"pressline/internal/stagelog"
	"pressline/internal/store"
	"pressline/internal/workflow"
)

// LockFileName is the single-instance lock inside the log directory.
const LockFileName = "presslined.lock"

// Dependencies are the services the daemon serves over HTTP.
type Dependencies struct {
	DB       *store.DB
	Items    *content.Store
	History  *stagelog.Log
	Workflow *workflow.Manager
	Intake   *intake.Processor
	Metrics  *metrics.Metrics
}

// Daemon coordinates the background sweeper and the HTTP API and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *store.DB
	items    *content.Store
	history  *stagelog.Log
	workflow *workflow.Manager
	intake   *intake.Processor
	metrics  *metrics.Metrics
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	StorageDriver string
	DatabasePath  string
	LockFilePath  string
	APIBind       string
	Workflow      workflow.StatusSummary
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || deps.Items == nil || deps.History == nil || deps.Workflow == nil || deps.Intake == nil {
		return nil, errors.New("daemon requires config, item store, stage log, workflow manager, and intake processor")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, LockFileName)
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		db:       deps.DB,
		items:    deps.Items,
		history:  deps.History,
		workflow: deps.Workflow,
		intake:   deps.Intake,
		metrics:  deps.Metrics,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, launches the sweeper, and opens the API listener.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another pressline daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.workflow.Stop()
		_ = d.lock.Unlock()
		cancel()
		return err
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("pressline daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api_bind", d.APIAddr()),
	)
	return nil
}

// Stop stops background processing, closes the listener, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
			logging.String(logging.FieldImpact, "next daemon start may report another instance"),
		)
	}
	d.running.Store(false)
	d.logger.Info("pressline daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// LockPath returns the lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// APIAddr returns the listener address once started, or the configured bind.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Handler exposes the API routes for in-process use.
func (d *Daemon) Handler() http.Handler {
	return d.api.server.Handler
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		StorageDriver: strings.TrimSpace(d.cfg.Storage.Driver),
		LockFilePath:  d.lockPath,
		APIBind:       d.APIAddr(),
		Workflow:      d.workflow.Status(ctx),
	}
	if status.StorageDriver == "" {
		status.StorageDriver = string(store.DialectSQLite)
	}
	if d.db != nil {
		status.StorageDriver = string(d.db.Dialect())
	}
	if status.StorageDriver == string(store.DialectSQLite) {
		status.DatabasePath = d.cfg.DatabasePath()
	}
	return status
}
