package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pressline/internal/config"
	"pressline/internal/content"
	"pressline/internal/logging"
	"pressline/internal/notifications"
	"pressline/internal/stagelog"
)

// Observer receives pipeline measurements. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveStage(stage, outcome string, d time.Duration)
	ObserveTransition(from, to string)
	SetStatusCounts(counts map[string]int)
}

type noopObserver struct{}

func (noopObserver) ObserveStage(string, string, time.Duration) {}
func (noopObserver) ObserveTransition(string, string) {}
func (noopObserver) SetStatusCounts(map[string]int) {}

// Manager drives content items through the registered stages.
type Manager struct {
	cfg      *config.Config
	items    *content.Store
	log      *stagelog.Log
	logger   *slog.Logger
	notifier notifications.Service
	observer Observer
	itemLogs *ItemLogger
	now      func() time.Time

	stages        []pipelineStage
	stageByName   map[stagelog.Stage]pipelineStage
	stageByStatus map[content.Status]pipelineStage

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastErr   error
	lastItem  *content.Item
	lastSweep time.Time
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithNotifier overrides the notification service built from the config.
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithObserver attaches a metrics observer.
func WithObserver(observer Observer) ManagerOption {
	return func(m *Manager) {
		if observer != nil {
			m.observer = observer
		}
	}
}

// WithClock overrides the time source used for sweeps and durations.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithItemLogs enables or disables the per-item log files.
func WithItemLogs(enabled bool) ManagerOption {
	return func(m *Manager) {
		if !enabled {
			m.itemLogs = nil
		}
	}
}

// NewManager constructs a workflow manager. Stages are registered separately
// through ConfigureStages.
func NewManager(cfg *config.Config, items *content.Store, log *stagelog.Log, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:           cfg,
		items:         items,
		log:           log,
		logger:        logging.NewComponentLogger(logger, "workflow"),
		notifier:      notifications.NewService(cfg),
		observer:      noopObserver{},
		itemLogs:      NewItemLogger(cfg),
		now:           time.Now,
		stageByName:   map[stagelog.Stage]pipelineStage{},
		stageByStatus: map[content.Status]pipelineStage{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
