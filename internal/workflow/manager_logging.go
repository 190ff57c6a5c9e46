package workflow

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"pressline/internal/logging"
	"pressline/internal/services"
	"pressline/internal/stagelog"
)

// attemptLogger tees the daemon logger with the item's own log file. The
// returned close func must run once the attempt is finished.
func (m *Manager) attemptLogger(ctx context.Context, contentID string) (*slog.Logger, func()) {
	base := m.logger
	closeFn := func() {}
	if m.itemLogs != nil {
		itemLogger, err := m.itemLogs.Open(contentID)
		if err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, base), "item log unavailable", "item_log_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "stage records go to the daemon log only"),
			)
		} else {
			base = slog.New(logging.TeeHandler(base.Handler(), itemLogger.Handler()))
			closeFn = func() { _ = itemLogger.Close() }
		}
	}
	return logging.WithContext(ctx, base), closeFn
}

func withStageContext(ctx context.Context, contentID string, name stagelog.Stage) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = services.WithContentID(ctx, contentID)
	ctx = services.WithStage(ctx, string(name))
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	return ctx
}
