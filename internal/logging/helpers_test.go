package logging_test

import (
	"log/slog"
	"time"
)

func newRecord(msg string) slog.Record {
	return slog.NewRecord(time.Now(), slog.LevelInfo, msg, 0)
}
