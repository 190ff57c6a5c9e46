package workflow

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"pressline/internal/config"
	"pressline/internal/logging"
	"pressline/internal/textutil"
)

// ItemLogger manages the dedicated log file kept for each content item.
type ItemLogger struct {
	baseDir string
	cfg     *config.Config
}

// NewItemLogger returns nil when no log directory is configured.
func NewItemLogger(cfg *config.Config) *ItemLogger {
	if cfg == nil || strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return nil
	}
	return &ItemLogger{
		baseDir: filepath.Join(cfg.Paths.LogDir, "items"),
		cfg:     cfg,
	}
}

// Path returns the log file for contentID.
func (b *ItemLogger) Path(contentID string) (string, error) {
	if b == nil || strings.TrimSpace(b.baseDir) == "" {
		return "", fmt.Errorf("item log directory not configured")
	}
	name := textutil.SanitizeFileName(contentID)
	if name == "" {
		return "", fmt.Errorf("content id %q has no usable file name", contentID)
	}
	return filepath.Join(b.baseDir, name+".log"), nil
}

// Open builds a JSON file logger for contentID. Callers close it when the
// attempt ends.
func (b *ItemLogger) Open(contentID string) (*logging.Logger, error) {
	path, err := b.Path(contentID)
	if err != nil {
		return nil, err
	}
	opts := logging.Options{
		Level:    "info",
		Format:   "json",
		Console:  io.Discard,
		FilePath: path,
	}
	if b.cfg != nil {
		if level := strings.TrimSpace(b.cfg.Logging.Level); level != "" {
			opts.Level = level
		}
		opts.MaxSizeMB = b.cfg.Logging.MaxSizeMB
		opts.MaxBackups = b.cfg.Logging.MaxBackups
		opts.MaxAgeDays = b.cfg.Logging.MaxAgeDays
		opts.Compress = b.cfg.Logging.Compress
	}
	return logging.New(opts)
}
