package assets

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"pressline/internal/config"
	"pressline/internal/logging"
	"pressline/internal/services"
)

// Validator probes asset URLs concurrently and classifies each one.
type Validator struct {
	client         *http.Client
	probeTimeout   time.Duration
	overallTimeout time.Duration
	limit          int
	userAgent      string
	cache          Cache
	cacheTTL       time.Duration
	logger         *slog.Logger
	now            func() time.Time
	observe        func(Result, time.Duration)
}

// Option configures a Validator.
type Option func(*Validator)

// WithHTTPClient overrides the probe HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(v *Validator) {
		if client != nil {
			v.client = client
		}
	}
}

// WithCache enables the probe result cache.
func WithCache(cache Cache) Option {
	return func(v *Validator) { v.cache = cache }
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithObserver registers a callback for every probe (used for metrics).
func WithObserver(fn func(Result, time.Duration)) Option {
	return func(v *Validator) { v.observe = fn }
}

// NewValidator constructs a validator from the [assets] configuration.
func NewValidator(cfg config.Assets, logger *slog.Logger, opts ...Option) *Validator {
	v := &Validator{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		probeTimeout:   time.Duration(cfg.ProbeTimeoutSeconds) * time.Second,
		overallTimeout: time.Duration(cfg.OverallTimeoutSeconds) * time.Second,
		limit:          cfg.MaxConcurrency,
		userAgent:      strings.TrimSpace(cfg.UserAgent),
		cacheTTL:       time.Duration(cfg.CacheTTLSeconds) * time.Second,
		logger:         logging.NewComponentLogger(logger, "asset-validator"),
		now:            time.Now,
	}
	if v.probeTimeout <= 0 {
		v.probeTimeout = 5 * time.Second
	}
	if v.limit <= 0 {
		v.limit = 8
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate probes every distinct URL. Probes run in parallel, bounded by the
// concurrency limit, each with its own timeout and all under the overall
// timeout. Network failures mark a URL broken; Validate itself only fails when
// the caller's context ends before the probes finish.
func (v *Validator) Validate(ctx context.Context, urls []string) (Report, error) {
	unique := dedupe(urls)
	results := make([]Result, len(unique))
	if len(unique) == 0 {
		return newReport(results, v.now()), nil
	}

	probeCtx := ctx
	if v.overallTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, v.overallTimeout)
		defer cancel()
	}

	var g errgroup.Group
	g.SetLimit(v.limit)
	for i, url := range unique {
		g.Go(func() error {
			results[i] = v.check(probeCtx, url)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		marker := services.ErrExternalServiceTimeout
		if errors.Is(err, context.Canceled) {
			marker = services.ErrTransient
		}
		return Report{}, services.Wrap(marker, "asset_validation", "validate", "probes interrupted", err)
	}

	report := newReport(results, v.now())
	logging.WithContext(ctx, v.logger).Debug("asset probes finished",
		logging.Int("total", report.Total),
		logging.Int("healthy", report.HealthyCount),
		logging.Int("broken", report.BrokenCount),
	)
	return report, nil
}

func (v *Validator) check(ctx context.Context, url string) Result {
	logger := logging.WithContext(ctx, v.logger)
	if v.cache != nil {
		cached, ok, err := v.cache.Get(ctx, url)
		if err != nil {
			logger.Debug("asset cache read failed", logging.String("url", url), logging.Error(err))
		} else if ok {
			cached.Cached = true
			return cached
		}
	}

	started := time.Now()
	result := v.probe(ctx, url)
	if v.observe != nil {
		v.observe(result, time.Since(started))
	}

	if v.cache != nil && v.cacheTTL > 0 && result.HealthStatus == Healthy {
		if err := v.cache.Set(ctx, result, v.cacheTTL); err != nil {
			logger.Debug("asset cache write failed", logging.String("url", url), logging.Error(err))
		}
	}
	return result
}

// probe issues a HEAD request, retrying with a ranged GET when the host
// rejects HEAD.
func (v *Validator) probe(ctx context.Context, url string) Result {
	probeCtx, cancel := context.WithTimeout(ctx, v.probeTimeout)
	defer cancel()

	status, err := v.request(probeCtx, http.MethodHead, url)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = v.request(probeCtx, http.MethodGet, url)
	}
	if err != nil {
		return brokenResult(url, &UnreachableError{URL: url, Err: err})
	}
	if status >= http.StatusBadRequest {
		return brokenResult(url, &UnreachableError{URL: url, StatusCode: status})
	}
	return Result{URL: url, HealthStatus: Healthy, StatusCode: status}
}

func (v *Validator) request(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	if v.userAgent != "" {
		req.Header.Set("User-Agent", v.userAgent)
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, nil
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
