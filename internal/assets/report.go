package assets

import (
	"errors"
	"fmt"
	"time"

	"pressline/internal/services"
)

// Health is the probe verdict for one URL.
type Health string

const (
	Healthy Health = "healthy"
	Broken  Health = "broken"
)

// Result is one AssetCheckResult.
type Result struct {
	URL          string `json:"url"`
	HealthStatus Health `json:"health_status"`
	StatusCode   int    `json:"status_code"`
	Error        string `json:"error,omitempty"`
	Cached       bool   `json:"cached,omitempty"`
}

// Report aggregates the probe results for one item.
type Report struct {
	Total        int       `json:"total"`
	HealthyCount int       `json:"healthy_count"`
	BrokenCount  int       `json:"broken_count"`
	BrokenURLs   []string  `json:"broken_urls"`
	Results      []Result  `json:"results"`
	CheckedAt    time.Time `json:"checked_at"`
}

// Broken reports whether url was found broken.
func (r Report) Broken(url string) bool {
	for _, b := range r.BrokenURLs {
		if b == url {
			return true
		}
	}
	return false
}

// UnreachableError describes one broken asset. It is recorded, never
// propagated as a stage failure.
type UnreachableError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *UnreachableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("asset %s unreachable: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("asset %s unreachable: status %d", e.URL, e.StatusCode)
}

func (e *UnreachableError) Unwrap() []error {
	if e.Err == nil {
		return []error{services.ErrAssetUnreachable}
	}
	return []error{services.ErrAssetUnreachable, e.Err}
}

func newReport(results []Result, now time.Time) Report {
	report := Report{Total: len(results), Results: results, BrokenURLs: []string{}, CheckedAt: now.UTC()}
	for _, r := range results {
		if r.HealthStatus == Healthy {
			report.HealthyCount++
			continue
		}
		report.BrokenCount++
		report.BrokenURLs = append(report.BrokenURLs, r.URL)
	}
	return report
}

func brokenResult(url string, err error) Result {
	var unreachable *UnreachableError
	if errors.As(err, &unreachable) {
		return Result{URL: url, HealthStatus: Broken, StatusCode: unreachable.StatusCode, Error: unreachable.Error()}
	}
	return Result{URL: url, HealthStatus: Broken, Error: err.Error()}
}
