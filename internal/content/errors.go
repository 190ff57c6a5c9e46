package content

import (
	"fmt"

	"pressline/internal/services"
)

// StaleStatusError reports a rejected compare-and-set status write.
type StaleStatusError struct {
	ContentID string
	Expected  Status
	Actual    Status
	Next      Status
}

func (e *StaleStatusError) Error() string {
	return fmt.Sprintf("stale status conflict: %s expected %s (to %s) but found %s", e.ContentID, e.Expected, e.Next, e.Actual)
}

func (e *StaleStatusError) Unwrap() error { return services.ErrStaleStatus }

// ErrDuplicate is returned by Create when the content id already exists.
var ErrDuplicate = services.Wrap(services.ErrValidation, "", "create", "content id already exists", nil)
