package store

import (
	"database/sql"
	"strings"
	"time"
)

// TimeLayout is fixed width so lexical order of stored values equals
// chronological order on both dialects.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t in UTC using TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// NullableTime returns nil for the zero time so the column stays NULL.
func NullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return FormatTime(t)
}

// ParseTime parses a stored timestamp; empty or invalid input yields the zero time.
func ParseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{TimeLayout, time.RFC3339Nano} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

// ParseNullTime parses a nullable timestamp column.
func ParseNullTime(raw sql.NullString) time.Time {
	if !raw.Valid {
		return time.Time{}
	}
	return ParseTime(raw.String)
}

// NullableString returns nil for blank strings.
func NullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
