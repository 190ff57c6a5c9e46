package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"pressline/internal/services"
	"pressline/internal/store"
)

const itemColumns = "content_id, status, raw_payload, category, confidence_score, language, analysis_json, design_json, asset_report_json, page_json, seo_elements_json, quality_metrics_json, error_logs_json, processing_start, processing_end, created_at, updated_at"

// Store persists content items. It is the only writer of the status column.
type Store struct {
	db  *store.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore wraps db.
func NewStore(db *store.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *store.DB { return s.db }

// ListFilter narrows List results.
type ListFilter struct {
	Statuses []Status
	Limit    int
	Offset   int
}

// Create inserts a new item in status received and stamps processing_start.
func (s *Store) Create(ctx context.Context, contentID string, raw json.RawMessage) (*Item, error) {
	items, err := s.CreateMany(ctx, []Draft{{ContentID: contentID, Raw: raw}})
	if err != nil {
		return nil, err
	}
	return items[0], nil
}

// Draft is one item to create.
type Draft struct {
	ContentID string
	Raw       json.RawMessage
}

// CreateMany inserts every draft in one transaction. Either all items are
// created or none are.
func (s *Store) CreateMany(ctx context.Context, drafts []Draft) ([]*Item, error) {
	clean := make([]Draft, 0, len(drafts))
	for _, d := range drafts {
		draft, err := newDraft(d.ContentID, d.Raw)
		if err != nil {
			return nil, err
		}
		clean = append(clean, draft)
	}
	now := s.now().UTC()
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, draft := range clean {
			if err := s.insertDraft(ctx, tx, draft, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			return nil, err
		}
		return nil, storageError("create", err)
	}
	items := make([]*Item, 0, len(clean))
	for _, draft := range clean {
		items = append(items, draft.item(now))
	}
	return items, nil
}

func newDraft(contentID string, raw json.RawMessage) (Draft, error) {
	contentID = strings.TrimSpace(contentID)
	if contentID == "" {
		return Draft{}, services.Wrap(services.ErrValidation, "", "create", "content_id is required", nil)
	}
	if len(raw) == 0 || !json.Valid(raw) {
		return Draft{}, services.Wrap(services.ErrValidation, "", "create", "raw_content must be valid JSON", nil)
	}
	return Draft{ContentID: contentID, Raw: raw}, nil
}

func (s *Store) insertDraft(ctx context.Context, tx *sql.Tx, draft Draft, now time.Time) error {
	ts := store.FormatTime(now)
	insert := s.db.Builder().Insert("content_items").
		Columns("content_id", "status", "raw_payload", "processing_start", "created_at", "updated_at").
		Values(draft.ContentID, string(StatusReceived), string(draft.Raw), ts, ts, ts)
	if _, err := store.Exec(ctx, tx, insert); err != nil {
		if store.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, draft.ContentID)
		}
		return storageError("create", err)
	}
	return nil
}

func (d Draft) item(now time.Time) *Item {
	return &Item{
		ContentID:       d.ContentID,
		Status:          StatusReceived,
		RawPayload:      append(json.RawMessage(nil), d.Raw...),
		ProcessingStart: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Get loads one item.
func (s *Store) Get(ctx context.Context, contentID string) (*Item, error) {
	query := s.db.Builder().Select(itemColumns).From("content_items").Where(sq.Eq{"content_id": contentID})
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, storageError("get", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, storageError("get", err)
		}
		return nil, services.Wrap(services.ErrNotFound, "", "get", fmt.Sprintf("content %s not found", contentID), nil)
	}
	item, err := scanItem(rows)
	if err != nil {
		return nil, storageError("get", err)
	}
	return item, nil
}

// List returns items ordered by creation time.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Item, error) {
	query := s.db.Builder().Select(itemColumns).From("content_items").OrderBy("created_at", "content_id")
	if len(filter.Statuses) > 0 {
		values := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			values = append(values, string(status))
		}
		query = query.Where(sq.Eq{"status": values})
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, storageError("list", err)
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, storageError("list", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list", err)
	}
	return items, nil
}

// ListByStatus is shorthand for List filtered to the given statuses.
func (s *Store) ListByStatus(ctx context.Context, statuses ...Status) ([]*Item, error) {
	return s.List(ctx, ListFilter{Statuses: statuses})
}

// Stats counts items per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	query := s.db.Builder().Select("status", "COUNT(*)").From("content_items").GroupBy("status")
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, storageError("stats", err)
	}
	defer rows.Close()
	stats := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, storageError("stats", err)
		}
		stats[Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("stats", err)
	}
	return stats, nil
}

// CompareAndSetStatus moves contentID from expected to next only if the stored
// status still equals expected. A mismatch yields *StaleStatusError. Terminal
// targets stamp processing_end once; leaving failed clears it.
func (s *Store) CompareAndSetStatus(ctx context.Context, contentID string, expected, next Status) error {
	if expected != next && !CanTransition(expected, next) {
		return services.Wrap(services.ErrValidation, "", "set status", fmt.Sprintf("illegal transition %s -> %s", expected, next), nil)
	}
	now := store.FormatTime(s.now())
	update := s.db.Builder().Update("content_items").
		Set("status", string(next)).
		Set("updated_at", now).
		Where(sq.Eq{"content_id": contentID, "status": string(expected)})
	switch {
	case next.IsTerminal():
		update = update.Set("processing_end", sq.Expr("COALESCE(processing_end, ?)", now))
	case expected == StatusFailed:
		update = update.Set("processing_end", nil)
	}
	res, err := s.db.Exec(ctx, update)
	if err != nil {
		return storageError("set status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storageError("set status", err)
	}
	if affected > 0 {
		return nil
	}
	current, err := s.Get(ctx, contentID)
	if err != nil {
		return err
	}
	return &StaleStatusError{ContentID: contentID, Expected: expected, Actual: current.Status, Next: next}
}

// WriteDerived writes the fields set in patch. Every field must be owned by owner.
func (s *Store) WriteDerived(ctx context.Context, contentID, owner string, patch Derived) error {
	fields := patch.setFields()
	if len(fields) == 0 {
		return nil
	}
	update := s.db.Builder().Update("content_items").
		Set("updated_at", store.FormatTime(s.now())).
		Where(sq.Eq{"content_id": contentID})
	for field, value := range fields {
		if field == FieldErrorLogs {
			return services.Wrap(services.ErrValidation, owner, "write derived", "error_logs is written through AppendErrorLog", nil)
		}
		if Owner(field) != owner {
			return services.Wrap(services.ErrValidation, owner, "write derived",
				fmt.Sprintf("field %s is owned by %s", field, Owner(field)), nil)
		}
		update = update.Set(columns[field], value)
	}
	res, err := s.db.Exec(ctx, update)
	if err != nil {
		return storageError("write derived", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return services.Wrap(services.ErrNotFound, owner, "write derived", fmt.Sprintf("content %s not found", contentID), nil)
	}
	return nil
}

// AppendErrorLog adds entry to the item's error_logs. Only the orchestrator calls this.
func (s *Store) AppendErrorLog(ctx context.Context, contentID string, entry ErrorLog) error {
	if entry.At.IsZero() {
		entry.At = s.now().UTC()
	}
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var raw sql.NullString
		query := s.db.Builder().Select("error_logs_json").From("content_items").Where(sq.Eq{"content_id": contentID})
		if err := store.QueryRow(ctx, tx, query, &raw); err != nil {
			return err
		}
		var logs []ErrorLog
		if raw.Valid && raw.String != "" {
			if err := json.Unmarshal([]byte(raw.String), &logs); err != nil {
				return fmt.Errorf("decode error logs: %w", err)
			}
		}
		logs = append(logs, entry)
		encoded, err := json.Marshal(logs)
		if err != nil {
			return err
		}
		update := s.db.Builder().Update("content_items").
			Set("error_logs_json", string(encoded)).
			Set("updated_at", store.FormatTime(s.now())).
			Where(sq.Eq{"content_id": contentID})
		_, err = store.Exec(ctx, tx, update)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return services.Wrap(services.ErrNotFound, "", "append error log", fmt.Sprintf("content %s not found", contentID), nil)
	}
	if err != nil {
		return storageError("append error log", err)
	}
	return nil
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		item            Item
		status          string
		raw             string
		category        sql.NullString
		confidence      sql.NullFloat64
		language        sql.NullString
		analysis        sql.NullString
		design          sql.NullString
		assetReport     sql.NullString
		page            sql.NullString
		seoElements     sql.NullString
		qualityMetrics  sql.NullString
		errorLogs       sql.NullString
		processingStart string
		processingEnd   sql.NullString
		createdAt       string
		updatedAt       string
	)
	if err := scanner.Scan(
		&item.ContentID,
		&status,
		&raw,
		&category,
		&confidence,
		&language,
		&analysis,
		&design,
		&assetReport,
		&page,
		&seoElements,
		&qualityMetrics,
		&errorLogs,
		&processingStart,
		&processingEnd,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	item.Status = Status(status)
	item.RawPayload = json.RawMessage(raw)
	item.Derived.Category = category.String
	if confidence.Valid {
		item.Derived.ConfidenceScore = Float(confidence.Float64)
	}
	item.Derived.Language = language.String
	item.Derived.Analysis = rawJSON(analysis)
	item.Derived.Design = rawJSON(design)
	item.Derived.AssetReport = rawJSON(assetReport)
	item.Derived.Page = rawJSON(page)
	item.Derived.SEOElements = rawJSON(seoElements)
	item.Derived.QualityMetrics = rawJSON(qualityMetrics)
	if errorLogs.Valid && errorLogs.String != "" {
		if err := json.Unmarshal([]byte(errorLogs.String), &item.Derived.ErrorLogs); err != nil {
			return nil, fmt.Errorf("decode error logs: %w", err)
		}
	}
	item.ProcessingStart = store.ParseTime(processingStart)
	item.ProcessingEnd = store.ParseNullTime(processingEnd)
	item.CreatedAt = store.ParseTime(createdAt)
	item.UpdatedAt = store.ParseTime(updatedAt)
	return &item, nil
}

func rawJSON(value sql.NullString) json.RawMessage {
	if !value.Valid || value.String == "" {
		return nil
	}
	return json.RawMessage(value.String)
}

func storageError(op string, err error) error {
	if errors.Is(err, services.ErrStorageUnavailable) {
		return err
	}
	return services.Wrap(services.ErrStorageUnavailable, "content", op, "", err)
}
