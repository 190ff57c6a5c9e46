package stagelog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"pressline/internal/services"
	"pressline/internal/store"
)

// KindQualityBelowThreshold marks quality gate holds. It is a gate decision, not an error.
const KindQualityBelowThreshold = "quality_below_threshold"

// Record is one append-only stage log entry.
type Record struct {
	ID           int64           `json:"id"`
	ContentID    string          `json:"content_id"`
	Stage        Stage           `json:"stage"`
	AttemptID    string          `json:"attempt_id"`
	Status       Status          `json:"status"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  time.Time       `json:"completed_at,omitzero"`
	ErrorMessage string          `json:"error_message,omitempty"`
	ErrorKind    string          `json:"error_kind,omitempty"`
	Detail       json.RawMessage `json:"detail,omitempty"`
}

// Attempt identifies an open stage attempt returned by Begin.
type Attempt struct {
	ID        string
	ContentID string
	Stage     Stage
	StartedAt time.Time
}

// Failure describes why an attempt failed.
type Failure struct {
	Kind    string
	Message string
}

// FailureFromError classifies err through the services taxonomy.
func FailureFromError(err error) Failure {
	if err == nil {
		return Failure{Kind: string(services.KindTransient), Message: "unknown failure"}
	}
	details := services.Details(err)
	return Failure{Kind: string(details.Kind), Message: err.Error()}
}

// Log appends and reads stage records. It exposes no update or delete operations.
type Log struct {
	db    *store.DB
	now   func() time.Time
	newID func() string
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// New constructs a Log over db.
func New(db *store.DB, opts ...Option) *Log {
	l := &Log{db: db, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

const recordColumns = "id, content_id, stage, attempt_id, status, started_at, completed_at, error_message, error_kind, detail_json"

var insertColumns = []string{"content_id", "stage", "attempt_id", "status", "started_at", "completed_at", "error_message", "error_kind", "detail_json"}

// Begin appends a processing record for (contentID, stage). It fails with
// ErrAttemptInProgress while another attempt for the pair is still open.
func (l *Log) Begin(ctx context.Context, contentID string, stage Stage) (Attempt, error) {
	if strings.TrimSpace(contentID) == "" {
		return Attempt{}, services.Wrap(services.ErrValidation, string(stage), "begin attempt", "content id is required", nil)
	}
	attempt := Attempt{ID: l.newID(), ContentID: contentID, Stage: stage, StartedAt: l.now().UTC()}

	// Parameters are cast so postgres can type them inside INSERT ... SELECT.
	values := sq.Select().
		Column(sq.Expr("CAST(? AS TEXT)", contentID)).
		Column(sq.Expr("CAST(? AS TEXT)", string(stage))).
		Column(sq.Expr("CAST(? AS TEXT)", attempt.ID)).
		Column(sq.Expr("CAST(? AS TEXT)", string(StatusProcessing))).
		Column(sq.Expr("CAST(? AS TEXT)", store.FormatTime(attempt.StartedAt))).
		Column("NULL").
		Column("NULL").
		Column("NULL").
		Column("NULL").
		Where(sq.Expr("NOT EXISTS (?)", openAttemptQuery(contentID, stage)))
	insert := l.db.Builder().Insert("stage_records").Columns(insertColumns...).Select(values)

	var affected int64
	err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		if l.db.Dialect() == store.DialectPostgres {
			if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", contentID+"/"+string(stage)); err != nil {
				return err
			}
		}
		res, err := store.Exec(ctx, tx, insert)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return Attempt{}, storageError(stage, "begin attempt", err)
	}
	if affected == 0 {
		return Attempt{}, services.Wrap(services.ErrAttemptInProgress, string(stage), "begin attempt",
			fmt.Sprintf("content %s already has an open %s attempt", contentID, stage), nil)
	}
	return attempt, nil
}

// Complete closes attempt with a completed record carrying detail as JSON.
func (l *Log) Complete(ctx context.Context, attempt Attempt, detail any) (Record, error) {
	raw, err := encodeDetail(detail)
	if err != nil {
		return Record{}, services.Wrap(services.ErrValidation, string(attempt.Stage), "complete attempt", "encode detail", err)
	}
	return l.Append(ctx, Record{
		ContentID:   attempt.ContentID,
		Stage:       attempt.Stage,
		AttemptID:   attempt.ID,
		Status:      StatusCompleted,
		StartedAt:   attempt.StartedAt,
		CompletedAt: l.now().UTC(),
		Detail:      raw,
	})
}

// Fail closes attempt with a failed record.
func (l *Log) Fail(ctx context.Context, attempt Attempt, failure Failure, detail any) (Record, error) {
	raw, err := encodeDetail(detail)
	if err != nil {
		return Record{}, services.Wrap(services.ErrValidation, string(attempt.Stage), "fail attempt", "encode detail", err)
	}
	return l.Append(ctx, Record{
		ContentID:    attempt.ContentID,
		Stage:        attempt.Stage,
		AttemptID:    attempt.ID,
		Status:       StatusFailed,
		StartedAt:    attempt.StartedAt,
		CompletedAt:  l.now().UTC(),
		ErrorMessage: failure.Message,
		ErrorKind:    failure.Kind,
		Detail:       raw,
	})
}

// Append writes a terminal record. Processing records must go through Begin so
// the open-attempt guard applies. Store failures are returned wrapped with
// ErrStorageUnavailable and must not be swallowed by callers.
func (l *Log) Append(ctx context.Context, rec Record) (Record, error) {
	if !rec.Status.Terminal() {
		return Record{}, services.Wrap(services.ErrValidation, string(rec.Stage), "append", "processing records are written by Begin", nil)
	}
	if rec.ContentID == "" || rec.AttemptID == "" || rec.Stage == "" {
		return Record{}, services.Wrap(services.ErrValidation, string(rec.Stage), "append", "content id, stage, and attempt id are required", nil)
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = l.now().UTC()
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = l.now().UTC()
	}
	var detail any
	if len(rec.Detail) > 0 {
		detail = string(rec.Detail)
	}
	insert := l.db.Builder().Insert("stage_records").Columns(insertColumns...).
		Values(
			rec.ContentID,
			string(rec.Stage),
			rec.AttemptID,
			string(rec.Status),
			store.FormatTime(rec.StartedAt),
			store.NullableTime(rec.CompletedAt),
			store.NullableString(rec.ErrorMessage),
			store.NullableString(rec.ErrorKind),
			detail,
		).
		Suffix("RETURNING id")
	if err := l.db.QueryRow(ctx, insert, &rec.ID); err != nil {
		return Record{}, storageError(rec.Stage, "append", err)
	}
	return rec, nil
}

// History returns every record for contentID ordered by started_at then append order.
func (l *Log) History(ctx context.Context, contentID string) ([]Record, error) {
	query := l.db.Builder().Select(recordColumns).From("stage_records").
		Where(sq.Eq{"content_id": contentID}).
		OrderBy("started_at", "id")
	return l.queryRecords(ctx, "", "history", query)
}

// LastSuccess returns the most recent completed record for the pair.
func (l *Log) LastSuccess(ctx context.Context, contentID string, stage Stage) (Record, bool, error) {
	query := l.db.Builder().Select(recordColumns).From("stage_records").
		Where(sq.Eq{"content_id": contentID, "stage": string(stage), "status": string(StatusCompleted)}).
		OrderBy("started_at DESC", "id DESC").
		Limit(1)
	records, err := l.queryRecords(ctx, stage, "last success", query)
	if err != nil || len(records) == 0 {
		return Record{}, false, err
	}
	return records[0], true, nil
}

// LastRecord returns the most recent terminal record for the pair.
func (l *Log) LastRecord(ctx context.Context, contentID string, stage Stage) (Record, bool, error) {
	query := l.db.Builder().Select(recordColumns).From("stage_records").
		Where(sq.Eq{"content_id": contentID, "stage": string(stage)}).
		Where(sq.NotEq{"status": string(StatusProcessing)}).
		OrderBy("id DESC").
		Limit(1)
	records, err := l.queryRecords(ctx, stage, "last record", query)
	if err != nil || len(records) == 0 {
		return Record{}, false, err
	}
	return records[0], true, nil
}

// OpenAttempt returns the open attempt for the pair, if any.
func (l *Log) OpenAttempt(ctx context.Context, contentID string, stage Stage) (Attempt, bool, error) {
	query := l.db.Builder().Select(recordColumns).From("stage_records p").
		Where(sq.Eq{"p.content_id": contentID, "p.stage": string(stage), "p.status": string(StatusProcessing)}).
		Where(sq.Expr("NOT EXISTS (?)", closedBy("p"))).
		Limit(1)
	records, err := l.queryRecords(ctx, stage, "open attempt", query)
	if err != nil || len(records) == 0 {
		return Attempt{}, false, err
	}
	return records[0].attempt(), true, nil
}

// OpenAttempts lists attempts still open that started before cutoff.
func (l *Log) OpenAttempts(ctx context.Context, cutoff time.Time) ([]Attempt, error) {
	query := l.db.Builder().Select(recordColumns).From("stage_records p").
		Where(sq.Eq{"p.status": string(StatusProcessing)}).
		Where(sq.Lt{"p.started_at": store.FormatTime(cutoff)}).
		Where(sq.Expr("NOT EXISTS (?)", closedBy("p"))).
		OrderBy("p.started_at", "p.id")
	records, err := l.queryRecords(ctx, "", "open attempts", query)
	if err != nil {
		return nil, err
	}
	out := make([]Attempt, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.attempt())
	}
	return out, nil
}

func (l *Log) queryRecords(ctx context.Context, stage Stage, op string, query sq.SelectBuilder) ([]Record, error) {
	rows, err := l.db.Query(ctx, query)
	if err != nil {
		return nil, storageError(stage, op, err)
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, storageError(stage, op, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(stage, op, err)
	}
	return records, nil
}

func (r Record) attempt() Attempt {
	return Attempt{ID: r.AttemptID, ContentID: r.ContentID, Stage: r.Stage, StartedAt: r.StartedAt}
}

// openAttemptQuery selects processing records for the pair that no terminal record closes.
func openAttemptQuery(contentID string, stage Stage) sq.SelectBuilder {
	return sq.Select("1").From("stage_records p").
		Where(sq.Eq{"p.content_id": contentID, "p.stage": string(stage), "p.status": string(StatusProcessing)}).
		Where(sq.Expr("NOT EXISTS (?)", closedBy("p")))
}

func closedBy(alias string) sq.SelectBuilder {
	return sq.Select("1").From("stage_records t").
		Where(alias + ".attempt_id = t.attempt_id").
		Where(sq.NotEq{"t.status": string(StatusProcessing)})
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		rec        Record
		stage      string
		status     string
		startedRaw string
		completed  sql.NullString
		errMessage sql.NullString
		errKind    sql.NullString
		detailRaw  sql.NullString
	)
	if err := scanner.Scan(&rec.ID, &rec.ContentID, &stage, &rec.AttemptID, &status, &startedRaw, &completed, &errMessage, &errKind, &detailRaw); err != nil {
		return Record{}, err
	}
	rec.Stage = Stage(stage)
	rec.Status = Status(status)
	rec.StartedAt = store.ParseTime(startedRaw)
	rec.CompletedAt = store.ParseNullTime(completed)
	rec.ErrorMessage = errMessage.String
	rec.ErrorKind = errKind.String
	if detailRaw.Valid && detailRaw.String != "" {
		rec.Detail = json.RawMessage(detailRaw.String)
	}
	return rec, nil
}

func encodeDetail(detail any) (json.RawMessage, error) {
	switch v := detail.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	}
	return json.Marshal(detail)
}

func storageError(stage Stage, op string, err error) error {
	if errors.Is(err, services.ErrStorageUnavailable) {
		return err
	}
	return services.Wrap(services.ErrStorageUnavailable, "stage_log", op, string(stage), err)
}
