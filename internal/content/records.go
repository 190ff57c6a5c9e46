package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"pressline/internal/services"
	"pressline/internal/store"
)

// Record is one row written by a batch intake operation into the intake
// records table (trend and keyword targets).
type Record struct {
	ID        int64           `json:"id"`
	Target    string          `json:"target"`
	Key       string          `json:"key"`
	Category  string          `json:"category,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// InsertRecords writes records for target in one transaction and returns the
// number inserted. A unique (target, key) conflict aborts the whole call and is
// reported as a validation failure naming the key.
func (s *Store) InsertRecords(ctx context.Context, target string, records []Record) (int, error) {
	target = strings.ToUpper(strings.TrimSpace(target))
	if target == "" {
		return 0, services.Wrap(services.ErrValidation, "", "insert records", "target is required", nil)
	}
	if len(records) == 0 {
		return 0, nil
	}
	now := store.FormatTime(s.now())
	var conflict string
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range records {
			payload := rec.Payload
			if len(payload) == 0 {
				payload = json.RawMessage("{}")
			}
			insert := s.db.Builder().Insert("intake_records").
				Columns("target", "record_key", "category", "payload", "created_at").
				Values(target, rec.Key, store.NullableString(rec.Category), string(payload), now)
			if _, err := store.Exec(ctx, tx, insert); err != nil {
				if store.IsUniqueViolation(err) {
					conflict = rec.Key
				}
				return err
			}
		}
		return nil
	})
	if conflict != "" {
		return 0, services.Wrap(services.ErrValidation, "", "insert records", fmt.Sprintf("%s record %q already exists", target, conflict), err)
	}
	if err != nil {
		return 0, storageError("insert records", err)
	}
	return len(records), nil
}

// Records lists intake records for target, newest first.
func (s *Store) Records(ctx context.Context, target string, limit int) ([]Record, error) {
	query := s.db.Builder().Select("id", "target", "record_key", "category", "payload", "created_at").
		From("intake_records").
		Where(sq.Eq{"target": strings.ToUpper(strings.TrimSpace(target))}).
		OrderBy("id DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, storageError("records", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var (
			rec      Record
			category sql.NullString
			payload  string
			created  string
		)
		if err := rows.Scan(&rec.ID, &rec.Target, &rec.Key, &category, &payload, &created); err != nil {
			return nil, storageError("records", err)
		}
		rec.Category = category.String
		rec.Payload = json.RawMessage(payload)
		rec.CreatedAt = store.ParseTime(created)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("records", err)
	}
	return out, nil
}
