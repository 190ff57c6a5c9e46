package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"pressline/internal/content"
	"pressline/internal/logging"
	"pressline/internal/services"
)

// Target names the table a batch operation writes to.
type Target string

const (
	TargetContent Target = "CONTENT"
	TargetTrend   Target = "TREND"
	TargetKeyword Target = "KEYWORD"
)

var targetAliases = map[string]Target{
	"CONTENT":       TargetContent,
	"CONTENT_ITEMS": TargetContent,
	"TREND":         TargetTrend,
	"TRENDS":        TargetTrend,
	"KEYWORD":       TargetKeyword,
	"KEYWORDS":      TargetKeyword,
}

// ParseTarget resolves a table name case-insensitively.
func ParseTarget(value string) (Target, bool) {
	target, ok := targetAliases[strings.ToUpper(strings.TrimSpace(value))]
	return target, ok
}

const operationInsert = "insert"

// Operation is one entry of a batch envelope.
type Operation struct {
	Operation string          `json:"operation"`
	Table     string          `json:"table"`
	Data      json.RawMessage `json:"data"`
}

// OperationResult reports the outcome of one entry. Index matches the
// position in the request array.
type OperationResult struct {
	Index           int    `json:"index"`
	Operation       string `json:"operation,omitempty"`
	Table           string `json:"table,omitempty"`
	Success         bool   `json:"success"`
	InsertedRecords int    `json:"inserted_records"`
	Error           string `json:"error,omitempty"`
	ErrorKind       string `json:"error_kind,omitempty"`
}

// BatchResponse aggregates a batch.
type BatchResponse struct {
	Success              bool              `json:"success"`
	TotalOperations      int               `json:"total_operations"`
	SuccessfulOperations int               `json:"successful_operations"`
	FailedOperations     int               `json:"failed_operations"`
	TotalInsertedRecords int               `json:"total_inserted_records"`
	ProcessingTimeMS     int64             `json:"processing_time_ms"`
	Results              []OperationResult `json:"results"`
}

// HTTPStatus is 200 when every operation succeeded and 207 otherwise.
func (r BatchResponse) HTTPStatus() int {
	if r.FailedOperations == 0 {
		return http.StatusOK
	}
	return http.StatusMultiStatus
}

// Batch executes up to the configured number of independent insert
// operations. Only a malformed envelope returns an error; every per-operation
// failure is captured in its result and the remaining operations still run.
func (p *Processor) Batch(ctx context.Context, body []byte) (BatchResponse, error) {
	started := p.now()
	ops, err := p.decodeEnvelope(body)
	if err != nil {
		return BatchResponse{}, err
	}

	resp := BatchResponse{
		TotalOperations: len(ops),
		Results:         make([]OperationResult, len(ops)),
	}
	logger := logging.WithContext(ctx, p.logger)
	for i, raw := range ops {
		result, err := p.runOperation(ctx, i, raw)
		resp.Results[i] = result
		if result.Success {
			resp.SuccessfulOperations++
			resp.TotalInsertedRecords += result.InsertedRecords
		} else {
			resp.FailedOperations++
			logging.WarnWithContext(logger, "batch operation failed", "batch_operation_failed",
				logging.Int("index", i),
				logging.String("table", result.Table),
				logging.String(logging.FieldErrorKind, result.ErrorKind),
				logging.String(logging.FieldErrorHint, services.Details(err).Hint),
				logging.String(logging.FieldImpact, "operation skipped; remaining operations continue"),
				logging.String("error", result.Error),
			)
		}
		if p.observer != nil {
			p.observer(result)
		}
	}
	resp.Success = resp.FailedOperations == 0
	resp.ProcessingTimeMS = p.now().Sub(started).Milliseconds()

	logger.Info("batch processed",
		logging.String(logging.FieldEventType, "batch_processed"),
		logging.Int("total_operations", resp.TotalOperations),
		logging.Int("successful_operations", resp.SuccessfulOperations),
		logging.Int("failed_operations", resp.FailedOperations),
		logging.Int("total_inserted_records", resp.TotalInsertedRecords),
	)
	return resp, nil
}

func (p *Processor) decodeEnvelope(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, &EnvelopeError{Reason: "request body is empty"}
	}
	if trimmed[0] != '[' {
		return nil, &EnvelopeError{Reason: "request body must be a JSON array of operations"}
	}
	var ops []json.RawMessage
	if err := json.Unmarshal(trimmed, &ops); err != nil {
		return nil, &EnvelopeError{Reason: "request body is not valid JSON: " + err.Error()}
	}
	if len(ops) == 0 || len(ops) > p.maxOperations {
		return nil, &EnvelopeError{Reason: fmt.Sprintf("batch must contain between 1 and %d operations, got %d", p.maxOperations, len(ops))}
	}
	return ops, nil
}

func (p *Processor) runOperation(ctx context.Context, index int, raw json.RawMessage) (OperationResult, error) {
	result := OperationResult{Index: index}
	op, target, records, err := p.validate(index, raw)
	result.Operation = op.Operation
	result.Table = string(target)
	if result.Table == "" {
		result.Table = op.Table
	}
	if err != nil {
		return failed(result, err), err
	}

	var inserted int
	switch target {
	case TargetContent:
		inserted, err = p.insertContent(ctx, index, records)
	default:
		var rows []content.Record
		rows, err = p.buildRecords(ctx, index, target, records)
		if err == nil {
			inserted, err = p.items.InsertRecords(ctx, string(target), rows)
		}
	}
	result.InsertedRecords = inserted
	if err != nil {
		return failed(result, err), err
	}
	result.Success = true
	return result, nil
}

// validate checks the operation shape before anything is written.
func (p *Processor) validate(index int, raw json.RawMessage) (Operation, Target, []map[string]any, error) {
	var op Operation
	if err := json.Unmarshal(raw, &op); err != nil {
		return op, "", nil, &OperationError{Index: index, Reason: "operation must be a JSON object"}
	}
	op.Operation = strings.ToLower(strings.TrimSpace(op.Operation))
	if op.Operation != operationInsert {
		return op, "", nil, &OperationError{Index: index, Field: "operation", Reason: fmt.Sprintf("unsupported operation %q", op.Operation)}
	}
	target, ok := ParseTarget(op.Table)
	if !ok {
		return op, "", nil, &OperationError{Index: index, Field: "table", Reason: fmt.Sprintf("unknown table %q", op.Table)}
	}
	records, err := decodeData(index, op.Data)
	if err != nil {
		return op, target, nil, err
	}
	for i, rec := range records {
		for _, field := range requiredFields[target] {
			if !hasValue(rec, field) {
				return op, target, nil, &OperationError{Index: index, Field: fmt.Sprintf("data[%d].%s", i, field), Reason: "required field missing"}
			}
		}
	}
	return op, target, records, nil
}

var requiredFields = map[Target][]string{
	TargetContent: {"content_id", "raw_content"},
	TargetTrend:   {"name"},
	TargetKeyword: {"keyword"},
}

// decodeData accepts a single object or an array of objects.
func decodeData(index int, data json.RawMessage) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &OperationError{Index: index, Field: "data", Reason: "data is required"}
	}
	switch trimmed[0] {
	case '{':
		var rec map[string]any
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			return nil, &OperationError{Index: index, Field: "data", Reason: "data is not a valid object"}
		}
		return []map[string]any{rec}, nil
	case '[':
		var recs []map[string]any
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return nil, &OperationError{Index: index, Field: "data", Reason: "data array must contain only objects"}
		}
		if len(recs) == 0 {
			return nil, &OperationError{Index: index, Field: "data", Reason: "data array is empty"}
		}
		for i, rec := range recs {
			if rec == nil {
				return nil, &OperationError{Index: index, Field: fmt.Sprintf("data[%d]", i), Reason: "record must be an object"}
			}
		}
		return recs, nil
	default:
		return nil, &OperationError{Index: index, Field: "data", Reason: "data must be an object or an array of objects"}
	}
}

func hasValue(rec map[string]any, field string) bool {
	value, ok := rec[field]
	if !ok || value == nil {
		return false
	}
	if s, isString := value.(string); isString {
		return strings.TrimSpace(s) != ""
	}
	return true
}

func stringField(rec map[string]any, field string) string {
	if s, ok := rec[field].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// buildRecords normalises trend and keyword rows. Categories outside the
// taxonomy are resolved through the normalizer instead of failing the write.
func (p *Processor) buildRecords(ctx context.Context, index int, target Target, recs []map[string]any) ([]content.Record, error) {
	rows := make([]content.Record, 0, len(recs))
	for i, rec := range recs {
		var key string
		switch target {
		case TargetTrend:
			key = stringField(rec, "name")
		case TargetKeyword:
			key = strings.ToLower(stringField(rec, "keyword"))
		}
		if key == "" {
			return nil, &OperationError{Index: index, Field: fmt.Sprintf("data[%d]", i), Reason: "key must be a non-empty string"}
		}

		var category string
		if target == TargetTrend || hasValue(rec, "category") {
			input := stringField(rec, "category")
			resolution := p.normalizer.Resolve(ctx, input)
			category = resolution.Canonical
			if input != "" && input != category {
				rec["category_input"] = input
			}
			rec["category"] = category
			rec["category_match"] = string(resolution.Match)
		}

		payload, err := json.Marshal(rec)
		if err != nil {
			return nil, &OperationError{Index: index, Field: fmt.Sprintf("data[%d]", i), Reason: "record could not be encoded"}
		}
		rows = append(rows, content.Record{Target: string(target), Key: key, Category: category, Payload: payload})
	}
	return rows, nil
}

// insertContent creates one content item per record in a single transaction.
// A failing record leaves nothing behind.
func (p *Processor) insertContent(ctx context.Context, index int, recs []map[string]any) (int, error) {
	drafts := make([]content.Draft, 0, len(recs))
	for i, rec := range recs {
		id := stringField(rec, "content_id")
		if id == "" {
			return 0, &OperationError{Index: index, Field: fmt.Sprintf("data[%d].content_id", i), Reason: "content_id must be a string"}
		}
		raw, err := json.Marshal(rec["raw_content"])
		if err != nil {
			return 0, &OperationError{Index: index, Field: fmt.Sprintf("data[%d].raw_content", i), Reason: "raw_content could not be encoded"}
		}
		drafts = append(drafts, content.Draft{ContentID: id, Raw: raw})
	}
	created, err := p.items.CreateMany(ctx, drafts)
	if err != nil {
		return 0, err
	}
	return len(created), nil
}

func failed(result OperationResult, err error) OperationResult {
	result.Success = false
	result.Error = err.Error()
	result.ErrorKind = string(services.KindOf(err))
	return result
}
