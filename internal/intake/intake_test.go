package intake_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"pressline/internal/content"
	"pressline/internal/intake"
	"pressline/internal/logging"
	"pressline/internal/services"
	"pressline/internal/taxonomy"
	"pressline/internal/testsupport"
)

func newProcessor(t *testing.T, opts ...intake.Option) (*intake.Processor, *content.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	items := content.NewStore(testsupport.MustOpenDB(t, cfg))
	normalizer := taxonomy.NewNormalizer(taxonomy.Embedded(), logging.NewNop())
	return intake.NewProcessor(items, normalizer, cfg.Intake, logging.NewNop(), opts...), items
}

func TestBatchPartialSuccessPreservesIndex(t *testing.T) {
	processor, items := newProcessor(t)
	body := `[
		{"operation": "insert", "table": "TREND", "data": {"name": "Agent frameworks", "category": "AI_PRODUCT_NEWS"}},
		{"operation": "insert", "table": "TREND", "data": {"category": "AI_POLICY"}},
		{"operation": "insert", "table": "KEYWORD", "data": {"keyword": "Retrieval"}}
	]`

	resp, err := processor.Batch(context.Background(), []byte(body))
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if resp.SuccessfulOperations != 2 || resp.FailedOperations != 1 || resp.TotalOperations != 3 {
		t.Fatalf("unexpected counts %+v", resp)
	}
	if resp.Success {
		t.Fatal("expected overall success=false")
	}
	if resp.HTTPStatus() != http.StatusMultiStatus {
		t.Fatalf("expected 207, got %d", resp.HTTPStatus())
	}
	if resp.TotalInsertedRecords != 2 {
		t.Fatalf("expected 2 inserted records, got %d", resp.TotalInsertedRecords)
	}
	for i, result := range resp.Results {
		if result.Index != i {
			t.Fatalf("result %d carries index %d", i, result.Index)
		}
	}
	failed := resp.Results[1]
	if failed.Success || failed.ErrorKind != string(services.KindBatchOperationInvalid) {
		t.Fatalf("expected failed batch_operation_invalid at index 1, got %+v", failed)
	}
	if !strings.Contains(failed.Error, "data[0].name") {
		t.Fatalf("expected error to name the missing field, got %q", failed.Error)
	}

	trends, err := items.Records(context.Background(), "TREND", 0)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(trends) != 1 || trends[0].Category != "AI_DEVELOPMENT" {
		t.Fatalf("expected synonym-resolved trend, got %+v", trends)
	}
	var payload map[string]any
	if err := json.Unmarshal(trends[0].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["category_input"] != "AI_PRODUCT_NEWS" || payload["category_match"] != "synonym" {
		t.Fatalf("expected mapping recorded in payload, got %v", payload)
	}

	keywords, err := items.Records(context.Background(), "KEYWORD", 0)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(keywords) != 1 || keywords[0].Key != "retrieval" {
		t.Fatalf("expected lowercased keyword, got %+v", keywords)
	}
}

func TestBatchFullSuccess(t *testing.T) {
	processor, items := newProcessor(t)
	body := `[
		{"operation": "INSERT", "table": "trends", "data": [
			{"name": "Chip export rules", "category": "regulation"},
			{"name": "Quantum sensing", "category": "something-new"}
		]},
		{"operation": "insert", "table": "CONTENT", "data": {"content_id": "post-1", "raw_content": {"title": "Hello"}}}
	]`

	resp, err := processor.Batch(context.Background(), []byte(body))
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if !resp.Success || resp.HTTPStatus() != http.StatusOK {
		t.Fatalf("expected full success, got %+v", resp)
	}
	if resp.TotalInsertedRecords != 3 {
		t.Fatalf("expected 3 inserted records, got %d", resp.TotalInsertedRecords)
	}

	item := testsupport.MustGetItem(t, items, "post-1")
	if item.Status != content.StatusReceived {
		t.Fatalf("expected received item, got %s", item.Status)
	}

	trends, err := items.Records(context.Background(), "TREND", 0)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	categories := map[string]string{}
	for _, rec := range trends {
		categories[rec.Key] = rec.Category
	}
	if categories["Quantum sensing"] != "EMERGING_TECH" {
		t.Fatalf("expected unknown category to fall back to default, got %v", categories)
	}
}

func TestBatchExecutionFailureDoesNotAbortLaterOperations(t *testing.T) {
	processor, items := newProcessor(t)
	testsupport.MustCreateItem(t, items, "dup", map[string]any{"title": "existing"})
	body := `[
		{"operation": "insert", "table": "CONTENT", "data": {"content_id": "dup", "raw_content": {"title": "again"}}},
		{"operation": "delete", "table": "KEYWORD", "data": {"keyword": "x"}},
		{"operation": "insert", "table": "AUTHORS", "data": {"name": "x"}},
		{"operation": "insert", "table": "KEYWORD", "data": "not an object"},
		{"operation": "insert", "table": "KEYWORD", "data": {"keyword": "agents"}}
	]`

	resp, err := processor.Batch(context.Background(), []byte(body))
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if resp.SuccessfulOperations != 1 || resp.FailedOperations != 4 {
		t.Fatalf("unexpected counts %+v", resp)
	}
	if resp.Results[0].ErrorKind != string(services.KindValidation) {
		t.Fatalf("expected duplicate to be a validation failure, got %+v", resp.Results[0])
	}
	for _, i := range []int{1, 2, 3} {
		if resp.Results[i].ErrorKind != string(services.KindBatchOperationInvalid) {
			t.Fatalf("expected shape failure at %d, got %+v", i, resp.Results[i])
		}
	}
	if !resp.Results[4].Success {
		t.Fatalf("expected last operation to succeed, got %+v", resp.Results[4])
	}
}

func TestBatchContentArrayIsAllOrNothing(t *testing.T) {
	processor, items := newProcessor(t)
	body := `[
		{"operation": "insert", "table": "CONTENT", "data": [
			{"content_id": "a", "raw_content": {"title": "first"}},
			{"content_id": "a", "raw_content": {"title": "repeat"}}
		]}
	]`

	resp, err := processor.Batch(context.Background(), []byte(body))
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if resp.Success || resp.FailedOperations != 1 {
		t.Fatalf("expected the operation to fail, got %+v", resp)
	}
	if resp.Results[0].InsertedRecords != 0 || resp.TotalInsertedRecords != 0 {
		t.Fatalf("expected nothing inserted, got %+v", resp)
	}
	if resp.Results[0].ErrorKind != string(services.KindValidation) {
		t.Fatalf("expected duplicate to be a validation failure, got %+v", resp.Results[0])
	}
	if _, err := items.Get(context.Background(), "a"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected item a to be rolled back, got %v", err)
	}
}

func TestBatchCountsAlwaysAddUp(t *testing.T) {
	bodies := []string{
		`[{"operation": "insert", "table": "KEYWORD", "data": {"keyword": "one"}}]`,
		`[{"operation": "insert", "table": "KEYWORD", "data": {}}]`,
		`[{"operation": "insert", "table": "TREND", "data": []}]`,
		`[{"operation": "upsert", "table": "TREND", "data": {"name": "x"}}]`,
		`[42]`,
	}
	for i, body := range bodies {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			processor, _ := newProcessor(t)
			resp, err := processor.Batch(context.Background(), []byte(body))
			if err != nil {
				t.Fatalf("Batch: %v", err)
			}
			if resp.SuccessfulOperations+resp.FailedOperations != resp.TotalOperations {
				t.Fatalf("counts do not add up: %+v", resp)
			}
			if len(resp.Results) != resp.TotalOperations {
				t.Fatalf("expected one result per operation, got %d", len(resp.Results))
			}
		})
	}
}

func TestBatchRejectsMalformedEnvelope(t *testing.T) {
	processor, _ := newProcessor(t)
	var eleven []string
	for i := 0; i < 11; i++ {
		eleven = append(eleven, `{"operation": "insert", "table": "KEYWORD", "data": {"keyword": "k"}}`)
	}
	cases := map[string]string{
		"empty":    "",
		"object":   `{"operation": "insert"}`,
		"no ops":   `[]`,
		"too many": "[" + strings.Join(eleven, ",") + "]",
		"not json": `[{"operation": `,
		"scalar":   `"insert"`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := processor.Batch(context.Background(), []byte(body))
			var envErr *intake.EnvelopeError
			if !errors.As(err, &envErr) {
				t.Fatalf("expected EnvelopeError, got %v", err)
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation marker, got %v", err)
			}
		})
	}
}

type stubRunner struct {
	items  *content.Store
	status content.Status
	err    error
}

func (r *stubRunner) Drive(ctx context.Context, contentID string) (*content.Item, error) {
	item, err := r.items.Get(ctx, contentID)
	if err != nil {
		return nil, err
	}
	item.Status = r.status
	return item, r.err
}

func TestSubmitCreatesItem(t *testing.T) {
	processor, items := newProcessor(t)
	result, err := processor.Submit(context.Background(), "  article-7 ", json.RawMessage(`{"title":"Hi"}`))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !result.Success || result.ContentID != "article-7" || result.FinalStatus != string(content.StatusReceived) {
		t.Fatalf("unexpected result %+v", result)
	}
	testsupport.MustGetItem(t, items, "article-7")

	if _, err := processor.Submit(context.Background(), "article-7", json.RawMessage(`{}`)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected duplicate to fail validation, got %v", err)
	}
	if _, err := processor.Submit(context.Background(), "article-8", json.RawMessage(`not json`)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected invalid payload to fail validation, got %v", err)
	}
}

func TestSubmitDrivesPipelineWhenEnabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Intake.RunPipeline = true
	items := content.NewStore(testsupport.MustOpenDB(t, cfg))
	runner := &stubRunner{items: items, status: content.StatusClassified, err: services.Wrap(services.ErrExternalServiceTimeout, "design", "execute", "", nil)}
	processor := intake.NewProcessor(items, nil, cfg.Intake, logging.NewNop(), intake.WithRunner(runner))

	result, err := processor.Submit(context.Background(), "driven", json.RawMessage(`{"title":"Hi"}`))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !result.Success || result.FinalStatus != string(content.StatusClassified) {
		t.Fatalf("expected driven status, got %+v", result)
	}
	if result.Error == "" {
		t.Fatal("expected drive error to be surfaced")
	}
}
