package api

import (
	"encoding/json"

	"pressline/internal/intake"
)

const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Item is the transport representation of a content item.
type Item struct {
	ContentID       string          `json:"content_id"`
	Status          string          `json:"status"`
	Title           string          `json:"title,omitempty"`
	Category        string          `json:"category,omitempty"`
	ConfidenceScore *float64        `json:"confidence_score,omitempty"`
	Language        string          `json:"language,omitempty"`
	Terminal        bool            `json:"terminal"`
	AwaitingReview  bool            `json:"awaiting_review"`
	RawPayload      json.RawMessage `json:"raw_payload,omitempty"`
	Analysis        json.RawMessage `json:"analysis,omitempty"`
	Design          json.RawMessage `json:"design,omitempty"`
	AssetReport     json.RawMessage `json:"asset_report,omitempty"`
	Page            json.RawMessage `json:"page,omitempty"`
	SEOElements     json.RawMessage `json:"seo_elements,omitempty"`
	QualityMetrics  json.RawMessage `json:"quality_metrics,omitempty"`
	ErrorLogs       []ErrorLog      `json:"error_logs,omitempty"`
	ProcessingStart string          `json:"processing_start,omitempty"`
	ProcessingEnd   string          `json:"processing_end,omitempty"`
	CreatedAt       string          `json:"created_at,omitempty"`
	UpdatedAt       string          `json:"updated_at,omitempty"`
}

// ErrorLog is one recorded stage failure on an item.
type ErrorLog struct {
	Stage     string `json:"stage"`
	AttemptID string `json:"attempt_id,omitempty"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	At        string `json:"at,omitempty"`
}

// StageRecord is one Stage Log entry.
type StageRecord struct {
	ID           int64           `json:"id"`
	Stage        string          `json:"stage"`
	AttemptID    string          `json:"attempt_id"`
	Status       string          `json:"status"`
	StartedAt    string          `json:"started_at,omitempty"`
	CompletedAt  string          `json:"completed_at,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	ErrorKind    string          `json:"error_kind,omitempty"`
	Detail       json.RawMessage `json:"detail,omitempty"`
}

// ItemListResponse wraps a collection of items.
type ItemListResponse struct {
	Items []Item `json:"items"`
}

// ItemResponse wraps a single item.
type ItemResponse struct {
	Item Item `json:"item"`
}

// HistoryResponse lists an item's Stage Log in append order.
type HistoryResponse struct {
	ContentID string        `json:"content_id"`
	Records   []StageRecord `json:"records"`
}

// IntakeRequest submits one raw item.
type IntakeRequest struct {
	ContentID  string          `json:"content_id"`
	RawContent json.RawMessage `json:"raw_content"`
}

// IntakeResponse is the single intake result.
type IntakeResponse = intake.SubmitResult

// BatchResponse is the batch intake result.
type BatchResponse = intake.BatchResponse

// TriggerRequest addresses one stage for one item.
type TriggerRequest struct {
	ContentID string `json:"content_id"`
	Force     bool   `json:"force,omitempty"`
}

// TriggerResponse reports a stage trigger outcome.
type TriggerResponse struct {
	ContentID      string          `json:"content_id"`
	Stage          string          `json:"stage"`
	AttemptID      string          `json:"attempt_id,omitempty"`
	PreviousStatus string          `json:"previous_status,omitempty"`
	Status         string          `json:"status"`
	Skipped        bool            `json:"skipped"`
	Held           bool            `json:"held,omitempty"`
	Failed         bool            `json:"failed,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	ErrorKind      string          `json:"error_kind,omitempty"`
	Error          string          `json:"error,omitempty"`
	Detail         json.RawMessage `json:"detail,omitempty"`
	DurationMS     int64           `json:"duration_ms"`
}

// DecisionRequest carries an operator reason for approve and review.
type DecisionRequest struct {
	Reason string `json:"reason,omitempty"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	Stats       map[string]int `json:"stats"`
	LastError   string         `json:"last_error,omitempty"`
	LastItem    *Item          `json:"last_item,omitempty"`
	LastSweep   string         `json:"last_sweep,omitempty"`
	StageHealth []StageHealth  `json:"stage_health"`
}

// StageHealth describes the readiness of a pipeline stage.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates runtime information.
type DaemonStatus struct {
	Running       bool           `json:"running"`
	PID           int            `json:"pid"`
	StorageDriver string         `json:"storage_driver"`
	DatabasePath  string         `json:"database_path,omitempty"`
	LockFilePath  string         `json:"lock_file_path"`
	APIBind       string         `json:"api_bind"`
	Workflow      WorkflowStatus `json:"workflow"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Details ErrorDetails `json:"details"`
}

// ErrorDetails classifies a failure.
type ErrorDetails struct {
	Kind      string `json:"kind"`
	Stage     string `json:"stage,omitempty"`
	Operation string `json:"operation,omitempty"`
	Hint      string `json:"hint,omitempty"`
}
