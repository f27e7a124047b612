package journal

import (
	"context"
	"io"
	"time"
)

// Record statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Record is the journal entry for one pipeline run. Prompts, responses and
// credentials are never stored; Fingerprint identifies the request instead.
type Record struct {
	ID          string `json:"id"`
	RequestID   string `json:"request_id"`
	Fingerprint string `json:"fingerprint"`

	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Status is "success" or "error"
	Status string `json:"status"`

	// Code is the error code of a failed run
	Code string `json:"code,omitempty"`

	Attempts int           `json:"attempts"`
	Latency  time.Duration `json:"latency"`

	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	// Valid is false when schema validation reported errors
	Valid      bool `json:"valid"`
	IssueCount int  `json:"issue_count"`

	Error string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TotalTokens returns input plus output tokens.
func (r *Record) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// Query defines filter parameters for querying journal records.
type Query struct {
	// Time range, both inclusive
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	Provider    string `json:"provider,omitempty"`
	Model       string `json:"model,omitempty"`
	Status      string `json:"status,omitempty"`
	Code        string `json:"code,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`

	// IDs restricts the match to the given record IDs
	IDs []string `json:"ids,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// SortBy is one of "created_at", "latency", "attempts"
	SortBy string `json:"sort_by,omitempty"`
	// SortOrder is "asc" or "desc"
	SortOrder string `json:"sort_order,omitempty"`
}

// Storage persists journal records. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Query returns the records matching q, sorted and paginated.
	Query(ctx context.Context, q *Query) ([]*Record, error)

	// Count returns the number of records matching q's filters.
	Count(ctx context.Context, q *Query) (int64, error)

	// Delete removes the records matching q's filters and returns how many
	// were removed.
	Delete(ctx context.Context, q *Query) (int64, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Exporter writes records in some output format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
