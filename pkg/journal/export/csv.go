package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"ajala-hq/ajala/pkg/journal"
)

// CSVExporter writes records as CSV rows.
type CSVExporter struct {
	// IncludeHeader writes a header row first.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

var header = []string{
	"id", "request_id", "fingerprint",
	"provider", "model",
	"status", "code",
	"attempts", "latency_ms",
	"input_tokens", "output_tokens", "total_tokens",
	"valid", "issue_count",
	"error", "created_at",
}

// Export writes records to w.
func (e *CSVExporter) Export(ctx context.Context, records []*journal.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(header); err != nil {
			return journal.NewExportError("csv", len(records), err)
		}
	}

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writer.Write(row(record)); err != nil {
			return journal.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return journal.NewExportError("csv", len(records), err)
	}
	return nil
}

func row(r *journal.Record) []string {
	return []string{
		r.ID, r.RequestID, r.Fingerprint,
		r.Provider, r.Model,
		r.Status, r.Code,
		strconv.Itoa(r.Attempts), strconv.FormatInt(r.Latency.Milliseconds(), 10),
		strconv.Itoa(r.InputTokens), strconv.Itoa(r.OutputTokens), strconv.Itoa(r.TotalTokens()),
		strconv.FormatBool(r.Valid), strconv.Itoa(r.IssueCount),
		r.Error, formatTime(r.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
