package export

import (
	"context"
	"encoding/json"
	"io"

	"ajala-hq/ajala/pkg/journal"
)

// JSONExporter writes records as a JSON array.
type JSONExporter struct {
	// Pretty enables indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes records to w. An empty slice is written as "[]".
func (e *JSONExporter) Export(ctx context.Context, records []*journal.Record, w io.Writer) error {
	if records == nil {
		records = []*journal.Record{}
	}

	enc := json.NewEncoder(w)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(records); err != nil {
		return journal.NewExportError("json", len(records), err)
	}
	return nil
}

// ExportStream writes records from ch as a JSON array until ch is closed
// or ctx is cancelled.
func (e *JSONExporter) ExportStream(ctx context.Context, ch <-chan *journal.Record, w io.Writer) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return journal.NewExportError("json", 0, err)
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case record, ok := <-ch:
			if !ok {
				if _, err := io.WriteString(w, "]\n"); err != nil {
					return journal.NewExportError("json", count, err)
				}
				return nil
			}

			if count > 0 {
				if _, err := io.WriteString(w, ","); err != nil {
					return journal.NewExportError("json", count, err)
				}
			}

			data, err := json.Marshal(record)
			if err != nil {
				return journal.NewExportError("json", count, err)
			}
			if _, err := w.Write(data); err != nil {
				return journal.NewExportError("json", count, err)
			}
			count++
		}
	}
}
