package export

import (
	"fmt"

	"ajala-hq/ajala/pkg/journal"
)

// Supported formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// New returns the exporter for format.
func New(format string) (journal.Exporter, error) {
	switch format {
	case FormatJSON, "":
		return NewJSONExporter(true), nil
	case FormatCSV:
		return NewCSVExporter(true), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (valid: json, csv)", format)
	}
}
