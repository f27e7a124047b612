package journal

import (
	"fmt"
	"strings"
)

// detail renders "kind [k=v, ...]: cause". Empty values are left out.
func detail(kind string, cause error, kv ...any) string {
	var parts []string
	for i := 0; i+1 < len(kv); i += 2 {
		if v := fmt.Sprint(kv[i+1]); v != "" {
			parts = append(parts, fmt.Sprintf("%v=%s", kv[i], v))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("journal %s: %v", kind, cause)
	}
	return fmt.Sprintf("journal %s [%s]: %v", kind, strings.Join(parts, ", "), cause)
}

// StorageError wraps a backend failure.
type StorageError struct {
	Backend   string // memory, sqlite
	Operation string // store, query, count, delete, ping
	Cause     error
}

func (e *StorageError) Error() string {
	return detail("storage", e.Cause, "backend", e.Backend, "op", e.Operation)
}

func (e *StorageError) Unwrap() error { return e.Cause }

func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

// QueryError reports an invalid Query. Storage never sees such a query.
type QueryError struct {
	Query *Query
	Cause error
}

func (e *QueryError) Error() string { return detail("query", e.Cause) }

func (e *QueryError) Unwrap() error { return e.Cause }

func NewQueryError(query *Query, cause error) *QueryError {
	return &QueryError{Query: query, Cause: cause}
}

// RecorderError reports a record that was dropped before reaching storage.
type RecorderError struct {
	RecordID string
	Cause    error
}

func (e *RecorderError) Error() string {
	return detail("recorder", e.Cause, "record", e.RecordID)
}

func (e *RecorderError) Unwrap() error { return e.Cause }

func NewRecorderError(recordID string, cause error) *RecorderError {
	return &RecorderError{RecordID: recordID, Cause: cause}
}

// RetentionError wraps a failed prune.
type RetentionError struct {
	RetentionDays int
	Cause         error
}

func (e *RetentionError) Error() string {
	return detail("retention", e.Cause, "days", e.RetentionDays)
}

func (e *RetentionError) Unwrap() error { return e.Cause }

func NewRetentionError(retentionDays int, cause error) *RetentionError {
	return &RetentionError{RetentionDays: retentionDays, Cause: cause}
}

// ExportError wraps a failed export. RecordCount is the number of records
// handed to the exporter.
type ExportError struct {
	Format      string
	RecordCount int
	Cause       error
}

func (e *ExportError) Error() string {
	return detail("export", e.Cause, "format", e.Format, "records", e.RecordCount)
}

func (e *ExportError) Unwrap() error { return e.Cause }

func NewExportError(format string, recordCount int, cause error) *ExportError {
	return &ExportError{Format: format, RecordCount: recordCount, Cause: cause}
}
