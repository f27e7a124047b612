package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the journal tables. Timestamps are stored as Unix
// nanoseconds so range filters compare integers.
const Schema = `
CREATE TABLE IF NOT EXISTS journal (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    fingerprint TEXT NOT NULL,

    provider TEXT NOT NULL,
    model TEXT NOT NULL,

    status TEXT NOT NULL,
    code TEXT,

    attempts INTEGER NOT NULL,
    latency_ms INTEGER NOT NULL,

    input_tokens INTEGER NOT NULL,
    output_tokens INTEGER NOT NULL,

    valid BOOLEAN NOT NULL,
    issue_count INTEGER NOT NULL,

    error TEXT,

    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_journal_created_at ON journal(created_at);
CREATE INDEX IF NOT EXISTS idx_journal_provider ON journal(provider);
CREATE INDEX IF NOT EXISTS idx_journal_status ON journal(status);
CREATE INDEX IF NOT EXISTS idx_journal_fingerprint ON journal(fingerprint);
CREATE INDEX IF NOT EXISTS idx_journal_request_id ON journal(request_id);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const columns = `id, request_id, fingerprint, provider, model, status, code,
	attempts, latency_ms, input_tokens, output_tokens, valid, issue_count,
	error, created_at`

// sortColumns maps query sort fields to columns.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"latency":    "latency_ms",
	"attempts":   "attempts",
}
