package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"ajala-hq/ajala/pkg/cli"
	"ajala-hq/ajala/pkg/codes"
	"ajala-hq/ajala/pkg/config"
	"ajala-hq/ajala/pkg/journal"
	"ajala-hq/ajala/pkg/journal/storage"
)

func resetJournalFlags(t *testing.T) {
	t.Helper()
	query, exp, prune := journalQueryFlags, journalExportFlags, journalPruneFlags
	t.Cleanup(func() {
		journalQueryFlags, journalExportFlags, journalPruneFlags = query, exp, prune
	})
}

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "valid", in: "2026-10-01T00:00:00Z/2026-10-02T00:00:00Z"},
		{name: "no separator", in: "2026-10-01T00:00:00Z", wantErr: true},
		{name: "bad start", in: "yesterday/2026-10-02T00:00:00Z", wantErr: true},
		{name: "bad end", in: "2026-10-01T00:00:00Z/tomorrow", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := parseTimeRange(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !end.After(start) {
				t.Errorf("start %v should be before end %v", start, end)
			}
		})
	}
}

func TestBuildJournalQuery(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	t.Run("code name resolves to token", func(t *testing.T) {
		f := &journalFilterFlags{code: "rate_limit_error", status: journal.StatusError}
		q, err := buildJournalQuery(f, journal.Query{}, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.Code != string(codes.RateLimitError) {
			t.Errorf("code = %q, want %q", q.Code, codes.RateLimitError)
		}
	})

	t.Run("since", func(t *testing.T) {
		f := &journalFilterFlags{since: time.Hour}
		q, err := buildJournalQuery(f, journal.Query{}, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.StartTime == nil || !q.StartTime.Equal(now.Add(-time.Hour)) {
			t.Errorf("start = %v", q.StartTime)
		}
	})

	t.Run("base paging kept", func(t *testing.T) {
		f := &journalFilterFlags{provider: "openai"}
		q, err := buildJournalQuery(f, journal.Query{Limit: 10, Offset: 20, SortBy: journal.SortCreatedAt, SortOrder: "asc"}, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.Limit != 10 || q.Offset != 20 || q.SortOrder != "asc" || q.Provider != "openai" {
			t.Errorf("query = %+v", q)
		}
	})

	errCases := []struct {
		name string
		f    journalFilterFlags
		base journal.Query
	}{
		{name: "unknown code", f: journalFilterFlags{code: "NOT_A_CODE"}},
		{name: "since with range", f: journalFilterFlags{
			since:     time.Hour,
			timeRange: "2026-10-01T00:00:00Z/2026-10-02T00:00:00Z",
		}},
		{name: "reversed range", f: journalFilterFlags{timeRange: "2026-10-02T00:00:00Z/2026-10-01T00:00:00Z"}},
		{name: "bad status", f: journalFilterFlags{status: "pending"}},
		{name: "limit too large", base: journal.Query{Limit: journal.MaxLimit + 1}},
		{name: "bad sort", base: journal.Query{SortBy: "provider"}},
	}
	for _, tt := range errCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildJournalQuery(&tt.f, tt.base, now)
			var cfgErr *cli.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *cli.ConfigError, got %v", err)
			}
		})
	}
}

func TestJournalSubcommandFlagsIndependent(t *testing.T) {
	resetJournalFlags(t)

	tests := []struct {
		name string
		cmd  *cobra.Command
		args []string
	}{
		{name: "query", cmd: journalQueryCmd, args: []string{"--status", "error", "--provider", "openai", "--format", "json"}},
		{name: "export", cmd: journalExportCmd, args: []string{"--status", "success", "--format", "csv"}},
		{name: "prune", cmd: journalPruneCmd, args: []string{"--backend", "memory"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cmd.ParseFlags(tt.args); err != nil {
				t.Fatal(err)
			}
		})
	}

	if journalQueryFlags.status != journal.StatusError || journalQueryFlags.provider != "openai" {
		t.Errorf("query flags = %+v", journalQueryFlags.journalFilterFlags)
	}
	if journalExportFlags.status != journal.StatusSuccess || journalExportFlags.provider != "" {
		t.Errorf("export flags picked up query filters: %+v", journalExportFlags.journalFilterFlags)
	}
	if journalQueryFlags.format != "json" || journalExportFlags.format != "csv" {
		t.Errorf("formats = %q, %q", journalQueryFlags.format, journalExportFlags.format)
	}
	if journalPruneFlags.backend != "memory" || journalQueryFlags.backend != "" || journalExportFlags.backend != "" {
		t.Errorf("backend leaked across subcommands")
	}
}

func testRecords(n int) []*journal.Record {
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	records := make([]*journal.Record, n)
	for i := range records {
		r := &journal.Record{
			ID:           fmt.Sprintf("rec-%04d-abcdef", i),
			RequestID:    fmt.Sprintf("req-%d", i),
			Provider:     "mock",
			Model:        "mock-model-1",
			Status:       journal.StatusSuccess,
			Attempts:     1,
			Latency:      120 * time.Millisecond,
			InputTokens:  10,
			OutputTokens: 20,
			Valid:        true,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if i%2 == 1 {
			r.Status = journal.StatusError
			r.Code = string(codes.TimeoutError)
			r.Valid = false
		}
		records[i] = r
	}
	return records
}

func TestRecordTable(t *testing.T) {
	rows := recordTable(testRecords(2)).Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	want := []string{"rec-0000", "2026-10-19T09:00:00Z", "mock", "mock-model-1", "success", "", "1", "120ms", "30", "true"}
	for i, w := range want {
		if rows[0][i] != w {
			t.Errorf("row 0 column %d = %q, want %q", i, rows[0][i], w)
		}
	}
	if rows[1][5] != codes.TimeoutError.Name() {
		t.Errorf("code column = %q, want the symbolic name", rows[1][5])
	}
}

func TestWriteRecords(t *testing.T) {
	records := testRecords(3)

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeRecords(&buf, cli.FormatText, records, 10); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "Showing 3 of 10 records.") {
			t.Errorf("output = %q", buf.String())
		}
	})

	t.Run("text empty", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeRecords(&buf, cli.FormatText, nil, 0); err != nil {
			t.Fatal(err)
		}
		if buf.String() != "No records found.\n" {
			t.Errorf("output = %q", buf.String())
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeRecords(&buf, cli.FormatJSON, records, 3); err != nil {
			t.Fatal(err)
		}
		var got struct {
			Total   int64             `json:"total_records"`
			Records []*journal.Record `json:"records"`
		}
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Total != 3 || len(got.Records) != 3 {
			t.Errorf("got total %d, %d records", got.Total, len(got.Records))
		}
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeRecords(&buf, cli.FormatCSV, records, 3); err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 4 || !strings.HasPrefix(lines[0], "ID,CREATED_AT") {
			t.Errorf("csv output = %q", buf.String())
		}
	})
}

func TestQueryAll(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	defer store.Close()

	for _, r := range testRecords(5) {
		if err := store.Store(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := queryAll(ctx, store, &journal.Query{Status: journal.StatusSuccess, SortBy: journal.SortCreatedAt, SortOrder: "asc"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 successful records, got %d", len(got))
	}
	if got[0].ID != "rec-0000-abcdef" {
		t.Errorf("first record = %s, want oldest", got[0].ID)
	}
}

func TestJournalCommands(t *testing.T) {
	resetJournalFlags(t)

	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := storage.Open(config.JournalConfig{Backend: "sqlite", Path: path})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range testRecords(4) {
		if err := store.Store(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	execute := func(args ...string) (string, error) {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&bytes.Buffer{})
		rootCmd.SetArgs(args)
		defer func() {
			rootCmd.SetOut(nil)
			rootCmd.SetErr(nil)
			rootCmd.SetArgs(nil)
		}()
		err := rootCmd.Execute()
		return out.String(), err
	}

	out, err := execute("journal", "query", "--backend", "sqlite", "--path", path, "--status", "error", "--format", "json")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	var res struct {
		Total   int64             `json:"total_records"`
		Records []*journal.Record `json:"records"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if res.Total != 2 || len(res.Records) != 2 {
		t.Errorf("expected 2 failed records, got total %d, %d records", res.Total, len(res.Records))
	}

	out, err = execute("journal", "export", "--backend", "sqlite", "--path", path, "--format", "csv")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 5 {
		t.Errorf("export after a filtered query: expected header and 4 rows, got %d lines", len(lines))
	}

	out, err = execute("journal", "export", "--backend", "sqlite", "--path", path, "--format", "csv", "--status", "success")
	if err != nil {
		t.Fatalf("filtered export: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 3 {
		t.Errorf("expected header and 2 successful rows, got %d lines", len(lines))
	}

	out, err = execute("journal", "prune", "--backend", "sqlite", "--path", path, "--days", "0", "--max-records", "1")
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if !strings.Contains(out, "Pruned 3 records") {
		t.Errorf("prune output = %q", out)
	}
}
