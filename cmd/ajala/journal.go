package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ajala-hq/ajala/pkg/cli"
	"ajala-hq/ajala/pkg/codes"
	"ajala-hq/ajala/pkg/config"
	"ajala-hq/ajala/pkg/journal"
	"ajala-hq/ajala/pkg/journal/export"
	"ajala-hq/ajala/pkg/journal/retention"
	"ajala-hq/ajala/pkg/journal/storage"
)

// journalStoreFlags select the backend. Every subcommand owns its own copy.
type journalStoreFlags struct {
	backend string
	path    string
}

// journalFilterFlags are the record filters shared by query and export.
type journalFilterFlags struct {
	journalStoreFlags
	timeRange   string
	since       time.Duration
	provider    string
	model       string
	status      string
	code        string
	fingerprint string
	output      string
}

var (
	journalQueryFlags struct {
		journalFilterFlags
		limit  int
		offset int
		sortBy string
		order  string
		format string
	}

	journalExportFlags struct {
		journalFilterFlags
		format string
	}

	journalPruneFlags struct {
		journalStoreFlags
		days       int
		maxRecords int64
	}
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query and maintain the execution journal",
	Long: `Query, export and prune the execution journal.

Every run records its request id, fingerprint, provider, model, outcome,
attempts, latency and token usage when journal.enabled is set. Prompts,
answers and credentials are never stored.

Subcommands:
  query   - List records matching filters
  export  - Write every matching record as JSON or CSV
  prune   - Apply the retention policy now`,
}

var journalQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query journal records",
	Long: `Query journal records with filters.

Time Range Format:
  RFC3339 interval format: "start/end"
  Example: "2025-11-19T00:00:00Z/2025-11-20T00:00:00Z"

Examples:
  # Failures of the last hour
  ajala journal query --since 1h --status error

  # Slowest OpenAI runs
  ajala journal query --provider openai --sort-by latency --limit 10

  # Rate-limited runs as JSON
  ajala journal query --code RATE_LIMIT_ERROR --format json`,
	Args: cobra.NoArgs,
	RunE: queryJournal,
}

var journalExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export journal records",
	Long: `Export every record matching the filters.

Examples:
  ajala journal export --format csv --output journal.csv
  ajala journal export --since 24h --format json`,
	Args: cobra.NoArgs,
	RunE: exportJournal,
}

var journalPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete records beyond the retention policy",
	Long: `Delete records older than the retention period, then the oldest records
beyond the maximum count. Flags override journal.retention.

Examples:
  ajala journal prune
  ajala journal prune --days 7 --max-records 100000`,
	Args: cobra.NoArgs,
	RunE: pruneJournal,
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalQueryCmd, journalExportCmd, journalPruneCmd)

	addJournalStoreFlags(journalQueryCmd, &journalQueryFlags.journalStoreFlags)
	addJournalStoreFlags(journalExportCmd, &journalExportFlags.journalStoreFlags)
	addJournalStoreFlags(journalPruneCmd, &journalPruneFlags.journalStoreFlags)
	addJournalFilterFlags(journalQueryCmd, &journalQueryFlags.journalFilterFlags)
	addJournalFilterFlags(journalExportCmd, &journalExportFlags.journalFilterFlags)

	journalQueryCmd.Flags().IntVar(&journalQueryFlags.limit, "limit", journal.DefaultLimit, "max results")
	journalQueryCmd.Flags().IntVar(&journalQueryFlags.offset, "offset", 0, "pagination offset")
	journalQueryCmd.Flags().StringVar(&journalQueryFlags.sortBy, "sort-by", journal.SortCreatedAt, "sort field: created_at, latency, attempts")
	journalQueryCmd.Flags().StringVar(&journalQueryFlags.order, "order", "desc", "sort order: asc, desc")
	journalQueryCmd.Flags().StringVar(&journalQueryFlags.format, "format", "text", "output format: text, json, csv")
	journalExportCmd.Flags().StringVar(&journalExportFlags.format, "format", export.FormatJSON, "export format: json, csv")

	journalPruneCmd.Flags().IntVar(&journalPruneFlags.days, "days", 0, "retention period in days (uses config if not specified)")
	journalPruneCmd.Flags().Int64Var(&journalPruneFlags.maxRecords, "max-records", 0, "maximum number of records (uses config if not specified)")
}

func addJournalStoreFlags(c *cobra.Command, f *journalStoreFlags) {
	c.Flags().StringVar(&f.backend, "backend", "", "backend: sqlite, memory (uses config if not specified)")
	c.Flags().StringVar(&f.path, "path", "", "sqlite database path (uses config if not specified)")
}

func addJournalFilterFlags(c *cobra.Command, f *journalFilterFlags) {
	c.Flags().StringVar(&f.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
	c.Flags().DurationVar(&f.since, "since", 0, "only records newer than this duration")
	c.Flags().StringVar(&f.provider, "provider", "", "filter by provider")
	c.Flags().StringVar(&f.model, "model", "", "filter by model")
	c.Flags().StringVar(&f.status, "status", "", "filter by status (success, error)")
	c.Flags().StringVar(&f.code, "code", "", "filter by error code or name")
	c.Flags().StringVar(&f.fingerprint, "fingerprint", "", "filter by request fingerprint")
	c.Flags().StringVarP(&f.output, "output", "o", "", "output file (default: stdout)")
}

// openJournalStorage opens the configured backend with flag overrides.
func openJournalStorage(f *journalStoreFlags) (journal.Storage, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	jc := cfg.Journal
	if f.backend != "" {
		jc.Backend = f.backend
	}
	if f.path != "" {
		jc.Path = f.path
	}

	store, err := storage.Open(jc)
	if err != nil {
		return nil, nil, cli.NewCommandError("journal", err)
	}
	return store, cfg, nil
}

// buildJournalQuery adds the filter flags to base, which carries paging
// and sorting. now anchors --since.
func buildJournalQuery(f *journalFilterFlags, base journal.Query, now time.Time) (*journal.Query, error) {
	q := &base
	q.Provider = f.provider
	q.Model = f.model
	q.Status = f.status
	q.Fingerprint = f.fingerprint

	if f.code != "" {
		c, err := codes.Parse(f.code)
		if err != nil {
			return nil, cli.NewConfigError("code", err.Error())
		}
		q.Code = string(c)
	}

	if f.timeRange != "" && f.since > 0 {
		return nil, cli.NewConfigError("time-range", "--time-range and --since are mutually exclusive")
	}
	if f.timeRange != "" {
		start, end, err := parseTimeRange(f.timeRange)
		if err != nil {
			return nil, err
		}
		q.StartTime, q.EndTime = &start, &end
	}
	if f.since > 0 {
		q.StartTime = journal.Since(now, f.since).StartTime
	}

	if err := journal.Validate(q); err != nil {
		return nil, cli.NewConfigError("query", err.Error())
	}
	return q, nil
}

func parseTimeRange(s string) (time.Time, time.Time, error) {
	startStr, endStr, ok := strings.Cut(s, "/")
	if !ok {
		return time.Time{}, time.Time{}, cli.NewConfigError("time-range", "invalid time range format (expected: start/end)")
	}
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, cli.NewConfigError("time-range", fmt.Sprintf("invalid start time: %v", err))
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, cli.NewConfigError("time-range", fmt.Sprintf("invalid end time: %v", err))
	}
	return start, end, nil
}

func queryJournal(cmd *cobra.Command, args []string) error {
	f := &journalQueryFlags
	format, err := cli.ParseFormat(f.format)
	if err != nil {
		return err
	}
	q, err := buildJournalQuery(&f.journalFilterFlags, journal.Query{
		Limit:     f.limit,
		Offset:    f.offset,
		SortBy:    f.sortBy,
		SortOrder: f.order,
	}, time.Now())
	if err != nil {
		return err
	}
	journal.ApplyDefaults(q)

	store, _, err := openJournalStorage(&f.journalStoreFlags)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	records, err := store.Query(ctx, q)
	if err != nil {
		return cli.NewCommandError("journal", fmt.Errorf("query failed: %w", err))
	}
	total, err := store.Count(ctx, q)
	if err != nil {
		return cli.NewCommandError("journal", fmt.Errorf("count failed: %w", err))
	}

	out, closeOut, err := openOutput(f.output, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOut()

	return writeRecords(out, format, records, total)
}

func writeRecords(w io.Writer, format cli.OutputFormat, records []*journal.Record, total int64) error {
	switch format {
	case cli.FormatJSON:
		return cli.NewFormatter(format).FormatTo(w, map[string]any{
			"total_records": total,
			"records":       records,
		})
	case cli.FormatCSV:
		return cli.NewFormatter(format).FormatTo(w, recordTable(records))
	}

	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No records found.")
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(w, recordTable(records)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nShowing %d of %d records.\n", len(records), total)
	return err
}

// recordTable renders records for text and CSV output.
type recordTable []*journal.Record

func (t recordTable) Header() []string {
	return []string{"ID", "CREATED_AT", "PROVIDER", "MODEL", "STATUS", "CODE", "ATTEMPTS", "LATENCY", "TOKENS", "VALID"}
}

func (t recordTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		code := ""
		if r.Code != "" {
			code = codes.Code(r.Code).Name()
		}
		rows = append(rows, []string{
			shortID(r.ID),
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.Provider,
			r.Model,
			r.Status,
			code,
			strconv.Itoa(r.Attempts),
			r.Latency.Round(time.Millisecond).String(),
			strconv.Itoa(r.TotalTokens()),
			strconv.FormatBool(r.Valid),
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func exportJournal(cmd *cobra.Command, args []string) error {
	f := &journalExportFlags
	exporter, err := export.New(f.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	// Export pages through everything that matches.
	q, err := buildJournalQuery(&f.journalFilterFlags, journal.Query{
		SortBy:    journal.SortCreatedAt,
		SortOrder: "asc",
	}, time.Now())
	if err != nil {
		return err
	}

	store, _, err := openJournalStorage(&f.journalStoreFlags)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	records, err := queryAll(ctx, store, q)
	if err != nil {
		return cli.NewCommandError("journal", err)
	}

	out, closeOut, err := openOutput(f.output, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOut()

	if err := exporter.Export(ctx, records, out); err != nil {
		return cli.NewCommandError("journal", journal.NewExportError(f.format, len(records), err))
	}
	if f.output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %d records to %s\n", len(records), f.output)
	}
	return nil
}

// queryAll collects every record matching q, MaxLimit at a time.
func queryAll(ctx context.Context, store journal.Storage, q *journal.Query) ([]*journal.Record, error) {
	page := *q
	page.Limit = journal.MaxLimit
	page.Offset = 0

	var all []*journal.Record
	for {
		records, err := store.Query(ctx, &page)
		if err != nil {
			return nil, fmt.Errorf("query failed: %w", err)
		}
		all = append(all, records...)
		if len(records) < page.Limit {
			return all, nil
		}
		page.Offset += len(records)
	}
}

func pruneJournal(cmd *cobra.Command, args []string) error {
	f := &journalPruneFlags
	store, cfg, err := openJournalStorage(&f.journalStoreFlags)
	if err != nil {
		return err
	}
	defer store.Close()

	rc := retention.FromConfig(cfg.Journal.Retention)
	if cmd.Flags().Changed("days") {
		rc.RetentionDays = f.days
	}
	if cmd.Flags().Changed("max-records") {
		rc.MaxRecords = f.maxRecords
	}

	deleted, err := retention.NewPruner(store, rc).Prune(context.Background())
	if err != nil {
		return cli.NewCommandError("journal", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d records (retention: %d days, max records: %d)\n",
		deleted, rc.RetentionDays, rc.MaxRecords)
	return nil
}
