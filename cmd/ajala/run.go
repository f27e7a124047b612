package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"ajala-hq/ajala/pkg/cli"
	"ajala-hq/ajala/pkg/codes"
	"ajala-hq/ajala/pkg/pipeline"
	"ajala-hq/ajala/pkg/providers/registry"
	"ajala-hq/ajala/pkg/schema"
)

var runFlags struct {
	file        string
	batch       string
	vars        []string
	provider    string
	model       string
	schema      string
	system      string
	expectJSON  bool
	validate    bool
	strictJSON  bool
	lenient     bool
	maxTokens   int
	temperature float64
	timeout     time.Duration
	noRetry     bool
	concurrency int
	format      string
	output      string
	quiet       bool
	watch       bool
	serve       bool
}

// runRegistryOptions are appended to the registry options of every run.
var runRegistryOptions []registry.Option

var runCmd = &cobra.Command{
	Use:   "run [template]",
	Short: "Execute a prompt against a provider",
	Long: `Render a prompt template, send it to the selected provider with retry,
and print the answer. With --expect-json the answer is parsed as JSON; with
--schema it is also validated and coerced.

The request comes from the template argument, a request file (--file) or a
batch file holding a list of requests (--batch). Flags override the values
of request files.

Examples:
  # One-off prompt
  ajala run "Translate to French: {{text}}" --var text="good morning"

  # Structured extraction with validation
  ajala run --file extract.yaml --schema user.yaml --format json

  # Batch with 8 concurrent requests, results as CSV
  ajala run --batch requests.yaml --concurrency 8 --format csv

  # Keep /metrics and /readyz up after the run
  ajala run --file extract.yaml --serve`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.file, "file", "f", "", "request file, YAML or JSON (- for stdin)")
	runCmd.Flags().StringVar(&runFlags.batch, "batch", "", "batch file holding a list of requests (- for stdin)")
	runCmd.Flags().StringArrayVar(&runFlags.vars, "var", nil, "template variable name=value (repeatable)")
	runCmd.Flags().StringVarP(&runFlags.provider, "provider", "p", "claude", "provider: claude, openai, mock")
	runCmd.Flags().StringVarP(&runFlags.model, "model", "m", "", "model (provider default when empty)")
	runCmd.Flags().StringVar(&runFlags.schema, "schema", "", "schema file; implies --expect-json and --validate-json")
	runCmd.Flags().StringVar(&runFlags.system, "system", "", "system instruction")
	runCmd.Flags().BoolVar(&runFlags.expectJSON, "expect-json", false, "parse the answer as JSON")
	runCmd.Flags().BoolVar(&runFlags.validate, "validate-json", false, "validate the parsed answer against the schema")
	runCmd.Flags().BoolVar(&runFlags.strictJSON, "error-on-invalid-json", false, "fail when the answer does not parse or validate")
	runCmd.Flags().BoolVar(&runFlags.lenient, "lenient", false, "leave unresolved placeholders in the prompt")
	runCmd.Flags().IntVar(&runFlags.maxTokens, "max-tokens", 0, "output token limit (adapter default when 0)")
	runCmd.Flags().Float64Var(&runFlags.temperature, "temperature", 0, "sampling temperature")
	runCmd.Flags().DurationVar(&runFlags.timeout, "timeout", 0, "deadline for the whole request including retries")
	runCmd.Flags().BoolVar(&runFlags.noRetry, "no-retry", false, "make a single provider call")
	runCmd.Flags().IntVar(&runFlags.concurrency, "concurrency", pipeline.DefaultBatchLimit, "concurrent requests in batch mode")
	runCmd.Flags().StringVar(&runFlags.format, "format", "text", "output format: text, json, csv")
	runCmd.Flags().StringVarP(&runFlags.output, "output", "o", "", "output file (default: stdout)")
	runCmd.Flags().BoolVarP(&runFlags.quiet, "quiet", "q", false, "no batch progress on stderr")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "reload settings when the config file changes")
	runCmd.Flags().BoolVar(&runFlags.serve, "serve", false, "keep the telemetry server running until interrupted")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(runFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reqs, batch, err := buildRequests(args, cmd.InOrStdin(), cmd.Flags().Changed)
	if err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{
		stderr:       cmd.ErrOrStderr(),
		watch:        runFlags.watch,
		registryOpts: runRegistryOptions,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(context.Background()); err != nil {
			a.logger.Error("shutdown failed", "error", err)
		}
	}()

	serving := false
	if runFlags.serve {
		if serving = a.serve(); !serving {
			return cli.NewConfigError("telemetry.metrics.listen", "--serve needs a listen address")
		}
	}

	out, closeOut, err := openOutput(runFlags.output, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOut()

	ex := executor{
		app:         a,
		format:      format,
		out:         out,
		errOut:      cmd.ErrOrStderr(),
		concurrency: runFlags.concurrency,
		progress:    batch && !runFlags.quiet,
	}
	if batch {
		err = ex.batch(ctx, reqs)
	} else {
		err = ex.single(ctx, reqs[0])
	}

	if serving {
		fmt.Fprintf(cmd.ErrOrStderr(), "Serving telemetry on %s (Ctrl+C to stop)\n", cfg.Telemetry.Metrics.Listen)
		<-ctx.Done()
	}
	return err
}

// buildRequests assembles the requests from the argument, the request or
// batch file and the flag overrides. changed reports whether a flag was set
// on the command line.
func buildRequests(args []string, stdin io.Reader, changed func(string) bool) ([]requestFile, bool, error) {
	var (
		reqs  []requestFile
		batch bool
		err   error
	)
	switch {
	case runFlags.batch != "":
		if runFlags.file != "" || len(args) > 0 {
			return nil, false, cli.NewConfigError("batch", "--batch cannot be combined with --file or a template argument")
		}
		batch = true
		reqs, err = loadRequests(runFlags.batch, stdin, true)
	case runFlags.file != "":
		if len(args) > 0 {
			return nil, false, cli.NewConfigError("file", "--file cannot be combined with a template argument")
		}
		reqs, err = loadRequests(runFlags.file, stdin, false)
	case len(args) == 1:
		reqs = []requestFile{{Request: pipeline.Request{Template: args[0]}}}
	default:
		return nil, false, cli.NewConfigError("template", "a template argument, --file or --batch is required")
	}
	if err != nil {
		return nil, false, err
	}

	if err := applyRunFlags(reqs, changed); err != nil {
		return nil, false, err
	}
	return reqs, batch, nil
}

func applyRunFlags(reqs []requestFile, changed func(string) bool) error {
	vars, err := parseVars(runFlags.vars)
	if err != nil {
		return err
	}

	var sch *schema.Schema
	if runFlags.schema != "" {
		if sch, err = schema.LoadFile(runFlags.schema); err != nil {
			return cli.NewConfigError("schema", err.Error())
		}
	}

	for i := range reqs {
		rf := &reqs[i]
		if rf.Provider == "" || changed("provider") {
			rf.Provider = runFlags.provider
		}
		if changed("model") {
			rf.Model = runFlags.model
		}
		if len(vars) > 0 {
			merged := maps.Clone(rf.Variables)
			if merged == nil {
				merged = make(map[string]string, len(vars))
			}
			maps.Copy(merged, vars)
			rf.Variables = merged
		}
		if sch != nil {
			rf.Schema = sch
			rf.Options.ExpectJSON = true
			rf.Options.ValidateJSON = true
		}

		o := &rf.Options
		if changed("system") {
			o.System = runFlags.system
		}
		if changed("expect-json") {
			o.ExpectJSON = runFlags.expectJSON
		}
		if changed("validate-json") {
			o.ValidateJSON = runFlags.validate
		}
		if changed("error-on-invalid-json") {
			o.ErrorOnInvalidJSON = runFlags.strictJSON
		}
		if changed("lenient") {
			o.Lenient = runFlags.lenient
		}
		if changed("max-tokens") {
			o.MaxTokens = runFlags.maxTokens
		}
		if changed("temperature") {
			t := runFlags.temperature
			o.Temperature = &t
		}
		if changed("timeout") {
			d := runFlags.timeout
			o.Timeout = &d
		}
		if changed("no-retry") {
			retryOnFail := !runFlags.noRetry
			o.RetryOnFail = &retryOnFail
		}
	}
	return nil
}

// openOutput returns the file named by path, or def when path is empty.
func openOutput(path string, def io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return def, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, cli.NewCommandError("output", fmt.Errorf("failed to create output file: %w", err))
	}
	return f, func() { _ = f.Close() }, nil
}

// executor runs requests through the app's pipeline and prints results.
type executor struct {
	app         *app
	format      cli.OutputFormat
	out         io.Writer
	errOut      io.Writer
	concurrency int
	progress    bool
}

func (e *executor) single(ctx context.Context, rf requestFile) error {
	pc, err := rf.providerConfig(e.app.cfg)
	if err != nil {
		return err
	}

	res, err := e.app.pipeline.Execute(ctx, &rf.Request, pc)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	switch e.format {
	case cli.FormatJSON:
		return cli.NewFormatter(e.format).FormatTo(e.out, newRunOutput(res))
	case cli.FormatCSV:
		return cli.NewFormatter(e.format).FormatTo(e.out, resultTable{{index: 0, result: res}})
	}

	if res.ParseError != nil {
		fmt.Fprintf(e.errOut, "warning: answer is not valid JSON: %v\n", res.ParseError)
	}
	if res.Validation != nil {
		for _, issue := range res.Validation.Issues {
			fmt.Fprintf(e.errOut, "%s: %s\n", issue.Severity, issue)
		}
	}
	_, err = fmt.Fprintln(e.out, answer(res, true))
	return err
}

func (e *executor) batch(ctx context.Context, reqs []requestFile) error {
	items := make([]pipeline.BatchItem, len(reqs))
	for i := range reqs {
		pc, err := reqs[i].providerConfig(e.app.cfg)
		if err != nil {
			return fmt.Errorf("request %d: %w", i, err)
		}
		items[i] = pipeline.BatchItem{Request: &reqs[i].Request, Provider: pc}
	}

	var (
		opts     []pipeline.BatchOption
		progress *cli.SimpleProgress
	)
	if e.progress {
		progress = cli.NewProgressReporter(e.errOut)
		progress.Start(len(items))
		opts = append(opts, pipeline.OnResult(func(r pipeline.BatchResult) {
			progress.Done(r.Err != nil)
		}))
	}

	results := e.app.pipeline.ExecuteBatch(ctx, items, e.concurrency, opts...)
	if progress != nil {
		progress.Finish()
	}

	failed := 0
	table := make(resultTable, len(results))
	outputs := make([]batchOutput, len(results))
	for i, r := range results {
		table[i] = resultRow{index: r.Index, result: r.Result, err: r.Err}
		outputs[i] = batchOutput{Index: r.Index}
		if r.Err != nil {
			failed++
			outputs[i].Code = codes.Of(r.Err).Name()
			outputs[i].Error = r.Err.Error()
		} else {
			outputs[i].Result = newRunOutput(r.Result)
		}
	}

	var err error
	if e.format == cli.FormatJSON {
		err = cli.NewFormatter(e.format).FormatTo(e.out, outputs)
	} else {
		err = cli.NewFormatter(e.format).FormatTo(e.out, table)
	}
	if err != nil {
		return err
	}

	if failed > 0 {
		return cli.NewCommandError("run", fmt.Errorf("%d of %d requests failed", failed, len(results)))
	}
	return nil
}

// runOutput is the JSON form of a result.
type runOutput struct {
	*pipeline.Result
	ParseError string `json:"parse_error,omitempty"`
}

func newRunOutput(res *pipeline.Result) *runOutput {
	out := &runOutput{Result: res}
	if res.ParseError != nil {
		out.ParseError = res.ParseError.Error()
	}
	return out
}

type batchOutput struct {
	Index  int        `json:"index"`
	Code   string     `json:"code,omitempty"`
	Error  string     `json:"error,omitempty"`
	Result *runOutput `json:"result,omitempty"`
}

type resultRow struct {
	index  int
	result *pipeline.Result
	err    error
}

// resultTable renders results as rows for the text and CSV formats.
type resultTable []resultRow

func (t resultTable) Header() []string {
	return []string{"INDEX", "REQUEST_ID", "STATUS", "CODE", "ATTEMPTS", "OUTPUT"}
}

func (t resultTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		if r.err != nil {
			rows = append(rows, []string{
				strconv.Itoa(r.index), "", "error", codes.Of(r.err).Name(), "", truncate(r.err.Error(), 80),
			})
			continue
		}
		rows = append(rows, []string{
			strconv.Itoa(r.index),
			r.result.RequestID,
			"success",
			"",
			strconv.Itoa(r.result.Attempts),
			truncate(answer(r.result, false), 80),
		})
	}
	return rows
}

// answer returns the parsed value as JSON when there is one, the raw
// content otherwise.
func answer(res *pipeline.Result, indent bool) string {
	if res.Parsed == nil {
		if res.Raw == nil {
			return ""
		}
		return res.Raw.Content
	}
	var (
		b   []byte
		err error
	)
	if indent {
		b, err = json.MarshalIndent(res.Parsed, "", "  ")
	} else {
		b, err = json.Marshal(res.Parsed)
	}
	if err != nil {
		return res.Raw.Content
	}
	return string(b)
}

// truncate collapses whitespace and cuts s to n runes.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}
