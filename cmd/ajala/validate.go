package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ajala-hq/ajala/pkg/cli"
	"ajala-hq/ajala/pkg/pipeline"
	"ajala-hq/ajala/pkg/schema"
)

var validateFlags struct {
	schema string
	strict bool
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate [document]",
	Short: "Validate a JSON document against a schema",
	Long: `Parse a JSON document, validate it against a YAML or JSON schema and print
the issues, the transformations applied and the resulting value.

The JSON options (coercion, defaults, auto-fix) come from the configuration;
--strict turns coercion, defaults and removal off. The document is read from
stdin when no path is given.

Examples:
  ajala validate --schema user.yaml response.json
  echo '{"age":"30"}' | ajala validate --schema user.yaml --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: validateDocument,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.schema, "schema", "s", "", "schema file, YAML or JSON (required)")
	validateCmd.Flags().BoolVar(&validateFlags.strict, "strict", false, "disable coercion, defaults and removal")
	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
	_ = validateCmd.MarkFlagRequired("schema")
}

func validateDocument(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(validateFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return cli.NewConfigError("format", "validate supports text and json output")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts := cfg.Runtime().JSON
	if cmd.Flags().Changed("strict") {
		opts.Strict = validateFlags.strict
	}

	sch, err := schema.LoadFile(validateFlags.schema)
	if err != nil {
		return cli.NewConfigError("schema", err.Error())
	}
	if err := sch.CheckWithLimits(opts.Limits); err != nil {
		return cli.NewConfigError("schema", err.Error())
	}

	var data []byte
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return cli.NewCommandError("validate", fmt.Errorf("failed to read document: %w", err))
	}

	value, err := pipeline.ParseJSON(string(data), opts.AutoFix)
	if err != nil {
		return cli.NewCommandError("validate", err)
	}

	res := schema.Validate(value, sch, opts)
	if format == cli.FormatJSON {
		err = cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), res)
	} else {
		err = writeValidation(cmd.OutOrStdout(), res)
	}
	if err != nil {
		return err
	}

	if verr := res.Err(); verr != nil {
		return cli.NewCommandError("validate", verr)
	}
	return nil
}

func writeValidation(w io.Writer, res *schema.Result) error {
	if res.Valid {
		fmt.Fprintln(w, "✓ Document is valid")
	} else {
		fmt.Fprintf(w, "✗ Document is invalid (%d error(s))\n", len(res.Errors()))
	}

	if len(res.Issues) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Issues:")
		for _, issue := range res.Issues {
			fmt.Fprintf(w, "  [%s] %s\n", issue.Severity, issue)
		}
	}

	if len(res.Transformations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Transformations:")
		for _, t := range res.Transformations {
			fmt.Fprintf(w, "  %s %s: %v -> %v\n", t.Kind, schema.PathString(t.Path), t.From, t.To)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Value:")
	return cli.NewFormatter(cli.FormatJSON).FormatTo(w, res.Value)
}
