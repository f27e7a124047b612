package main

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"ajala-hq/ajala/pkg/cli"
	"ajala-hq/ajala/pkg/template"
	"ajala-hq/ajala/pkg/tokens"
)

var renderFlags struct {
	file    string
	vars    []string
	lenient bool
	list    bool
	tokens  bool
	model   string
	system  string
}

var renderCmd = &cobra.Command{
	Use:   "render [template]",
	Short: "Render a prompt template without calling a provider",
	Long: `Substitute {{name}} placeholders and print the resulting prompt.

Examples:
  ajala render "Hello {{name}}" --var name=Ada

  # Keep placeholders without a value
  ajala render --file prompt.txt --lenient

  # List the template's variables and which are missing
  ajala render --file prompt.txt --var name=Ada --list

  # Estimate the token count for a model (printed to stderr)
  ajala render --file prompt.txt --tokens --model gpt-4o`,
	Args: cobra.MaximumNArgs(1),
	RunE: renderTemplate,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderFlags.file, "file", "f", "", "template file (- for stdin)")
	renderCmd.Flags().StringArrayVar(&renderFlags.vars, "var", nil, "template variable name=value (repeatable)")
	renderCmd.Flags().BoolVar(&renderFlags.lenient, "lenient", false, "leave unresolved placeholders in place")
	renderCmd.Flags().BoolVar(&renderFlags.list, "list", false, "list variables instead of rendering")
	renderCmd.Flags().BoolVar(&renderFlags.tokens, "tokens", false, "print a token estimate to stderr")
	renderCmd.Flags().StringVar(&renderFlags.model, "model", "", "model whose ratio the estimate uses")
	renderCmd.Flags().StringVar(&renderFlags.system, "system", "", "system instruction counted in the estimate")
}

func renderTemplate(cmd *cobra.Command, args []string) error {
	tpl, err := readTemplate(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	vars, err := parseVars(renderFlags.vars)
	if err != nil {
		return err
	}

	if renderFlags.list {
		return cli.NewFormatter(cli.FormatText).FormatTo(cmd.OutOrStdout(), newVariableTable(tpl, vars))
	}

	var opts []template.Option
	if renderFlags.lenient {
		opts = append(opts, template.WithLenient())
	}
	prompt, err := template.Render(tpl, vars, opts...)
	if err != nil {
		return cli.NewCommandError("render", err)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), prompt); err != nil {
		return err
	}
	if renderFlags.tokens {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		est := tokens.New(cfg.Tokens).Prompt(prompt, renderFlags.system, renderFlags.model, 0)
		writeEstimate(cmd.ErrOrStderr(), est)
	}
	return nil
}

func writeEstimate(w io.Writer, est *tokens.Estimate) {
	model := est.Model
	if model == "" {
		model = tokens.DefaultModel
	}
	fmt.Fprintf(w, "~%d input tokens (%s: prompt %d, system %d, overhead %d), ~%d with completion\n",
		est.InputTokens, model, est.PromptTokens, est.SystemTokens, est.OverheadTokens, est.TotalTokens)
}

func readTemplate(args []string, stdin io.Reader) (string, error) {
	switch {
	case renderFlags.file != "" && len(args) > 0:
		return "", cli.NewConfigError("file", "--file cannot be combined with a template argument")
	case renderFlags.file == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", cli.NewCommandError("render", err)
		}
		return string(b), nil
	case renderFlags.file != "":
		b, err := os.ReadFile(renderFlags.file)
		if err != nil {
			return "", cli.NewConfigError("file", err.Error())
		}
		return string(b), nil
	case len(args) == 1:
		return args[0], nil
	default:
		return "", cli.NewConfigError("template", "a template argument or --file is required")
	}
}

// variableTable lists a template's placeholders and whether each is bound.
type variableTable struct {
	names   []string
	missing []string
}

func newVariableTable(tpl string, vars map[string]string) variableTable {
	return variableTable{
		names:   template.Variables(tpl),
		missing: template.Missing(tpl, vars),
	}
}

func (t variableTable) Header() []string {
	return []string{"VARIABLE", "STATUS"}
}

func (t variableTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.names))
	for _, name := range t.names {
		status := "set"
		if slices.Contains(t.missing, name) {
			status = "missing"
		}
		rows = append(rows, []string{name, status})
	}
	return rows
}
