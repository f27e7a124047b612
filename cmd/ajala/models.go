package main

import (
	"github.com/spf13/cobra"

	"ajala-hq/ajala/pkg/cli"
	"ajala-hq/ajala/pkg/providers"
	"ajala-hq/ajala/pkg/providers/registry"
)

var modelsFlags struct {
	provider string
	format   string
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List providers and their supported models",
	Long: `List the model catalog: the built-in defaults merged with the providers
section of the configuration.

Examples:
  ajala models
  ajala models --provider openai --format json`,
	Args: cobra.NoArgs,
	RunE: listModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)

	modelsCmd.Flags().StringVarP(&modelsFlags.provider, "provider", "p", "", "only this provider")
	modelsCmd.Flags().StringVar(&modelsFlags.format, "format", "text", "output format: text, json, csv")
}

// providerModels is the catalog entry of one provider as printed by the
// models command.
type providerModels struct {
	Provider     providers.Name `json:"provider"`
	BaseURL      string         `json:"base_url,omitempty"`
	DefaultModel string         `json:"default_model"`
	Models       []string       `json:"models"`
}

type modelTable []providerModels

func (t modelTable) Header() []string {
	return []string{"PROVIDER", "MODEL", "DEFAULT"}
}

func (t modelTable) Rows() [][]string {
	var rows [][]string
	for _, p := range t {
		for _, m := range p.Models {
			def := ""
			if m == p.DefaultModel {
				def = "*"
			}
			rows = append(rows, []string{string(p.Provider), m, def})
		}
	}
	return rows
}

func listModels(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(modelsFlags.format)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg := registry.New(cfg.Catalog())
	defer reg.Close()

	names := reg.Names()
	if modelsFlags.provider != "" {
		name, err := providers.ParseName(modelsFlags.provider)
		if err != nil {
			return cli.NewConfigError("provider", err.Error())
		}
		names = []providers.Name{name}
	}

	table := make(modelTable, 0, len(names))
	for _, name := range names {
		e, err := reg.Entry(name)
		if err != nil {
			return cli.NewCommandError("models", err)
		}
		table = append(table, providerModels{
			Provider:     name,
			BaseURL:      e.BaseURL,
			DefaultModel: e.DefaultModel,
			Models:       e.Models,
		})
	}

	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), []providerModels(table))
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), table)
}
