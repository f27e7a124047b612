package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ajala-hq/ajala/pkg/cli"
	"ajala-hq/ajala/pkg/config"
	"ajala-hq/ajala/pkg/telemetry/logging"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
	Long: `Inspect the effective configuration: the config file (or defaults when
--config is not set) with AJALA_* environment overrides applied.

Subcommands:
  validate - Load and validate the configuration
  show     - Print the effective configuration with credentials masked`,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration and report every invalid field.

Examples:
  ajala config validate --config ajala.yaml
  AJALA_SETTINGS_MAX_RETRIES=0 ajala config validate`,
	Args: cobra.NoArgs,
	RunE: validateConfig,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  showConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd, configShowCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	source := cfgFile
	if source == "" {
		source = "defaults"
	}
	fmt.Fprintf(out, "✓ Configuration valid (%s)\n", source)
	fmt.Fprintf(out, "  Retries:    %d (retry on fail: %v)\n", cfg.Settings.MaxRetries, cfg.Settings.RetryOnFail)
	fmt.Fprintf(out, "  Timeout:    %s\n", cfg.Settings.Timeout)
	fmt.Fprintf(out, "  Providers:  %v\n", configuredProviders(cfg))
	fmt.Fprintf(out, "  Journal:    %s\n", enabledString(cfg.Journal.Enabled, cfg.Journal.Backend))
	fmt.Fprintf(out, "  Metrics:    %s\n", enabledString(cfg.Telemetry.Metrics.Enabled, cfg.Telemetry.Metrics.Listen))
	fmt.Fprintf(out, "  Tracing:    %s\n", enabledString(cfg.Telemetry.Tracing.Enabled, cfg.Telemetry.Tracing.Endpoint))
	return nil
}

// configuredProviders lists the providers that have credentials, sorted.
func configuredProviders(cfg *config.Config) []string {
	var names []string
	for _, name := range slices.Sorted(maps.Keys(cfg.Providers)) {
		if cfg.Providers[name].APIKey != "" {
			names = append(names, name)
		}
	}
	return names
}

func enabledString(enabled bool, detail string) string {
	if !enabled {
		return "disabled"
	}
	if detail == "" {
		return "enabled"
	}
	return "enabled (" + detail + ")"
}

func showConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	masked := *cfg
	masked.Providers = make(map[string]config.ProviderConfig, len(cfg.Providers))
	for name, p := range cfg.Providers {
		p.APIKey = logging.RedactSecret(p.APIKey)
		masked.Providers[name] = p
	}

	data, err := yaml.Marshal(&masked)
	if err != nil {
		return cli.NewCommandError("config", fmt.Errorf("failed to encode config: %w", err))
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
