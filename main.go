package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Vitruves/abtest-report/internal/cli"
	"github.com/Vitruves/abtest-report/internal/config"
	"github.com/Vitruves/abtest-report/internal/logger"
	"github.com/Vitruves/abtest-report/internal/models"
	"github.com/Vitruves/abtest-report/internal/processor"
	"github.com/Vitruves/abtest-report/internal/utils"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "abtest-report",
		Short: color.New(color.FgCyan, color.Bold).Sprint("A/B test analysis for bank marketing campaigns"),
		Long: color.New(color.FgHiBlue, color.Bold).Sprint("abtest-report") +
			color.New(color.FgWhite).Sprint(" - A/B test analysis for bank marketing campaigns\n\n") +
			color.New(color.FgGreen, color.Bold).Sprint("Features:\n") +
			color.New(color.FgYellow).Sprint("• Seeded A/B split of campaign contacts\n") +
			color.New(color.FgYellow).Sprint("• Chi-square and one-sided two-proportion z-tests\n") +
			color.New(color.FgYellow).Sprint("• Uplift and revenue impact estimates\n") +
			color.New(color.FgYellow).Sprint("• Bayesian probability of being best\n") +
			color.New(color.FgYellow).Sprint("• Charts, text report and exports (CSV, JSON, Parquet, Excel)"),
		Version:       version,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
				cli.SetColorEnabled(false)
			}
		},
	}

	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: color.New(color.FgGreen, color.Bold).Sprint("Run the A/B test analysis on a dataset"),
		Long: color.New(color.FgHiBlue, color.Bold).Sprint("Load, split, test and report on a marketing dataset\n\n") +
			color.New(color.FgMagenta, color.Bold).Sprint("Outputs:\n") +
			color.New(color.FgCyan).Sprint("• conversion_rates.png and age_distribution.png\n") +
			color.New(color.FgCyan).Sprint("• ab_test_report.txt\n") +
			color.New(color.FgCyan).Sprint("• ab_test_results.csv (or --format)\n\n") +
			color.New(color.FgMagenta, color.Bold).Sprint("Examples:\n") +
			color.New(color.FgYellow).Sprint("  abtest-report run -i bank-full.csv\n") +
			color.New(color.FgYellow).Sprint("  abtest-report run -c config.yaml -i bank-full.csv -o out --format parquet\n") +
			color.New(color.FgYellow).Sprint("  abtest-report run -i bank-full.csv --seed 7 --no-bayes --summary-format json"),
		RunE: runAnalysis,
	}

	cmd.Flags().StringP("config", "c", "config.yaml", "Configuration file path (defaults apply when missing)")
	cmd.Flags().StringP("input", "i", "", "Input data file (CSV/JSON/Excel/Parquet)")
	cmd.Flags().StringP("output", "o", "", "Output directory (overrides config)")
	cmd.Flags().Int64("seed", 0, "Random seed for group assignment (overrides config)")
	cmd.Flags().Bool("no-bayes", false, "Skip the Bayesian analysis")
	cmd.Flags().String("format", "", "Export format: csv, json, parquet, xlsx (overrides config)")
	cmd.Flags().String("summary-format", "", "Also write a summary: json, csv, parquet, xlsx, text")
	cmd.Flags().BoolP("verbose", "v", false, "Enable verbose output")

	return cmd
}

func newConfigCmd() *cobra.Command {
	var configCmd = &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
		Long:  "Validate configuration files and print the effective configuration",
	}

	configCmd.AddCommand(newConfigValidateCmd())
	configCmd.AddCommand(newConfigShowCmd())

	return configCmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate configuration file",
		Long: `Validate configuration file and print a summary.

Examples:
  abtest-report config validate config.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: runConfigValidate,
	}
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}

	cmd.Flags().StringP("config", "c", "", "Configuration file path (defaults when empty)")

	return cmd
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	inputFile, _ := cmd.Flags().GetString("input")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if verbose {
		logger.SetVerbose(true)
	}

	cfg, err := config.LoadOrDefault(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := applyOverrides(cmd, cfg); err != nil {
		return err
	}

	if inputFile == "" {
		inputFile = cfg.Input.File
	}
	if inputFile == "" {
		return fmt.Errorf("no input file: pass --input or set input.file")
	}
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", inputFile)
	}

	// usage is noise once the arguments are known to be valid
	cmd.SilenceUsage = true

	if verbose {
		printConfigSummary(cfg, configFile)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli.PrintInfo("Starting analysis: %s", inputFile)

	proc := processor.New(cfg)
	if _, err := proc.Run(ctx, processor.Options{InputFile: inputFile, Verbose: verbose}); err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("analysis interrupted: %w", err)
		}
		return fmt.Errorf("analysis failed: %w", err)
	}

	for _, a := range proc.Artifacts() {
		cli.PrintArtifact(a.Kind, a.Path)
	}
	cli.PrintSuccess("Analysis completed successfully")
	return nil
}

// applyOverrides copies changed run flags onto cfg and re-validates it.
func applyOverrides(cmd *cobra.Command, cfg *models.Config) error {
	flags := cmd.Flags()

	if outputDir, _ := flags.GetString("output"); outputDir != "" {
		cfg.Output.Directory = outputDir
	}
	if flags.Changed("seed") {
		seed, _ := flags.GetInt64("seed")
		cfg.Experiment.Seed = seed
		cfg.Bayes.Seed = seed
	}
	if noBayes, _ := flags.GetBool("no-bayes"); noBayes {
		enabled := false
		cfg.Bayes.Enabled = &enabled
	}
	if format, _ := flags.GetString("format"); format != "" {
		cfg.Output.ExportFormat = format
		cfg.Output.ExportFile = utils.ReplaceExt(cfg.Output.ExportFile, format)
	}
	if summary, _ := flags.GetString("summary-format"); summary != "" {
		cfg.Output.SummaryFormat = summary
		if cfg.Output.SummaryFile == "" {
			cfg.Output.SummaryFile = "ab_test_summary." + summaryExt(summary)
		} else {
			cfg.Output.SummaryFile = utils.ReplaceExt(cfg.Output.SummaryFile, summaryExt(summary))
		}
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

func summaryExt(format string) string {
	if format == "text" {
		return "txt"
	}
	return format
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configFile := args[0]

	logger.Header("Configuration Validation")
	logger.Info("Validating: %s", configFile)

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("✓ Configuration loaded successfully")
	printConfigSummary(cfg, configFile)

	logger.Success("Configuration validation completed")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")

	cfg, err := config.LoadOrDefault(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}

	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func printConfigSummary(cfg *models.Config, configFile string) {
	logger.Header("Configuration Summary")
	logger.Info("Config File: %s", configFile)
	logger.Info("Experiment: seed %d, campaign %d, split %.2f, positive label %q",
		cfg.Experiment.Seed, cfg.Experiment.CampaignFilter(), cfg.Experiment.Split, cfg.Experiment.PositiveLabel)
	logger.Info("Analysis: alpha %.3f, %d age bins, Yates correction %t",
		cfg.Analysis.Alpha, cfg.Analysis.AgeBins, cfg.Analysis.CorrectionEnabled())
	logger.Info("Business: $%.0f per conversion, scaled x%.0f (%s)",
		cfg.Business.CustomerValue, cfg.Business.ScaleFactor, cfg.Business.ScaleLabel)
	if cfg.Bayes.IsEnabled() {
		logger.Info("Bayes: %d simulations, Beta(%.2f, %.2f) prior", cfg.Bayes.Simulations, cfg.Bayes.PriorAlpha, cfg.Bayes.PriorBeta)
	} else {
		logger.Info("Bayes: disabled")
	}
	logger.Info("Output: %s export to %s", cfg.Output.ExportFormat, cfg.Output.Directory)
}
