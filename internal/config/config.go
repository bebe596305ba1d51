package config

import (
	"fmt"
	"os"

	"github.com/Vitruves/abtest-report/internal/models"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config, expands ${ENV} references, then applies defaults
// and validation.
func Load(filename string) (*models.Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	content := os.ExpandEnv(string(data))

	var cfg models.Config
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	setDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given. It matches
// the bank marketing campaign defaults.
func Default() *models.Config {
	var cfg models.Config
	setDefaults(&cfg)
	return &cfg
}

// LoadOrDefault loads filename when it exists and falls back to Default
// when the path is empty or missing.
func LoadOrDefault(filename string) (*models.Config, error) {
	if filename == "" {
		return Default(), nil
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(filename)
}

// Marshal renders cfg back to YAML, used by `config show`.
func Marshal(cfg *models.Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

func setDefaults(cfg *models.Config) {
	if cfg.Input.Delimiter == "" {
		cfg.Input.Delimiter = ";"
	}

	// seed 0 is treated as unset
	if cfg.Experiment.Seed == 0 {
		cfg.Experiment.Seed = 42
	}
	if cfg.Experiment.Campaign == nil {
		campaign := 1
		cfg.Experiment.Campaign = &campaign
	}
	if cfg.Experiment.PositiveLabel == "" {
		cfg.Experiment.PositiveLabel = "yes"
	}
	if cfg.Experiment.Split == 0 {
		cfg.Experiment.Split = 0.5
	}

	if cfg.Analysis.AgeBins == 0 {
		cfg.Analysis.AgeBins = 5
	}
	if cfg.Analysis.HistBins == 0 {
		cfg.Analysis.HistBins = 20
	}
	if cfg.Analysis.Alpha == 0 {
		cfg.Analysis.Alpha = 0.05
	}
	if cfg.Analysis.Confidence == 0 {
		cfg.Analysis.Confidence = 0.95
	}
	if cfg.Analysis.ConversionYMax == 0 {
		cfg.Analysis.ConversionYMax = 0.2
	}

	if cfg.Business.CustomerValue == 0 {
		cfg.Business.CustomerValue = 100
	}
	if cfg.Business.ScaleFactor == 0 {
		cfg.Business.ScaleFactor = 10
	}
	if cfg.Business.ScaleLabel == "" {
		cfg.Business.ScaleLabel = "10k"
	}

	if cfg.Bayes.Simulations == 0 {
		cfg.Bayes.Simulations = 10000
	}
	if cfg.Bayes.PriorAlpha == 0 {
		cfg.Bayes.PriorAlpha = 0.5
	}
	if cfg.Bayes.PriorBeta == 0 {
		cfg.Bayes.PriorBeta = 0.5
	}
	// Bayes draws follow the experiment seed unless set explicitly
	if cfg.Bayes.Seed == 0 {
		cfg.Bayes.Seed = cfg.Experiment.Seed
	}

	if cfg.Output.Directory == "" {
		cfg.Output.Directory = "."
	}
	if cfg.Output.ReportFile == "" {
		cfg.Output.ReportFile = "ab_test_report.txt"
	}
	if cfg.Output.ExportFormat == "" {
		cfg.Output.ExportFormat = "csv"
	}
	if cfg.Output.ExportFile == "" {
		cfg.Output.ExportFile = "ab_test_results." + cfg.Output.ExportFormat
	}
	if cfg.Output.ConversionChart == "" {
		cfg.Output.ConversionChart = "conversion_rates.png"
	}
	if cfg.Output.AgeChart == "" {
		cfg.Output.AgeChart = "age_distribution.png"
	}
	if cfg.Output.SummaryFormat != "" && cfg.Output.SummaryFile == "" {
		ext := cfg.Output.SummaryFormat
		if ext == "text" {
			ext = "txt"
		}
		cfg.Output.SummaryFile = "ab_test_summary." + ext
	}

	if cfg.Report.Title == "" {
		cfg.Report.Title = "BANK MARKETING CAMPAIGN"
	}
}

// Validate checks ranges and enumerations. Exported so CLI overrides can be
// re-checked after they are applied.
func Validate(cfg *models.Config) error {
	if len([]rune(cfg.Input.Delimiter)) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", cfg.Input.Delimiter)
	}

	if cfg.Experiment.CampaignFilter() < 0 {
		return fmt.Errorf("campaign filter must be >= 0")
	}
	if cfg.Experiment.Split <= 0 || cfg.Experiment.Split >= 1 {
		return fmt.Errorf("split must be between 0 and 1 (exclusive)")
	}

	if cfg.Analysis.AgeBins < 1 {
		return fmt.Errorf("age_bins must be at least 1")
	}
	if cfg.Analysis.HistBins < 1 {
		return fmt.Errorf("hist_bins must be at least 1")
	}
	if cfg.Analysis.Alpha <= 0 || cfg.Analysis.Alpha >= 1 {
		return fmt.Errorf("alpha must be between 0 and 1 (exclusive)")
	}
	if cfg.Analysis.Confidence <= 0 || cfg.Analysis.Confidence >= 1 {
		return fmt.Errorf("confidence must be between 0 and 1 (exclusive)")
	}
	if cfg.Analysis.ConversionYMax <= 0 || cfg.Analysis.ConversionYMax > 1 {
		return fmt.Errorf("conversion_y_max must be in (0, 1]")
	}

	if cfg.Business.ScaleFactor <= 0 {
		return fmt.Errorf("scale_factor must be positive")
	}

	if cfg.Bayes.Simulations < 1 {
		return fmt.Errorf("bayes simulations must be at least 1")
	}
	if cfg.Bayes.PriorAlpha <= 0 || cfg.Bayes.PriorBeta <= 0 {
		return fmt.Errorf("bayes priors must be positive")
	}

	validExports := map[string]bool{"csv": true, "json": true, "parquet": true, "xlsx": true}
	if !validExports[cfg.Output.ExportFormat] {
		return fmt.Errorf("unsupported export format: %s", cfg.Output.ExportFormat)
	}

	if cfg.Output.SummaryFormat != "" {
		validSummaries := map[string]bool{"json": true, "csv": true, "parquet": true, "xlsx": true, "text": true}
		if !validSummaries[cfg.Output.SummaryFormat] {
			return fmt.Errorf("unsupported summary format: %s", cfg.Output.SummaryFormat)
		}
	}

	return nil
}
