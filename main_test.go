package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Vitruves/abtest-report/internal/config"
	"github.com/Vitruves/abtest-report/internal/models"
)

func TestApplyOverrides(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expectError bool
		validate    func(*testing.T, *models.Config)
	}{
		{
			name: "no flags keeps defaults",
			args: nil,
			validate: func(t *testing.T, cfg *models.Config) {
				if cfg.Experiment.Seed != 42 || cfg.Output.ExportFile != "ab_test_results.csv" {
					t.Errorf("Defaults changed: seed %d, export %s", cfg.Experiment.Seed, cfg.Output.ExportFile)
				}
				if !cfg.Bayes.IsEnabled() {
					t.Error("Bayes should stay enabled")
				}
			},
		},
		{
			name: "format changes export extension",
			args: []string{"--format", "parquet", "-o", "out"},
			validate: func(t *testing.T, cfg *models.Config) {
				if cfg.Output.ExportFormat != "parquet" || cfg.Output.ExportFile != "ab_test_results.parquet" {
					t.Errorf("Unexpected export %s / %s", cfg.Output.ExportFormat, cfg.Output.ExportFile)
				}
				if cfg.Output.Directory != "out" {
					t.Errorf("Expected output dir out, got %s", cfg.Output.Directory)
				}
			},
		},
		{
			name: "seed and no-bayes",
			args: []string{"--seed", "7", "--no-bayes"},
			validate: func(t *testing.T, cfg *models.Config) {
				if cfg.Experiment.Seed != 7 || cfg.Bayes.Seed != 7 {
					t.Errorf("Expected seed 7, got %d / %d", cfg.Experiment.Seed, cfg.Bayes.Seed)
				}
				if cfg.Bayes.IsEnabled() {
					t.Error("Bayes should be disabled")
				}
			},
		},
		{
			name: "summary format",
			args: []string{"--summary-format", "text"},
			validate: func(t *testing.T, cfg *models.Config) {
				if cfg.Output.SummaryFormat != "text" || cfg.Output.SummaryFile != "ab_test_summary.txt" {
					t.Errorf("Unexpected summary %s / %s", cfg.Output.SummaryFormat, cfg.Output.SummaryFile)
				}
			},
		},
		{
			name:        "unknown format",
			args:        []string{"--format", "yaml"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRunCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("Failed to parse flags: %v", err)
			}

			cfg := config.Default()
			err := applyOverrides(cmd, cfg)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			tt.validate(t, cfg)
		})
	}
}

func TestConfigShow(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "show", "-c", filepath.Join(t.TempDir(), "missing.yaml")})

	if err := root.Execute(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, want := range []string{"seed: 42", "positive_label:", "export_format: csv"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out.String())
		}
	}
}
