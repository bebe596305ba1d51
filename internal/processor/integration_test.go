package processor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Vitruves/abtest-report/internal/loader"
	"github.com/Vitruves/abtest-report/internal/utils"
)

// TestProcessorFormats runs the whole pipeline once per export and summary
// format and reloads what was written.
func TestProcessorFormats(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping format matrix in short mode")
	}

	input := createTestData(t, 400, everySeventh)

	formats := []struct {
		export  string
		summary string
	}{
		{"csv", "json"},
		{"json", "csv"},
		{"parquet", "parquet"},
		{"xlsx", "xlsx"},
		{"csv", "text"},
	}

	for _, tt := range formats {
		t.Run(tt.export+"_"+tt.summary, func(t *testing.T) {
			cfg := createTestConfig(t)
			cfg.Output.ExportFormat = tt.export
			cfg.Output.ExportFile = utils.ReplaceExt(cfg.Output.ExportFile, tt.export)
			cfg.Output.SummaryFormat = tt.summary
			cfg.Output.SummaryFile = "ab_test_summary." + tt.summary

			proc := New(cfg)
			analysis, err := proc.Run(context.Background(), Options{InputFile: input})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}

			exported, err := loader.LoadRecords(filepath.Join(cfg.Output.Directory, cfg.Output.ExportFile), ",")
			if err != nil {
				t.Fatalf("Failed to reload export: %v", err)
			}
			if exported.Len() != analysis.TotalSamples {
				t.Errorf("Export has %d rows, expected %d", exported.Len(), analysis.TotalSamples)
			}
			for _, r := range exported.Records {
				if r.Campaign != 1 || (r.Group != "A" && r.Group != "B") {
					t.Fatalf("Unexpected exported row %+v", r)
				}
			}

			summary := filepath.Join(cfg.Output.Directory, cfg.Output.SummaryFile)
			info, err := os.Stat(summary)
			if err != nil || info.Size() == 0 {
				t.Fatalf("Summary missing or empty: %v", err)
			}

			if tt.summary == "json" {
				data, _ := os.ReadFile(summary)
				var decoded map[string]interface{}
				if err := json.Unmarshal(data, &decoded); err != nil {
					t.Errorf("Summary is not valid JSON: %v", err)
				}
			}

			if got := len(proc.Artifacts()); got != 5 {
				t.Errorf("Expected 5 artifacts, got %d", got)
			}
		})
	}
}
