package reporter

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Vitruves/abtest-report/internal/config"
	"github.com/Vitruves/abtest-report/internal/models"

	"github.com/xuri/excelize/v2"
)

func createTestAnalysis(pValue float64) *models.Analysis {
	return &models.Analysis{
		RunID:        "test-run",
		Date:         time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		InputFile:    "bank-full.csv",
		TotalSamples: 17544,
		OverallRate:  0.146,
		Groups: []models.GroupSummary{
			{Group: "A", SampleSize: 8790, Conversions: 1231, ConversionRate: 0.14},
			{Group: "B", SampleSize: 8754, Conversions: 1330, ConversionRate: 0.152},
		},
		AgeBins: []models.BinSummary{
			{Label: "(17.923, 33.6]", Count: 100, MeanRate: 0.12},
			{Label: "(33.6, 49.2]", Count: 0, MeanRate: math.NaN()},
		},
		ChiSquare: models.ChiSquareResult{Statistic: 4.1, PValue: 0.043, DegreesOfFreedom: 1, Corrected: true},
		ZTest:     models.ZTestResult{Statistic: 2.2, PValue: pValue, Alternative: "larger"},
		Impact: models.Impact{
			RateA:                 0.14,
			RateB:                 0.152,
			Uplift:                0.0857142857,
			AdditionalConversions: 2105.28,
			AdditionalRevenue:     210528,
		},
	}
}

func TestDecision(t *testing.T) {
	tests := []struct {
		name   string
		pValue float64
		want   string
	}{
		{"significant", 0.03, Recommend},
		{"not significant", 0.20, NoDifference},
		{"on the threshold", 0.05, NoDifference},
		{"undefined", math.NaN(), NoDifference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decision(tt.pValue, 0.05); got != tt.want {
				t.Errorf("Decision(%v) = %q, want %q", tt.pValue, got, tt.want)
			}
		})
	}
}

func TestGenerateText(t *testing.T) {
	reporter := New(createTestAnalysis(0.03), config.Default())

	text := reporter.GenerateText()

	expectedLines := []string{
		"A/B TESTING REPORT - BANK MARKETING CAMPAIGN",
		"Date: 2024-03-15",
		"1. TEST OVERVIEW",
		"- Test Groups: A (Control) vs B (Treatment)",
		"- Total Samples: 17,544",
		"- Group A Samples: 8,790",
		"- Group B Samples: 8,754",
		"2. KEY RESULTS",
		"- Conversion Rate (A): 14.00%",
		"- Conversion Rate (B): 15.20%",
		"- Uplift: 8.57%",
		"- Statistical Significance (p-value): 0.0300",
		"3. BUSINESS IMPACT",
		"- Additional Conversions per 10k: 2105",
		"- Potential Revenue Gain: $210,528",
		"4. RECOMMENDATION",
		Recommend,
	}

	for _, line := range expectedLines {
		if !strings.Contains(text, line+"\n") {
			t.Errorf("Expected report to contain line %q\n%s", line, text)
		}
	}

	if strings.Index(text, "1. TEST OVERVIEW") > strings.Index(text, "4. RECOMMENDATION") {
		t.Error("Sections are out of order")
	}
}

func TestGenerateTextDecisionBranches(t *testing.T) {
	recommend := New(createTestAnalysis(0.03), config.Default()).GenerateText()
	if !strings.Contains(recommend, "Recommend implementing Strategy B") {
		t.Error("p=0.03 should recommend Strategy B")
	}

	none := New(createTestAnalysis(0.20), config.Default()).GenerateText()
	if !strings.Contains(none, NoDifference) || strings.Contains(none, Recommend) {
		t.Error("p=0.20 should report no significant difference")
	}
}

func TestGenerateJSON(t *testing.T) {
	reporter := New(createTestAnalysis(math.NaN()), config.Default())

	jsonStr, err := reporter.GenerateJSON()
	if err != nil {
		t.Fatalf("Failed to generate JSON: %v", err)
	}

	var decoded struct {
		Analysis struct {
			RunID   string `json:"run_id"`
			AgeBins []struct {
				MeanRate *float64 `json:"mean_rate"`
			} `json:"age_bins"`
			ZTest struct {
				PValue *float64 `json:"p_value"`
			} `json:"z_test"`
		} `json:"analysis"`
		Decision string `json:"decision"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &decoded); err != nil {
		t.Fatalf("Generated content is not valid JSON: %v", err)
	}

	if decoded.Analysis.RunID != "test-run" {
		t.Errorf("Expected run_id test-run, got %q", decoded.Analysis.RunID)
	}
	if decoded.Analysis.ZTest.PValue != nil {
		t.Errorf("NaN p-value should encode as null, got %v", *decoded.Analysis.ZTest.PValue)
	}
	if len(decoded.Analysis.AgeBins) != 2 || decoded.Analysis.AgeBins[1].MeanRate != nil {
		t.Error("Empty bin mean should encode as null")
	}
	if decoded.Decision != NoDifference {
		t.Errorf("Unexpected decision %q", decoded.Decision)
	}
	if strings.Contains(jsonStr, `"bayes"`) {
		t.Error("Empty bayes results should be omitted")
	}
}

func TestSaveToFile(t *testing.T) {
	reporter := New(createTestAnalysis(0.03), config.Default())

	tests := []struct {
		format   string
		filename string
		check    func(*testing.T, string)
	}{
		{"text", "report.txt", func(t *testing.T, path string) {
			data, _ := os.ReadFile(path)
			if !strings.Contains(string(data), "4. RECOMMENDATION") {
				t.Error("Text report missing recommendation")
			}
		}},
		{"json", "summary.json", nil},
		{"csv", "summary.csv", func(t *testing.T, path string) {
			data, _ := os.ReadFile(path)
			if !strings.HasPrefix(string(data), "section,metric,group,value") {
				t.Errorf("Unexpected csv header: %q", strings.SplitN(string(data), "\n", 2)[0])
			}
			if !strings.Contains(string(data), "z_test,p_value,,0.03") {
				t.Error("CSV summary missing z-test p-value")
			}
		}},
		{"xlsx", "summary.xlsx", func(t *testing.T, path string) {
			f, err := excelize.OpenFile(path)
			if err != nil {
				t.Fatalf("Failed to open workbook: %v", err)
			}
			defer f.Close()
			rows, err := f.GetRows("Groups")
			if err != nil {
				t.Fatalf("Failed to read Groups sheet: %v", err)
			}
			if len(rows) != 3 {
				t.Errorf("Expected header plus 2 groups, got %d rows", len(rows))
			}
		}},
		{"parquet", "summary.parquet", nil},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.filename)

			if err := reporter.SaveToFile(path, tt.format); err != nil {
				t.Fatalf("Failed to save %s: %v", tt.format, err)
			}

			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("File was not created: %v", err)
			}
			if info.Size() == 0 {
				t.Error("File is empty")
			}
			if tt.check != nil {
				tt.check(t, path)
			}
		})
	}

	if err := reporter.SaveToFile(filepath.Join(t.TempDir(), "x"), "yaml"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestSaveTextOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ab_test_report.txt")
	if err := os.WriteFile(path, []byte("stale content that is longer than nothing"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := New(createTestAnalysis(0.2), config.Default()).SaveText(path); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "stale") {
		t.Error("Existing report was not overwritten")
	}
}

func TestSummaryRows(t *testing.T) {
	analysis := createTestAnalysis(0.03)
	analysis.Bayes = []models.VariantResult{{Variant: "B", ProbBeingBest: 0.97}}

	rows := New(analysis, config.Default()).SummaryRows()

	found := false
	for _, row := range rows {
		if row.Section == "bayes" && row.Metric == "prob_being_best" && row.Group == "B" {
			found = row.Value == 0.97
		}
	}
	if !found {
		t.Error("Summary rows missing Bayesian probability for B")
	}
}
