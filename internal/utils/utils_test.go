package utils

import (
	"path/filepath"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{500 * time.Nanosecond, "0.50μs"},
		{1500 * time.Microsecond, "1.50ms"},
		{2*time.Second + 340*time.Millisecond, "2.34s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCalculatePercentage(t *testing.T) {
	if got := CalculatePercentage(1, 4); got != 25 {
		t.Errorf("Expected 25, got %v", got)
	}
	if got := CalculatePercentage(3, 0); got != 0 {
		t.Errorf("Expected 0 for empty total, got %v", got)
	}
}

func TestReplaceExt(t *testing.T) {
	tests := []struct {
		in, ext, want string
	}{
		{"ab_test_results.csv", "parquet", "ab_test_results.parquet"},
		{"out/results", "json", "out/results.json"},
		{"a.b.csv", "xlsx", "a.b.xlsx"},
	}
	for _, tt := range tests {
		if got := ReplaceExt(tt.in, tt.ext); got != tt.want {
			t.Errorf("ReplaceExt(%q, %q) = %q, want %q", tt.in, tt.ext, got, tt.want)
		}
	}
}

func TestOutputPath(t *testing.T) {
	if got := OutputPath("out", "report.txt"); got != filepath.Join("out", "report.txt") {
		t.Errorf("Unexpected path %q", got)
	}
	abs := filepath.Join(t.TempDir(), "report.txt")
	if got := OutputPath("out", abs); got != abs {
		t.Errorf("Absolute names should be kept, got %q", got)
	}
}
