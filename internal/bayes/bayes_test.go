package bayes

import (
	"errors"
	"math"
	"testing"

	"github.com/Vitruves/abtest-report/internal/models"
)

func TestEvaluate(t *testing.T) {
	est := &BetaBinomial{PriorAlpha: 0.5, PriorBeta: 0.5, Seed: 42}
	variants := []models.VariantData{
		{Name: "A", Totals: 1000, Positives: 100},
		{Name: "B", Totals: 1000, Positives: 150},
	}

	results, err := est.Evaluate(variants, 10000)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	sum := results[0].ProbBeingBest + results[1].ProbBeingBest
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("Probabilities should sum to 1, got %v", sum)
	}
	if results[1].ProbBeingBest < 0.99 {
		t.Errorf("B is clearly better, got P(best)=%v", results[1].ProbBeingBest)
	}
	if results[1].ExpectedLoss >= results[0].ExpectedLoss {
		t.Errorf("Better variant should carry less loss: A=%v B=%v", results[0].ExpectedLoss, results[1].ExpectedLoss)
	}

	wantMean := 150.5 / 1001.0
	if math.Abs(results[1].PosteriorMean-wantMean) > 1e-12 {
		t.Errorf("Expected posterior mean %v, got %v", wantMean, results[1].PosteriorMean)
	}
	if results[0].PositiveRate != 0.1 {
		t.Errorf("Expected rate 0.1, got %v", results[0].PositiveRate)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	variants := []models.VariantData{
		{Name: "A", Totals: 50, Positives: 5},
		{Name: "B", Totals: 50, Positives: 6},
	}

	first, err := (&BetaBinomial{PriorAlpha: 0.5, PriorBeta: 0.5, Seed: 7}).Evaluate(variants, 2000)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, _ := (&BetaBinomial{PriorAlpha: 0.5, PriorBeta: 0.5, Seed: 7}).Evaluate(variants, 2000)

	for i := range first {
		if first[i].ProbBeingBest != second[i].ProbBeingBest {
			t.Errorf("Variant %s: %v then %v with the same seed", first[i].Variant, first[i].ProbBeingBest, second[i].ProbBeingBest)
		}
	}
}

func TestEvaluateErrors(t *testing.T) {
	est := &BetaBinomial{PriorAlpha: 1, PriorBeta: 1, Seed: 1}

	tests := []struct {
		name     string
		variants []models.VariantData
		sims     int
	}{
		{"no variants", nil, 100},
		{"no simulations", []models.VariantData{{Name: "A", Totals: 1}}, 0},
		{"positives exceed totals", []models.VariantData{{Name: "A", Totals: 1, Positives: 2}}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := est.Evaluate(tt.variants, tt.sims); err == nil {
				t.Error("Expected error but got none")
			}
		})
	}
}

func TestUnavailable(t *testing.T) {
	var est Estimator = Unavailable{}

	_, err := est.Evaluate([]models.VariantData{{Name: "A"}}, 10)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestVariantsFromDataset(t *testing.T) {
	ds := models.Dataset{Records: []models.Record{
		{Group: "A", Converted: 1},
		{Group: "B", Converted: 0},
		{Group: "A", Converted: 0},
		{Group: "B", Converted: 1},
		{Group: "B", Converted: 1},
	}}

	variants := VariantsFromDataset(ds, "A", "B")

	want := []models.VariantData{
		{Name: "A", Totals: 2, Positives: 1},
		{Name: "B", Totals: 3, Positives: 2},
	}
	for i := range want {
		if variants[i] != want[i] {
			t.Errorf("Variant %d: expected %+v, got %+v", i, want[i], variants[i])
		}
	}
}
