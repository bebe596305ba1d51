// Package bayes estimates which variant converts best under a Beta-Binomial
// model by sampling from each variant's posterior.
package bayes

import (
	"errors"
	"fmt"
	"math"

	"github.com/Vitruves/abtest-report/internal/models"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrUnavailable is returned by an Estimator that cannot run. Callers skip
// the Bayesian step when they see it.
var ErrUnavailable = errors.New("bayesian estimator unavailable")

// Estimator evaluates variants and reports, for each, the probability of
// being best and the expected loss of choosing it.
type Estimator interface {
	Evaluate(variants []models.VariantData, sims int) ([]models.VariantResult, error)
}

// BetaBinomial is a conjugate Beta prior over Bernoulli outcomes.
type BetaBinomial struct {
	PriorAlpha float64
	PriorBeta  float64
	Seed       int64
}

// New returns a BetaBinomial estimator with the configured priors and seed.
func New(cfg models.BayesConfig) *BetaBinomial {
	return &BetaBinomial{
		PriorAlpha: cfg.PriorAlpha,
		PriorBeta:  cfg.PriorBeta,
		Seed:       cfg.Seed,
	}
}

// Evaluate draws sims samples from every posterior. In each draw the variant
// with the highest sampled rate wins; ties go to the earlier variant.
// Expected loss is the mean shortfall of a variant against the draw maximum.
func (b *BetaBinomial) Evaluate(variants []models.VariantData, sims int) ([]models.VariantResult, error) {
	if len(variants) == 0 {
		return nil, fmt.Errorf("no variants to evaluate")
	}
	if sims < 1 {
		return nil, fmt.Errorf("simulations must be at least 1, got %d", sims)
	}

	src := rand.NewSource(uint64(b.Seed))
	posteriors := make([]distuv.Beta, len(variants))
	for i, v := range variants {
		if v.Positives < 0 || v.Positives > v.Totals {
			return nil, fmt.Errorf("variant %s: %d positives out of %d", v.Name, v.Positives, v.Totals)
		}
		posteriors[i] = distuv.Beta{
			Alpha: b.PriorAlpha + float64(v.Positives),
			Beta:  b.PriorBeta + float64(v.Totals-v.Positives),
			Src:   src,
		}
	}

	wins := make([]int, len(variants))
	losses := make([]float64, len(variants))
	draw := make([]float64, len(variants))

	for s := 0; s < sims; s++ {
		best := 0
		for i := range posteriors {
			draw[i] = posteriors[i].Rand()
			if draw[i] > draw[best] {
				best = i
			}
		}
		wins[best]++
		for i := range draw {
			losses[i] += draw[best] - draw[i]
		}
	}

	results := make([]models.VariantResult, len(variants))
	for i, v := range variants {
		rate := math.NaN()
		if v.Totals > 0 {
			rate = float64(v.Positives) / float64(v.Totals)
		}
		results[i] = models.VariantResult{
			Variant:       v.Name,
			Totals:        v.Totals,
			Positives:     v.Positives,
			PositiveRate:  rate,
			PosteriorMean: posteriors[i].Mean(),
			ProbBeingBest: float64(wins[i]) / float64(sims),
			ExpectedLoss:  losses[i] / float64(sims),
		}
	}

	return results, nil
}

// Unavailable stands in when no Bayesian engine is configured.
type Unavailable struct{}

func (Unavailable) Evaluate([]models.VariantData, int) ([]models.VariantResult, error) {
	return nil, ErrUnavailable
}

// VariantsFromDataset builds variant totals for the given labels in order.
func VariantsFromDataset(ds models.Dataset, labels ...string) []models.VariantData {
	variants := make([]models.VariantData, len(labels))
	for i, label := range labels {
		outcomes := ds.Outcomes(label)
		positives := 0
		for _, o := range outcomes {
			positives += o
		}
		variants[i] = models.VariantData{Name: label, Totals: len(outcomes), Positives: positives}
	}
	return variants
}
