// Package impact turns a difference in conversion rates into uplift,
// extra conversions and extra revenue.
package impact

import (
	"errors"
	"fmt"

	"github.com/Vitruves/abtest-report/internal/models"
)

// ErrZeroBaseline is returned when the control rate is zero and uplift is undefined.
var ErrZeroBaseline = errors.New("control conversion rate is zero")

// Estimate computes the business impact of moving from rateA to rateB over
// totalSamples rows. Extra conversions are scaled by the configured factor
// (x10 for the default "per 10k" projection) and revenue multiplies them
// by the customer value.
func Estimate(rateA, rateB float64, totalSamples int, business models.BusinessConfig) (models.Impact, error) {
	if rateA == 0 {
		return models.Impact{}, fmt.Errorf("uplift of %.4f over 0: %w", rateB, ErrZeroBaseline)
	}

	delta := rateB - rateA
	conversions := delta * float64(totalSamples) * business.ScaleFactor

	return models.Impact{
		RateA:                 rateA,
		RateB:                 rateB,
		Uplift:                delta / rateA,
		AdditionalConversions: conversions,
		AdditionalRevenue:     conversions * business.CustomerValue,
	}, nil
}
