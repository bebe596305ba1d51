package stats

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/Vitruves/abtest-report/internal/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// GroupStats computes conversion rate and sample size per group, sorted by
// label. confidence sets the Wilson interval level (0.95 for a 95% interval).
func GroupStats(ds models.Dataset, confidence float64) []models.GroupSummary {
	outcomes := make(map[string][]float64)
	for _, r := range ds.Records {
		outcomes[r.Group] = append(outcomes[r.Group], float64(r.Converted))
	}

	labels := make([]string, 0, len(outcomes))
	for label := range outcomes {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	z := distuv.UnitNormal.Quantile(1 - (1-confidence)/2)

	summaries := make([]models.GroupSummary, 0, len(labels))
	for _, label := range labels {
		values := outcomes[label]
		conversions := int(floats.Sum(values))
		lower, upper := WilsonInterval(conversions, len(values), z)

		summaries = append(summaries, models.GroupSummary{
			Group:          label,
			SampleSize:     len(values),
			Conversions:    conversions,
			ConversionRate: stat.Mean(values, nil),
			WilsonLower:    lower,
			WilsonUpper:    upper,
		})
	}

	return summaries
}

// OverallRate is the mean outcome over every row. An empty table yields NaN.
func OverallRate(ds models.Dataset) float64 {
	if ds.Len() == 0 {
		return math.NaN()
	}
	values := make([]float64, ds.Len())
	for i, r := range ds.Records {
		values[i] = float64(r.Converted)
	}
	return stat.Mean(values, nil)
}

// WilsonInterval returns the Wilson score interval for successes out of n.
func WilsonInterval(successes, n int, z float64) (float64, float64) {
	if n == 0 {
		return 0, 0
	}

	nf := float64(n)
	p := float64(successes) / nf
	den := 1 + z*z/nf
	center := p + z*z/(2*nf)
	rad := z * math.Sqrt((p*(1-p)+z*z/(4*nf))/nf)

	return math.Max(0, (center-rad)/den), math.Min(1, (center+rad)/den)
}

// BinEdges reproduces equal-width binning of the given values into k
// right-closed intervals. The lowest edge is pulled down by 0.1% of the
// range so the minimum falls inside the first bin.
func BinEdges(values []float64, k int) []float64 {
	if len(values) == 0 || k < 1 {
		return nil
	}

	mn, mx := floats.Min(values), floats.Max(values)
	edges := make([]float64, k+1)

	if mn == mx {
		if mn != 0 {
			mn -= 0.001 * math.Abs(mn)
			mx += 0.001 * math.Abs(mx)
		} else {
			mn, mx = -0.001, 0.001
		}
		floats.Span(edges, mn, mx)
		return edges
	}

	floats.Span(edges, mn, mx)
	edges[0] -= (mx - mn) * 0.001
	return edges
}

// BinIndex returns the interval (edges[i], edges[i+1]] holding v, or -1.
func BinIndex(edges []float64, v float64) int {
	for i := 0; i+1 < len(edges); i++ {
		if v > edges[i] && v <= edges[i+1] {
			return i
		}
	}
	return -1
}

// AgeBins computes the mean outcome per equal-width age bin. Empty bins
// have a NaN mean.
func AgeBins(ds models.Dataset, k int) []models.BinSummary {
	ages := make([]float64, ds.Len())
	for i, r := range ds.Records {
		ages[i] = float64(r.Age)
	}

	edges := BinEdges(ages, k)
	if edges == nil {
		return nil
	}

	counts := make([]int, k)
	sums := make([]float64, k)
	for _, r := range ds.Records {
		idx := BinIndex(edges, float64(r.Age))
		if idx < 0 {
			continue
		}
		counts[idx]++
		sums[idx] += float64(r.Converted)
	}

	bins := make([]models.BinSummary, k)
	for i := 0; i < k; i++ {
		mean := math.NaN()
		if counts[i] > 0 {
			mean = sums[i] / float64(counts[i])
		}
		bins[i] = models.BinSummary{
			Label:    IntervalLabel(edges[i], edges[i+1]),
			Lower:    edges[i],
			Upper:    edges[i+1],
			Count:    counts[i],
			MeanRate: mean,
		}
	}

	return bins
}

// IntervalLabel formats a right-closed interval with three decimals at most.
func IntervalLabel(lo, hi float64) string {
	return fmt.Sprintf("(%s, %s]", trimFloat(lo), trimFloat(hi))
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}
