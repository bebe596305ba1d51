package stats

import (
	"errors"
	"fmt"
	"math"

	"github.com/Vitruves/abtest-report/internal/models"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrEmptyGroup is returned when a test needs observations from a group that has none.
var ErrEmptyGroup = errors.New("group has no observations")

// AlternativeLarger tests whether the first proportion exceeds the second.
const AlternativeLarger = "larger"

// Contingency is a 2x2 table of groups (rows A, B) by outcome (columns 0, 1).
type Contingency [2][2]int

// ContingencyFromDataset counts outcomes per group for the labels a and b.
// Rows with any other label are ignored.
func ContingencyFromDataset(ds models.Dataset, a, b string) Contingency {
	var table Contingency
	for _, r := range ds.Records {
		var row int
		switch r.Group {
		case a:
			row = 0
		case b:
			row = 1
		default:
			continue
		}
		col := 0
		if r.Converted == 1 {
			col = 1
		}
		table[row][col]++
	}
	return table
}

// Total returns the number of observations in the table.
func (c Contingency) Total() int {
	return c[0][0] + c[0][1] + c[1][0] + c[1][1]
}

// ChiSquare runs a Pearson chi-square test of independence on the table.
// With correction set and one degree of freedom the Yates continuity
// correction is applied: each observed count moves 0.5 toward its expected
// count, never past it. Rows or columns that sum to zero are dropped before
// computing degrees of freedom; a table left without any freedom returns a
// zero statistic with p-value 1.
func ChiSquare(table Contingency, correction bool) (models.ChiSquareResult, error) {
	n := float64(table.Total())
	if n == 0 {
		return models.ChiSquareResult{}, fmt.Errorf("chi-square on empty table: %w", ErrEmptyGroup)
	}

	var rowSums, colSums [2]float64
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			rowSums[i] += float64(table[i][j])
			colSums[j] += float64(table[i][j])
		}
	}

	expected := make([][]float64, 2)
	for i := range expected {
		expected[i] = make([]float64, 2)
		for j := range expected[i] {
			expected[i][j] = rowSums[i] * colSums[j] / n
		}
	}

	result := models.ChiSquareResult{
		Expected: expected,
		Observed: table,
	}

	dof := (nonZero(rowSums) - 1) * (nonZero(colSums) - 1)
	if dof <= 0 {
		result.PValue = 1
		return result, nil
	}
	result.DegreesOfFreedom = dof

	applyYates := correction && dof == 1
	result.Corrected = applyYates

	var statistic float64
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			observed := float64(table[i][j])
			diff := expected[i][j] - observed
			if applyYates {
				shift := math.Min(0.5, math.Abs(diff))
				if diff < 0 {
					shift = -shift
				}
				observed += shift
				diff = expected[i][j] - observed
			}
			statistic += diff * diff / expected[i][j]
		}
	}

	result.Statistic = statistic
	result.PValue = distuv.ChiSquared{K: float64(dof)}.Survival(statistic)
	return result, nil
}

func nonZero(sums [2]float64) int {
	count := 0
	for _, s := range sums {
		if s > 0 {
			count++
		}
	}
	return count
}

// ZTest runs a pooled two-proportion z-test with the one-sided alternative
// that the first proportion (countX / nobsX) is larger than the second.
// A pooled variance of zero yields a NaN statistic and NaN p-value.
func ZTest(countX, nobsX, countY, nobsY int) (models.ZTestResult, error) {
	if nobsX == 0 || nobsY == 0 {
		return models.ZTestResult{}, fmt.Errorf("z-test: %w", ErrEmptyGroup)
	}

	nx, ny := float64(nobsX), float64(nobsY)
	px, py := float64(countX)/nx, float64(countY)/ny
	pooled := float64(countX+countY) / (nx + ny)

	std := math.Sqrt(pooled * (1 - pooled) * (1/nx + 1/ny))

	result := models.ZTestResult{Alternative: AlternativeLarger}
	if std == 0 {
		result.Statistic = math.NaN()
		result.PValue = math.NaN()
		return result, nil
	}

	result.Statistic = (px - py) / std
	result.PValue = distuv.UnitNormal.Survival(result.Statistic)
	return result, nil
}

// TestGroups runs both tests on the dataset. The z-test checks whether
// treatment converts better than control.
func TestGroups(ds models.Dataset, control, treatment string, correction bool) (models.ChiSquareResult, models.ZTestResult, error) {
	table := ContingencyFromDataset(ds, control, treatment)

	chi, err := ChiSquare(table, correction)
	if err != nil {
		return models.ChiSquareResult{}, models.ZTestResult{}, err
	}

	nControl := table[0][0] + table[0][1]
	nTreatment := table[1][0] + table[1][1]
	z, err := ZTest(table[1][1], nTreatment, table[0][1], nControl)
	if err != nil {
		return chi, models.ZTestResult{}, err
	}

	return chi, z, nil
}
