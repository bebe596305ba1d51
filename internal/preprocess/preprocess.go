// Package preprocess derives the binary outcome, filters the table and
// simulates the A/B split. Every function returns a new Dataset.
package preprocess

import (
	"github.com/Vitruves/abtest-report/internal/models"

	"golang.org/x/exp/rand"
)

const (
	GroupA = "A"
	GroupB = "B"
)

// Convert sets Converted to 1 when Y equals positiveLabel and 0 otherwise.
func Convert(ds models.Dataset, positiveLabel string) models.Dataset {
	out := ds.Clone()
	for i := range out.Records {
		if out.Records[i].Y == positiveLabel {
			out.Records[i].Converted = 1
		} else {
			out.Records[i].Converted = 0
		}
	}
	return out
}

// Filter keeps rows contacted exactly campaign times. campaign 0 keeps all rows.
func Filter(ds models.Dataset, campaign int) models.Dataset {
	if campaign == 0 {
		return ds.Clone()
	}

	var kept []models.Record
	for _, r := range ds.Records {
		if r.Campaign == campaign {
			kept = append(kept, r)
		}
	}
	return models.Dataset{Records: kept}
}

// Assign labels every row A or B with one independent uniform draw each.
// A row goes to A when the draw is below split. The same seed over the same
// rows always yields the same labels; group sizes are not balanced.
func Assign(ds models.Dataset, seed int64, split float64) models.Dataset {
	rng := rand.New(rand.NewSource(uint64(seed)))

	out := ds.Clone()
	for i := range out.Records {
		if rng.Float64() < split {
			out.Records[i].Group = GroupA
		} else {
			out.Records[i].Group = GroupB
		}
	}
	return out
}

// Prepare runs Convert, Filter and Assign with the experiment settings.
func Prepare(ds models.Dataset, exp models.ExperimentConfig) models.Dataset {
	converted := Convert(ds, exp.PositiveLabel)
	filtered := Filter(converted, exp.CampaignFilter())
	return Assign(filtered, exp.Seed, exp.Split)
}

// GroupCounts returns the number of rows per group label.
func GroupCounts(ds models.Dataset) map[string]int {
	counts := make(map[string]int)
	for _, r := range ds.Records {
		counts[r.Group]++
	}
	return counts
}
