package preprocess

import (
	"testing"

	"github.com/Vitruves/abtest-report/internal/models"
)

func sampleDataset(n int) models.Dataset {
	records := make([]models.Record, n)
	for i := range records {
		records[i] = models.Record{
			Age:      20 + i%50,
			Campaign: 1 + i%3,
			Y:        []string{"no", "yes", "no", "no"}[i%4],
		}
	}
	return models.Dataset{Records: records}
}

func TestConvert(t *testing.T) {
	ds := models.Dataset{Records: []models.Record{{Y: "yes"}, {Y: "no"}, {Y: "YES"}, {Y: ""}}}

	out := Convert(ds, "yes")

	expected := []int{1, 0, 0, 0}
	for i, want := range expected {
		if out.Records[i].Converted != want {
			t.Errorf("Row %d: expected converted=%d, got %d", i, want, out.Records[i].Converted)
		}
	}
}

func TestConvertDoesNotMutateInput(t *testing.T) {
	ds := models.Dataset{Records: []models.Record{{Y: "yes"}}}

	_ = Convert(ds, "yes")

	if ds.Records[0].Converted != 0 {
		t.Error("Convert modified its input dataset")
	}
}

func TestFilter(t *testing.T) {
	ds := sampleDataset(30)

	out := Filter(ds, 1)

	if out.Len() != 10 {
		t.Errorf("Expected 10 rows with campaign=1, got %d", out.Len())
	}
	for _, r := range out.Records {
		if r.Campaign != 1 {
			t.Errorf("Row with campaign %d survived the filter", r.Campaign)
		}
	}

	if all := Filter(ds, 0); all.Len() != ds.Len() {
		t.Errorf("campaign=0 should keep every row, got %d of %d", all.Len(), ds.Len())
	}
}

func TestAssignDeterministic(t *testing.T) {
	ds := sampleDataset(500)

	first := Assign(ds, 42, 0.5)
	second := Assign(ds, 42, 0.5)

	for i := range first.Records {
		if first.Records[i].Group != second.Records[i].Group {
			t.Fatalf("Row %d labeled %s then %s with the same seed", i, first.Records[i].Group, second.Records[i].Group)
		}
	}

	other := Assign(ds, 7, 0.5)
	differs := false
	for i := range first.Records {
		if first.Records[i].Group != other.Records[i].Group {
			differs = true
			break
		}
	}
	if !differs {
		t.Error("Expected a different seed to produce a different split")
	}
}

func TestAssignEveryRowLabeledOnce(t *testing.T) {
	ds := sampleDataset(1000)

	out := Assign(ds, 42, 0.5)

	counts := GroupCounts(out)
	if counts[GroupA]+counts[GroupB] != out.Len() {
		t.Errorf("Group sizes %d + %d do not sum to %d", counts[GroupA], counts[GroupB], out.Len())
	}
	if len(counts) != 2 {
		t.Errorf("Expected exactly two labels, got %v", counts)
	}
	// binomial noise around 500, far inside 6 sigma
	if counts[GroupA] < 400 || counts[GroupA] > 600 {
		t.Errorf("Group A size %d is implausible for a 50/50 split", counts[GroupA])
	}
}

func TestAssignSplitExtremes(t *testing.T) {
	ds := sampleDataset(200)

	out := Assign(ds, 42, 0.999999)
	if GroupCounts(out)[GroupA] < 195 {
		t.Errorf("Expected nearly all rows in A, got %v", GroupCounts(out))
	}
}

func TestPrepare(t *testing.T) {
	ds := sampleDataset(90)
	campaign := 1
	exp := models.ExperimentConfig{Seed: 42, Campaign: &campaign, PositiveLabel: "yes", Split: 0.5}

	out := Prepare(ds, exp)

	if out.Len() != 30 {
		t.Fatalf("Expected 30 rows after filter, got %d", out.Len())
	}
	for _, r := range out.Records {
		if r.Group != GroupA && r.Group != GroupB {
			t.Errorf("Unexpected group %q", r.Group)
		}
		want := 0
		if r.Y == "yes" {
			want = 1
		}
		if r.Converted != want {
			t.Errorf("Converted %d does not match y=%q", r.Converted, r.Y)
		}
	}
	if ds.Records[0].Group != "" {
		t.Error("Prepare modified its input dataset")
	}
}
