// Package charts renders the conversion bar chart and the age histogram.
package charts

import (
	"fmt"
	"image/color"
	"sort"

	"github.com/Vitruves/abtest-report/internal/models"
	"github.com/Vitruves/abtest-report/internal/stats"

	moremath "github.com/aclements/go-moremath/stats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	width  = 10 * vg.Inch
	height = 6 * vg.Inch

	kdePoints = 200
)

// palette assigns fixed colors per group position.
var palette = []color.NRGBA{
	{R: 31, G: 119, B: 180, A: 255},
	{R: 255, G: 127, B: 14, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 214, G: 39, B: 40, A: 255},
}

func groupColor(i int, alpha uint8) color.NRGBA {
	c := palette[i%len(palette)]
	c.A = alpha
	return c
}

// RenderConversion draws one bar per group with the y axis fixed to [0, yMax].
func RenderConversion(path string, groups []models.GroupSummary, yMax float64) error {
	if len(groups) == 0 {
		return fmt.Errorf("no groups to plot")
	}

	p := plot.New()
	p.Title.Text = "Conversion Rates by Group"
	p.X.Label.Text = "Group"
	p.Y.Label.Text = "Conversion Rate"
	p.Y.Min = 0
	p.Y.Max = yMax
	p.Add(plotter.NewGrid())

	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Group

		bars, err := plotter.NewBarChart(plotter.Values{g.ConversionRate}, vg.Points(60))
		if err != nil {
			return fmt.Errorf("failed to build bar for group %s: %w", g.Group, err)
		}
		bars.XMin = float64(i)
		bars.Color = groupColor(i, 255)
		bars.LineStyle.Width = 0
		p.Add(bars)
	}
	p.NominalX(names...)

	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("failed to save conversion chart: %w", err)
	}
	return nil
}

// RenderAgeDistribution overlays a translucent age histogram per group on
// shared bin edges, each with a kernel density curve scaled to counts.
func RenderAgeDistribution(path string, ds models.Dataset, bins int) error {
	if ds.Len() == 0 {
		return fmt.Errorf("no rows to plot")
	}
	if bins < 1 {
		return fmt.Errorf("bins must be at least 1, got %d", bins)
	}

	ages := make(map[string][]float64)
	var all []float64
	for _, r := range ds.Records {
		ages[r.Group] = append(ages[r.Group], float64(r.Age))
		all = append(all, float64(r.Age))
	}

	edges := histEdges(all, bins)
	binWidth := edges[1] - edges[0]

	p := plot.New()
	p.Title.Text = "Age Distribution by Group"
	p.X.Label.Text = "Age"
	p.Y.Label.Text = "Count"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, label := range sortedKeys(ages) {
		values := ages[label]

		hist := &plotter.Histogram{
			Bins:      countBins(values, edges),
			Width:     binWidth,
			FillColor: groupColor(i, 128),
			LineStyle: plotter.DefaultLineStyle,
		}
		hist.LineStyle.Color = groupColor(i, 200)
		p.Add(hist)

		curve, err := densityCurve(values, edges[0], edges[len(edges)-1], float64(len(values))*binWidth)
		if err != nil {
			return fmt.Errorf("failed to build density for group %s: %w", label, err)
		}
		curve.LineStyle.Color = groupColor(i, 255)
		curve.LineStyle.Width = vg.Points(2)
		p.Add(curve)

		p.Legend.Add(label, hist)
	}

	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("failed to save age chart: %w", err)
	}
	return nil
}

// histEdges spans [min, max] in n equal bins. Constant input gets a unit-wide range.
func histEdges(values []float64, n int) []float64 {
	s := moremath.Sample{Xs: values}
	lo, hi := s.Bounds()
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	edges := make([]float64, n+1)
	step := (hi - lo) / float64(n)
	for i := range edges {
		edges[i] = lo + step*float64(i)
	}
	edges[n] = hi
	return edges
}

// countBins counts values per bin. The last bin is closed on the right.
func countBins(values, edges []float64) []plotter.HistogramBin {
	n := len(edges) - 1
	out := make([]plotter.HistogramBin, n)
	for i := 0; i < n; i++ {
		out[i] = plotter.HistogramBin{Min: edges[i], Max: edges[i+1]}
	}

	for _, v := range values {
		idx := stats.BinIndex(edges, v)
		if v == edges[0] {
			idx = 0
		}
		if idx >= 0 {
			out[idx].Weight++
		}
	}
	return out
}

func densityCurve(values []float64, lo, hi, scale float64) (*plotter.Line, error) {
	sample := moremath.Sample{Xs: values}
	kde := &moremath.KDE{Sample: sample}
	if len(values) > 1 {
		if bw := moremath.BandwidthScott(sample); bw > 0 {
			kde.Bandwidth = bw
		}
	}
	if kde.Bandwidth == 0 {
		kde.Bandwidth = 1
	}

	xys := make(plotter.XYs, kdePoints)
	step := (hi - lo) / float64(kdePoints-1)
	for i := range xys {
		x := lo + step*float64(i)
		xys[i].X = x
		xys[i].Y = kde.PDF(x) * scale
	}

	return plotter.NewLine(xys)
}

func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
