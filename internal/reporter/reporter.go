package reporter

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/Vitruves/abtest-report/internal/models"

	"github.com/jszwec/csvutil"
	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	Recommend      = "Recommend implementing Strategy B (significant improvement)"
	NoDifference   = "No significant difference found"
	controlLabel   = "A"
	treatmentLabel = "B"
)

type Reporter struct {
	analysis *models.Analysis
	cfg      *models.Config
	printer  *message.Printer
}

// SummaryRow is one flattened figure of the analysis, used by the csv,
// xlsx and parquet summaries.
type SummaryRow struct {
	Section string  `csv:"section" parquet:"section"`
	Metric  string  `csv:"metric" parquet:"metric"`
	Group   string  `csv:"group,omitempty" parquet:"group,optional"`
	Value   float64 `csv:"value" parquet:"value"`
}

func New(analysis *models.Analysis, cfg *models.Config) *Reporter {
	return &Reporter{
		analysis: analysis,
		cfg:      cfg,
		printer:  message.NewPrinter(language.English),
	}
}

// Decision returns the recommendation line. Only the z-test p-value is
// compared to alpha; a NaN p-value never recommends.
func Decision(pValue, alpha float64) string {
	if pValue < alpha {
		return Recommend
	}
	return NoDifference
}

func (r *Reporter) GenerateText() string {
	var report strings.Builder

	r.writeHeader(&report)
	r.writeOverview(&report)
	r.writeKeyResults(&report)
	r.writeImpact(&report)
	r.writeRecommendation(&report)

	return report.String()
}

func (r *Reporter) writeHeader(report *strings.Builder) {
	report.WriteString("\n")
	report.WriteString(fmt.Sprintf("A/B TESTING REPORT - %s\n", r.cfg.Report.Title))
	report.WriteString(fmt.Sprintf("Date: %s\n", r.analysis.Date.Format("2006-01-02")))
	report.WriteString("\n")
}

func (r *Reporter) writeOverview(report *strings.Builder) {
	a := r.analysis
	report.WriteString("1. TEST OVERVIEW\n")
	report.WriteString("- Test Groups: A (Control) vs B (Treatment)\n")
	report.WriteString(r.printer.Sprintf("- Total Samples: %d\n", a.TotalSamples))
	report.WriteString(r.printer.Sprintf("- Group A Samples: %d\n", a.Group(controlLabel).SampleSize))
	report.WriteString(r.printer.Sprintf("- Group B Samples: %d\n", a.Group(treatmentLabel).SampleSize))
	report.WriteString("\n")
}

func (r *Reporter) writeKeyResults(report *strings.Builder) {
	im := r.analysis.Impact
	report.WriteString("2. KEY RESULTS\n")
	report.WriteString(fmt.Sprintf("- Conversion Rate (A): %s\n", percent(im.RateA)))
	report.WriteString(fmt.Sprintf("- Conversion Rate (B): %s\n", percent(im.RateB)))
	report.WriteString(fmt.Sprintf("- Uplift: %s\n", percent(im.Uplift)))
	report.WriteString(fmt.Sprintf("- Statistical Significance (p-value): %.4f\n", r.analysis.ZTest.PValue))
	report.WriteString("\n")
}

func (r *Reporter) writeImpact(report *strings.Builder) {
	im := r.analysis.Impact
	report.WriteString("3. BUSINESS IMPACT\n")
	report.WriteString(fmt.Sprintf("- Additional Conversions per %s: %.0f\n", r.cfg.Business.ScaleLabel, im.AdditionalConversions))
	report.WriteString(r.printer.Sprintf("- Potential Revenue Gain: $%.0f\n", im.AdditionalRevenue))
	report.WriteString("\n")
}

func (r *Reporter) writeRecommendation(report *strings.Builder) {
	report.WriteString("4. RECOMMENDATION\n")
	report.WriteString(Decision(r.analysis.ZTest.PValue, r.cfg.Analysis.Alpha) + "\n")
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// GenerateJSON renders the whole analysis. Non-finite numbers become null.
func (r *Reporter) GenerateJSON() (string, error) {
	output := map[string]interface{}{
		"analysis": jsonValue(reflect.ValueOf(*r.analysis)),
		"decision": Decision(r.analysis.ZTest.PValue, r.cfg.Analysis.Alpha),
		"alpha":    r.cfg.Analysis.Alpha,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return "", err
	}

	return string(data), nil
}

var timeType = reflect.TypeOf(time.Time{})

func jsonValue(v reflect.Value) interface{} {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case reflect.Struct:
		if v.Type() == timeType {
			return v.Interface()
		}
		out := make(map[string]interface{})
		for i := 0; i < v.NumField(); i++ {
			field := v.Type().Field(i)
			name, opts, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" || !field.IsExported() {
				continue
			}
			if name == "" {
				name = field.Name
			}
			if opts == "omitempty" && v.Field(i).IsZero() {
				continue
			}
			out[name] = jsonValue(v.Field(i))
		}
		return out
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil
		}
		out := make([]interface{}, v.Len())
		for i := range out {
			out[i] = jsonValue(v.Index(i))
		}
		return out
	default:
		return v.Interface()
	}
}

// SummaryRows flattens the analysis into section/metric/value rows.
func (r *Reporter) SummaryRows() []SummaryRow {
	a := r.analysis
	rows := []SummaryRow{
		{Section: "overview", Metric: "total_samples", Value: float64(a.TotalSamples)},
		{Section: "overview", Metric: "overall_rate", Value: a.OverallRate},
	}

	for _, g := range a.Groups {
		rows = append(rows,
			SummaryRow{Section: "groups", Metric: "sample_size", Group: g.Group, Value: float64(g.SampleSize)},
			SummaryRow{Section: "groups", Metric: "conversions", Group: g.Group, Value: float64(g.Conversions)},
			SummaryRow{Section: "groups", Metric: "conversion_rate", Group: g.Group, Value: g.ConversionRate},
			SummaryRow{Section: "groups", Metric: "wilson_lower", Group: g.Group, Value: g.WilsonLower},
			SummaryRow{Section: "groups", Metric: "wilson_upper", Group: g.Group, Value: g.WilsonUpper},
		)
	}

	for _, b := range a.AgeBins {
		rows = append(rows,
			SummaryRow{Section: "age_bins", Metric: "count", Group: b.Label, Value: float64(b.Count)},
			SummaryRow{Section: "age_bins", Metric: "mean_rate", Group: b.Label, Value: b.MeanRate},
		)
	}

	rows = append(rows,
		SummaryRow{Section: "chi_square", Metric: "statistic", Value: a.ChiSquare.Statistic},
		SummaryRow{Section: "chi_square", Metric: "p_value", Value: a.ChiSquare.PValue},
		SummaryRow{Section: "chi_square", Metric: "degrees_of_freedom", Value: float64(a.ChiSquare.DegreesOfFreedom)},
		SummaryRow{Section: "z_test", Metric: "statistic", Value: a.ZTest.Statistic},
		SummaryRow{Section: "z_test", Metric: "p_value", Value: a.ZTest.PValue},
		SummaryRow{Section: "impact", Metric: "uplift", Value: a.Impact.Uplift},
		SummaryRow{Section: "impact", Metric: "additional_conversions", Value: a.Impact.AdditionalConversions},
		SummaryRow{Section: "impact", Metric: "additional_revenue", Value: a.Impact.AdditionalRevenue},
	)

	for _, v := range a.Bayes {
		rows = append(rows,
			SummaryRow{Section: "bayes", Metric: "prob_being_best", Group: v.Variant, Value: v.ProbBeingBest},
			SummaryRow{Section: "bayes", Metric: "expected_loss", Group: v.Variant, Value: v.ExpectedLoss},
		)
	}

	return rows
}

func (r *Reporter) SaveToFile(filename, format string) error {
	switch format {
	case "json":
		return r.saveJSON(filename)
	case "text":
		return r.SaveText(filename)
	case "csv":
		return r.saveCSV(filename)
	case "xlsx":
		return r.saveExcel(filename)
	case "parquet":
		return r.saveParquet(filename)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func (r *Reporter) saveJSON(filename string) error {
	content, err := r.GenerateJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(filename, []byte(content), 0644)
}

// SaveText writes the text report, replacing any existing file.
func (r *Reporter) SaveText(filename string) error {
	content := r.GenerateText()
	return os.WriteFile(filename, []byte(content), 0644)
}

func (r *Reporter) saveCSV(filename string) error {
	data, err := csvutil.Marshal(r.SummaryRows())
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return os.WriteFile(filename, data, 0644)
}

func (r *Reporter) saveExcel(filename string) error {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "Summary"
	groupsSheet := "Groups"

	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(groupsSheet); err != nil {
		return err
	}

	if err := r.writeExcelSummary(f, summarySheet); err != nil {
		return err
	}
	if err := r.writeExcelGroups(f, groupsSheet); err != nil {
		return err
	}

	return f.SaveAs(filename)
}

func (r *Reporter) writeExcelSummary(f *excelize.File, sheet string) error {
	header := []interface{}{"Section", "Metric", "Group", "Value"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, row := range r.SummaryRows() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{row.Section, row.Metric, row.Group, excelValue(row.Value)}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	decision := []interface{}{"decision", Decision(r.analysis.ZTest.PValue, r.cfg.Analysis.Alpha)}
	cell, _ := excelize.CoordinatesToCellName(1, len(r.SummaryRows())+3)
	return f.SetSheetRow(sheet, cell, &decision)
}

func (r *Reporter) writeExcelGroups(f *excelize.File, sheet string) error {
	header := []interface{}{"Group", "Sample Size", "Conversions", "Conversion Rate", "Wilson Lower", "Wilson Upper"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, g := range r.analysis.Groups {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{g.Group, g.SampleSize, g.Conversions, excelValue(g.ConversionRate), excelValue(g.WilsonLower), excelValue(g.WilsonUpper)}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

// excelValue leaves non-finite numbers as empty cells.
func excelValue(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return v
}

func (r *Reporter) saveParquet(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[SummaryRow](file)
	if _, err := writer.Write(r.SummaryRows()); err != nil {
		return fmt.Errorf("failed to write summary rows: %w", err)
	}
	return writer.Close()
}
