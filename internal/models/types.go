package models

import (
	"time"
)

type Config struct {
	Input      InputConfig      `yaml:"input"`
	Experiment ExperimentConfig `yaml:"experiment"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Business   BusinessConfig   `yaml:"business"`
	Bayes      BayesConfig      `yaml:"bayes"`
	Output     OutputConfig     `yaml:"output"`
	Report     ReportConfig     `yaml:"report"`
}

type InputConfig struct {
	File      string `yaml:"file"`
	Delimiter string `yaml:"delimiter"`
}

// ExperimentConfig controls how the simulated A/B split is built.
type ExperimentConfig struct {
	// Seed makes group assignment reproducible across runs.
	Seed int64 `yaml:"seed"`
	// Campaign keeps only rows with this campaign count. 0 keeps every row.
	Campaign      *int   `yaml:"campaign,omitempty"`
	PositiveLabel string `yaml:"positive_label"`
	// Split is the probability of a row landing in group A.
	Split float64 `yaml:"split"`
}

type AnalysisConfig struct {
	AgeBins             int     `yaml:"age_bins"`
	HistBins            int     `yaml:"hist_bins"`
	Alpha               float64 `yaml:"alpha"`
	ChiSquareCorrection *bool   `yaml:"chi_square_correction,omitempty"`
	Confidence          float64 `yaml:"confidence"`
	ConversionYMax      float64 `yaml:"conversion_y_max"`
}

// BusinessConfig holds the revenue assumptions used to translate a rate
// delta into money.
type BusinessConfig struct {
	CustomerValue float64 `yaml:"customer_value"`
	ScaleFactor   float64 `yaml:"scale_factor"`
	ScaleLabel    string  `yaml:"scale_label"`
}

type BayesConfig struct {
	Enabled     *bool   `yaml:"enabled,omitempty"`
	Simulations int     `yaml:"simulations"`
	PriorAlpha  float64 `yaml:"prior_alpha"`
	PriorBeta   float64 `yaml:"prior_beta"`
	Seed        int64   `yaml:"seed"`
}

type OutputConfig struct {
	Directory       string `yaml:"directory"`
	ReportFile      string `yaml:"report_file"`
	ExportFile      string `yaml:"export_file"`
	ExportFormat    string `yaml:"export_format"`
	ConversionChart string `yaml:"conversion_chart"`
	AgeChart        string `yaml:"age_chart"`
	SummaryFile     string `yaml:"summary_file,omitempty"`
	SummaryFormat   string `yaml:"summary_format,omitempty"`
}

type ReportConfig struct {
	Title string `yaml:"title"`
}

// CorrectionEnabled reports whether Yates correction applies, defaulting to true.
func (a AnalysisConfig) CorrectionEnabled() bool {
	return a.ChiSquareCorrection == nil || *a.ChiSquareCorrection
}

// CampaignFilter returns the campaign count rows must match, 1 when unset.
func (e ExperimentConfig) CampaignFilter() int {
	if e.Campaign == nil {
		return 1
	}
	return *e.Campaign
}

func (b BayesConfig) IsEnabled() bool {
	return b.Enabled == nil || *b.Enabled
}

// Record is one customer contact from the bank marketing campaign.
// Converted and Group are derived during preprocessing.
type Record struct {
	Age       int    `csv:"age" json:"age"`
	Job       string `csv:"job" json:"job"`
	Marital   string `csv:"marital" json:"marital"`
	Education string `csv:"education" json:"education"`
	Default   string `csv:"default" json:"default"`
	Balance   int64  `csv:"balance" json:"balance"`
	Housing   string `csv:"housing" json:"housing"`
	Loan      string `csv:"loan" json:"loan"`
	Contact   string `csv:"contact" json:"contact"`
	Day       int    `csv:"day" json:"day"`
	Month     string `csv:"month" json:"month"`
	Duration  int    `csv:"duration" json:"duration"`
	Campaign  int    `csv:"campaign" json:"campaign"`
	Pdays     int    `csv:"pdays" json:"pdays"`
	Previous  int    `csv:"previous" json:"previous"`
	Poutcome  string `csv:"poutcome" json:"poutcome"`
	Y         string `csv:"y" json:"y"`
	Converted int    `csv:"converted" json:"converted"`
	Group     string `csv:"group" json:"group"`
}

// Dataset is an ordered record table. Steps never modify a Dataset in place;
// they return a new one.
type Dataset struct {
	Records []Record
}

func (d Dataset) Len() int {
	return len(d.Records)
}

// Clone returns a deep copy safe for the next step to modify.
func (d Dataset) Clone() Dataset {
	records := make([]Record, len(d.Records))
	copy(records, d.Records)
	return Dataset{Records: records}
}

// Outcomes returns the binary outcomes of the rows labeled group.
func (d Dataset) Outcomes(group string) []int {
	var out []int
	for _, r := range d.Records {
		if r.Group == group {
			out = append(out, r.Converted)
		}
	}
	return out
}

type GroupSummary struct {
	Group          string  `json:"group"`
	SampleSize     int     `json:"sample_size"`
	Conversions    int     `json:"conversions"`
	ConversionRate float64 `json:"conversion_rate"`
	WilsonLower    float64 `json:"wilson_lower"`
	WilsonUpper    float64 `json:"wilson_upper"`
}

type BinSummary struct {
	Label    string  `json:"label"`
	Lower    float64 `json:"lower"`
	Upper    float64 `json:"upper"`
	Count    int     `json:"count"`
	MeanRate float64 `json:"mean_rate"`
}

type ChiSquareResult struct {
	Statistic        float64     `json:"statistic"`
	PValue           float64     `json:"p_value"`
	DegreesOfFreedom int         `json:"degrees_of_freedom"`
	Corrected        bool        `json:"corrected"`
	Expected         [][]float64 `json:"expected"`
	Observed         [2][2]int   `json:"observed"`
}

// MinExpected is the smallest expected cell count.
func (c ChiSquareResult) MinExpected() float64 {
	min := -1.0
	for _, row := range c.Expected {
		for _, v := range row {
			if min < 0 || v < min {
				min = v
			}
		}
	}
	return min
}

type ZTestResult struct {
	Statistic   float64 `json:"statistic"`
	PValue      float64 `json:"p_value"`
	Alternative string  `json:"alternative"`
}

type Impact struct {
	RateA                 float64 `json:"rate_a"`
	RateB                 float64 `json:"rate_b"`
	Uplift                float64 `json:"uplift"`
	AdditionalConversions float64 `json:"additional_conversions"`
	AdditionalRevenue     float64 `json:"additional_revenue"`
}

type VariantData struct {
	Name      string
	Totals    int
	Positives int
}

type VariantResult struct {
	Variant       string  `json:"variant"`
	Totals        int     `json:"totals"`
	Positives     int     `json:"positives"`
	PositiveRate  float64 `json:"positive_rate"`
	PosteriorMean float64 `json:"posterior_mean"`
	ProbBeingBest float64 `json:"prob_being_best"`
	ExpectedLoss  float64 `json:"expected_loss"`
}

// Analysis carries every figure computed during one run.
type Analysis struct {
	RunID        string          `json:"run_id"`
	Date         time.Time       `json:"date"`
	InputFile    string          `json:"input_file"`
	TotalSamples int             `json:"total_samples"`
	OverallRate  float64         `json:"overall_rate"`
	Groups       []GroupSummary  `json:"groups"`
	AgeBins      []BinSummary    `json:"age_bins"`
	ChiSquare    ChiSquareResult `json:"chi_square"`
	ZTest        ZTestResult     `json:"z_test"`
	Impact       Impact          `json:"impact"`
	Bayes        []VariantResult `json:"bayes,omitempty"`
}

// Group returns the summary for label, or a zero summary when absent.
func (a *Analysis) Group(label string) GroupSummary {
	for _, g := range a.Groups {
		if g.Group == label {
			return g
		}
	}
	return GroupSummary{Group: label}
}

// ProbBest returns the Bayesian probability that variant is best, if computed.
func (a *Analysis) ProbBest(variant string) (float64, bool) {
	for _, v := range a.Bayes {
		if v.Variant == variant {
			return v.ProbBeingBest, true
		}
	}
	return 0, false
}
