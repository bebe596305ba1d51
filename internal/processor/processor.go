package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Vitruves/abtest-report/internal/bayes"
	"github.com/Vitruves/abtest-report/internal/charts"
	"github.com/Vitruves/abtest-report/internal/impact"
	"github.com/Vitruves/abtest-report/internal/loader"
	"github.com/Vitruves/abtest-report/internal/logger"
	"github.com/Vitruves/abtest-report/internal/models"
	"github.com/Vitruves/abtest-report/internal/preprocess"
	"github.com/Vitruves/abtest-report/internal/progress"
	"github.com/Vitruves/abtest-report/internal/reporter"
	"github.com/Vitruves/abtest-report/internal/stats"
	"github.com/Vitruves/abtest-report/internal/utils"
	"github.com/Vitruves/abtest-report/internal/writer"

	"github.com/google/uuid"
)

// smallExpected is the expected cell count below which the chi-square
// approximation is flagged.
const smallExpected = 5

type Processor struct {
	config    *models.Config
	estimator bayes.Estimator
	artifacts []Artifact
}

type Options struct {
	InputFile string
	Verbose   bool
	// Now stamps the report date. Defaults to time.Now.
	Now func() time.Time
}

// Artifact is a file written by a run.
type Artifact struct {
	Kind string
	Path string
}

func New(config *models.Config) *Processor {
	var estimator bayes.Estimator = bayes.Unavailable{}
	if config.Bayes.IsEnabled() {
		estimator = bayes.New(config.Bayes)
	}

	return &Processor{
		config:    config,
		estimator: estimator,
	}
}

// SetEstimator replaces the Bayesian estimator.
func (p *Processor) SetEstimator(estimator bayes.Estimator) {
	p.estimator = estimator
}

func (p *Processor) Artifacts() []Artifact {
	return p.artifacts
}

// Run executes the whole analysis in order. The first failing step stops
// the run; ctx is checked before each step.
func (p *Processor) Run(ctx context.Context, opts Options) (*models.Analysis, error) {
	inputFile := opts.InputFile
	if inputFile == "" {
		inputFile = p.config.Input.File
	}
	if inputFile == "" {
		return nil, fmt.Errorf("no input file given")
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	if err := os.MkdirAll(p.config.Output.Directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	p.artifacts = nil
	analysis := &models.Analysis{
		RunID:     uuid.NewString(),
		Date:      now(),
		InputFile: inputFile,
	}

	steps := []step{
		{"Loading data", p.load},
		{"Preparing groups", p.prepare},
		{"Describing groups", p.describe},
		{"Testing significance", p.test},
		{"Estimating business impact", p.estimate},
		{"Writing report", p.writeReport},
		{"Running Bayesian analysis", p.runBayes},
		{"Exporting results", p.export},
	}
	if p.config.Output.SummaryFormat != "" {
		steps = append(steps, step{"Writing summary", p.writeSummary})
	}

	logger.Info("Run %s on %s", analysis.RunID, inputFile)
	if opts.Verbose {
		logger.DebugSystem()
		logger.DebugConfig(p.config)
	}

	state := &runState{analysis: analysis, inputFile: inputFile}
	prog := progress.New(len(steps))

	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("cancelled before %s: %w", st.name, err)
		}

		prog.Step(st.name)
		if err := st.run(state); err != nil {
			return nil, fmt.Errorf("%s: %w", st.name, err)
		}
	}

	prog.Stop()
	return analysis, nil
}

type step struct {
	name string
	run  func(*runState) error
}

// runState carries data between steps.
type runState struct {
	analysis  *models.Analysis
	inputFile string
	raw       models.Dataset
	prepared  models.Dataset
}

func (p *Processor) load(s *runState) error {
	ds, err := loader.LoadRecords(s.inputFile, p.config.Input.Delimiter)
	if err != nil {
		return fmt.Errorf("failed to load data: %w", err)
	}

	s.raw = ds
	logger.Info("Loaded %d rows", ds.Len())
	return nil
}

func (p *Processor) prepare(s *runState) error {
	s.prepared = preprocess.Prepare(s.raw, p.config.Experiment)
	s.analysis.TotalSamples = s.prepared.Len()

	if campaign := p.config.Experiment.CampaignFilter(); campaign > 0 {
		logger.Info("Kept %d of %d rows with campaign = %d", s.prepared.Len(), s.raw.Len(), campaign)
	}

	counts := preprocess.GroupCounts(s.prepared)
	for _, label := range []string{preprocess.GroupA, preprocess.GroupB} {
		logger.Value("Group "+label, "%d (%.1f%%)", counts[label], utils.CalculatePercentage(counts[label], s.prepared.Len()))
	}

	if counts[preprocess.GroupA] == 0 || counts[preprocess.GroupB] == 0 {
		return fmt.Errorf("both groups need rows, got A=%d B=%d", counts[preprocess.GroupA], counts[preprocess.GroupB])
	}
	return nil
}

func (p *Processor) describe(s *runState) error {
	a := s.analysis
	a.Groups = stats.GroupStats(s.prepared, p.config.Analysis.Confidence)
	a.OverallRate = stats.OverallRate(s.prepared)
	a.AgeBins = stats.AgeBins(s.prepared, p.config.Analysis.AgeBins)

	for _, g := range a.Groups {
		logger.Value("Conversion "+g.Group, "%.4f (n=%d, %.0f%% CI %.4f-%.4f)",
			g.ConversionRate, g.SampleSize, p.config.Analysis.Confidence*100, g.WilsonLower, g.WilsonUpper)
	}
	logger.Value("Overall conversion", "%.4f", a.OverallRate)
	for _, b := range a.AgeBins {
		logger.Value("Age "+b.Label, "%.4f (n=%d)", b.MeanRate, b.Count)
	}

	out := p.config.Output
	conversionPath := utils.OutputPath(out.Directory, out.ConversionChart)
	if err := charts.RenderConversion(conversionPath, a.Groups, p.config.Analysis.ConversionYMax); err != nil {
		return err
	}
	p.addArtifact("conversion chart", conversionPath)

	agePath := utils.OutputPath(out.Directory, out.AgeChart)
	if err := charts.RenderAgeDistribution(agePath, s.prepared, p.config.Analysis.HistBins); err != nil {
		return err
	}
	p.addArtifact("age chart", agePath)

	return nil
}

func (p *Processor) test(s *runState) error {
	chi, z, err := stats.TestGroups(s.prepared, preprocess.GroupA, preprocess.GroupB, p.config.Analysis.CorrectionEnabled())
	if err != nil {
		return err
	}
	s.analysis.ChiSquare = chi
	s.analysis.ZTest = z

	logger.Value("Chi-square", "%.4f, p-value: %.4f", chi.Statistic, chi.PValue)
	logger.Value("Z-test", "%.4f, p-value: %.4f", z.Statistic, z.PValue)

	if lowest := chi.MinExpected(); lowest >= 0 && lowest < smallExpected {
		logger.Warning("Smallest expected cell count is %.2f, the chi-square approximation may be unreliable", lowest)
	}
	return nil
}

func (p *Processor) estimate(s *runState) error {
	a := s.analysis
	im, err := impact.Estimate(a.Group(preprocess.GroupA).ConversionRate, a.Group(preprocess.GroupB).ConversionRate, a.TotalSamples, p.config.Business)
	if err != nil {
		return err
	}
	a.Impact = im

	logger.Value("Uplift", "%.2f%%", im.Uplift*100)
	logger.Value("Additional conversions per "+p.config.Business.ScaleLabel, "%.0f", im.AdditionalConversions)
	logger.Value("Additional revenue", "$%.0f", im.AdditionalRevenue)
	return nil
}

func (p *Processor) writeReport(s *runState) error {
	path := utils.OutputPath(p.config.Output.Directory, p.config.Output.ReportFile)

	rep := reporter.New(s.analysis, p.config)
	if err := rep.SaveText(path); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	p.addArtifact("report", path)

	logger.Info("Decision: %s", reporter.Decision(s.analysis.ZTest.PValue, p.config.Analysis.Alpha))
	return nil
}

func (p *Processor) runBayes(s *runState) error {
	variants := bayes.VariantsFromDataset(s.prepared, preprocess.GroupA, preprocess.GroupB)

	results, err := p.estimator.Evaluate(variants, p.config.Bayes.Simulations)
	if errors.Is(err, bayes.ErrUnavailable) {
		logger.Warning("Bayesian analysis skipped: %v", err)
		return nil
	}
	if err != nil {
		return err
	}
	s.analysis.Bayes = results

	if prob, ok := s.analysis.ProbBest(preprocess.GroupB); ok {
		logger.Value("Bayesian probability that B is better", "%.2f%%", prob*100)
	}
	return nil
}

func (p *Processor) export(s *runState) error {
	out := p.config.Output
	path := utils.OutputPath(out.Directory, out.ExportFile)

	if err := writer.Export(s.prepared, path, out.ExportFormat); err != nil {
		return fmt.Errorf("failed to export results: %w", err)
	}
	p.addArtifact("results", path)
	return nil
}

func (p *Processor) writeSummary(s *runState) error {
	out := p.config.Output
	path := utils.OutputPath(out.Directory, out.SummaryFile)

	rep := reporter.New(s.analysis, p.config)
	if err := rep.SaveToFile(path, out.SummaryFormat); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	p.addArtifact("summary", path)
	return nil
}

func (p *Processor) addArtifact(kind, path string) {
	p.artifacts = append(p.artifacts, Artifact{Kind: kind, Path: path})
	logger.Debug("Wrote %s to %s", kind, path)
}
