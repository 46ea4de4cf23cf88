// Package pipeline sequences loading, the mobility analyses, export and
// persistence of one analysis run.
package pipeline

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/mobility-cli/internal/assign"
	"github.com/sells-group/mobility-cli/internal/buildings"
	"github.com/sells-group/mobility-cli/internal/config"
	"github.com/sells-group/mobility-cli/internal/covisit"
	"github.com/sells-group/mobility-cli/internal/demographic"
	"github.com/sells-group/mobility-cli/internal/hourly"
	"github.com/sells-group/mobility-cli/internal/ingest"
	"github.com/sells-group/mobility-cli/internal/model"
	"github.com/sells-group/mobility-cli/internal/repeat"
	"github.com/sells-group/mobility-cli/internal/report"
	"github.com/sells-group/mobility-cli/internal/residence"
	"github.com/sells-group/mobility-cli/internal/store"
)

// Analysis names used in statuses, stored results and the manifest.
const (
	AnalysisCovisit     = "covisit"
	AnalysisRepeat      = "repeat"
	AnalysisHourly      = "hourly"
	AnalysisDemographic = "demographic"
	AnalysisBuildings   = "buildings"
	AnalysisHome        = "home"
	AnalysisWork        = "work"
)

// Inputs are the cleansed entities of one run.
type Inputs struct {
	Pings      []model.Ping
	Areas      []model.Area
	Population []model.PopulationCell
	Buildings  []model.Building
	Cleansing  []ingest.CleanReport
}

// Users returns the number of distinct non-empty user ids.
func (in *Inputs) Users() int {
	seen := make(map[string]struct{})
	for _, p := range in.Pings {
		if p.UserID != "" {
			seen[p.UserID] = struct{}{}
		}
	}
	return len(seen)
}

// Result holds every analysis output of a run. Analyses that were not
// configured are nil.
type Result struct {
	RunID        string
	Covisit      *covisit.Matrix
	Repeat       *repeat.Result
	Hourly       *hourly.Distribution
	Demographics []demographic.Summary
	Buildings    []buildings.Summary
	Home         *residence.Result
	Work         *residence.Result
	Files        []string
}

// Statuses returns the status of each analysis that ran. Per-area analyses
// report OK when any area succeeded, otherwise the first area's status.
func (r *Result) Statuses() map[string]model.Status {
	out := map[string]model.Status{}
	if r.Covisit != nil {
		out[AnalysisCovisit] = r.Covisit.Status
	}
	if r.Repeat != nil {
		out[AnalysisRepeat] = r.Repeat.Status
	}
	if r.Hourly != nil {
		out[AnalysisHourly] = r.Hourly.Status
	}
	if len(r.Demographics) > 0 {
		statuses := make([]model.Status, len(r.Demographics))
		for i, s := range r.Demographics {
			statuses[i] = s.Status
		}
		out[AnalysisDemographic] = combine(statuses)
	}
	if len(r.Buildings) > 0 {
		statuses := make([]model.Status, len(r.Buildings))
		for i, s := range r.Buildings {
			statuses[i] = s.Status
		}
		out[AnalysisBuildings] = combine(statuses)
	}
	if r.Home != nil {
		out[AnalysisHome] = r.Home.Status
	}
	if r.Work != nil {
		out[AnalysisWork] = r.Work.Status
	}
	return out
}

func combine(statuses []model.Status) model.Status {
	for _, s := range statuses {
		if s == model.StatusOK {
			return model.StatusOK
		}
	}
	return statuses[0]
}

// Pipeline runs the configured analyses. The store is optional.
type Pipeline struct {
	cfg   *config.Config
	store store.Store
}

// New creates a Pipeline. st may be nil to skip persistence.
func New(cfg *config.Config, st store.Store) *Pipeline {
	return &Pipeline{cfg: cfg, store: st}
}

// Run loads the inputs, analyzes them, exports the reports and records the
// run in the store.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	input := model.RunInput{
		Pings:      p.cfg.Input.Pings,
		Areas:      p.cfg.Input.Areas,
		Population: p.cfg.Input.Population,
		Buildings:  p.cfg.Input.Buildings,
		WindowDays: p.cfg.Analysis.DecayWindowDays,
		Metric:     p.cfg.Analysis.NearestMetric,
	}

	var run *model.Run
	if p.store != nil {
		var err error
		run, err = p.store.CreateRun(ctx, input)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
	}
	fail := func(err error) (*Result, error) {
		if run != nil {
			if storeErr := p.store.FailRun(ctx, run.ID, err); storeErr != nil {
				zap.L().Warn("pipeline: failed to record run failure", zap.Error(storeErr))
			}
		}
		return nil, err
	}

	in, err := p.Load(ctx)
	if err != nil {
		return fail(err)
	}

	res, err := p.Analyze(ctx, in)
	if err != nil {
		return fail(err)
	}
	if run != nil {
		res.RunID = run.ID
	} else {
		res.RunID = start.UTC().Format("20060102T150405")
	}

	files, err := p.Export(res, in, input, start)
	if err != nil {
		return fail(err)
	}
	res.Files = files

	if run != nil {
		results, err := StoredResults(res)
		if err != nil {
			return fail(err)
		}
		if err := p.store.SaveResults(ctx, run.ID, results); err != nil {
			return fail(eris.Wrap(err, "pipeline: save results"))
		}
		summary := &model.RunSummary{
			Pings:      len(in.Pings),
			Areas:      len(in.Areas),
			Users:      in.Users(),
			Analyses:   res.Statuses(),
			Files:      files,
			DurationMs: time.Since(start).Milliseconds(),
		}
		if err := p.store.CompleteRun(ctx, run.ID, summary); err != nil {
			return nil, eris.Wrap(err, "pipeline: complete run")
		}
	}

	zap.L().Info("pipeline: run complete",
		zap.String("run_id", res.RunID),
		zap.Int("files", len(files)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// Load reads and cleanses the configured inputs concurrently. Population
// and buildings are optional.
func (p *Pipeline) Load(ctx context.Context) (*Inputs, error) {
	in := &Inputs{}
	reports := make([]ingest.CleanReport, 4)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pings, rep, err := ingest.LoadPings(gCtx, p.cfg.Input.Pings)
		in.Pings, reports[0] = pings, rep
		return err
	})
	g.Go(func() error {
		areas, rep, err := ingest.LoadAreas(gCtx, p.cfg.Input.Areas)
		in.Areas, reports[1] = areas, rep
		return err
	})
	if p.cfg.Input.Population != "" {
		g.Go(func() error {
			cells, rep, err := ingest.LoadPopulation(gCtx, p.cfg.Input.Population)
			in.Population, reports[2] = cells, rep
			return err
		})
	}
	if p.cfg.Input.Buildings != "" {
		g.Go(func() error {
			bs, rep, err := ingest.LoadBuildings(gCtx, p.cfg.Input.Buildings)
			in.Buildings, reports[3] = bs, rep
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: load inputs")
	}

	for _, r := range reports {
		if r.Entity == "" {
			continue
		}
		r.Log()
		in.Cleansing = append(in.Cleansing, r)
	}
	return in, nil
}

// areaNames returns the configured single-area targets, or every area.
func (p *Pipeline) areaNames(areas []model.Area) []string {
	if len(p.cfg.Analysis.Areas) > 0 {
		return p.cfg.Analysis.Areas
	}
	names := make([]string, len(areas))
	for i, a := range areas {
		names[i] = a.Name
	}
	return names
}

// Analyze runs every configured analysis over in. Containment and nearest
// assignment are computed once and shared read-only by the analyses, which
// run concurrently up to analysis.concurrency.
func (p *Pipeline) Analyze(ctx context.Context, in *Inputs) (*Result, error) {
	metric, err := assign.ParseMetric(p.cfg.Analysis.NearestMetric)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: nearest metric")
	}

	membership, err := assign.Containment(in.Pings, in.Areas, assign.Options{Index: p.cfg.Analysis.SpatialIndex})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: containment")
	}
	labels, err := assign.Nearest(in.Pings, in.Areas, metric)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: nearest")
	}

	res := &Result{}
	names := p.areaNames(in.Areas)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.cfg.Analysis.Concurrency, 1))

	track := func(name string, fn func() error) {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			start := time.Now()
			if err := fn(); err != nil {
				return eris.Wrapf(err, "pipeline: %s", name)
			}
			zap.L().Info("pipeline: analysis complete",
				zap.String("analysis", name),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
			return nil
		})
	}

	track(AnalysisCovisit, func() error {
		m, err := covisit.Build(in.Pings, membership)
		res.Covisit = &m
		return err
	})
	track(AnalysisRepeat, func() error {
		r, err := repeat.Analyze(in.Pings, membership, p.cfg.Analysis.DecayWindowDays)
		res.Repeat = &r
		return err
	})
	track(AnalysisHourly, func() error {
		d, err := hourly.Structure(in.Pings, labels)
		res.Hourly = &d
		return err
	})
	if len(in.Population) > 0 {
		res.Demographics = make([]demographic.Summary, len(names))
		for i, name := range names {
			track(AnalysisDemographic, func() error {
				res.Demographics[i] = demographic.Summarize(in.Population, in.Areas, name)
				return nil
			})
		}
	}
	if len(in.Buildings) > 0 {
		track(AnalysisBuildings, func() error {
			res.Buildings = buildings.SummarizeMany(in.Buildings, in.Areas, names)
			return nil
		})
	}
	if est := p.cfg.Analysis.Residence; est.Enabled() {
		track(AnalysisHome, func() error {
			r, err := estimate(in, est)
			res.Home = &r
			return err
		})
	}
	if est := p.cfg.Analysis.Work; est.Enabled() {
		track(AnalysisWork, func() error {
			r, err := estimate(in, est)
			res.Work = &r
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func estimate(in *Inputs, est config.EstimateConfig) (residence.Result, error) {
	window := residence.HourWindow{Start: est.StartHour, End: est.EndHour}
	if err := window.Validate(); err != nil {
		return residence.Result{}, err
	}
	return residence.Estimate(in.Pings, in.Areas, est.Location1, est.Location2, window)
}

// Sheets renders every available result.
func Sheets(res *Result, in *Inputs) []report.Sheet {
	var sheets []report.Sheet
	if res.Covisit != nil {
		sheets = append(sheets, report.CovisitSheet(*res.Covisit))
	}
	if res.Repeat != nil {
		sheets = append(sheets, report.RepeatSheets(*res.Repeat)...)
	}
	if res.Hourly != nil {
		sheets = append(sheets, report.HourlySheet(*res.Hourly))
	}
	for _, d := range res.Demographics {
		sheets = append(sheets, report.DemographicSheet(d))
	}
	if len(res.Buildings) > 0 {
		sheets = append(sheets, report.BuildingsSheets(res.Buildings)...)
	}
	if res.Home != nil {
		sheets = append(sheets, report.ResidenceSheet(AnalysisHome, *res.Home))
	}
	if res.Work != nil {
		sheets = append(sheets, report.ResidenceSheet(AnalysisWork, *res.Work))
	}
	if in != nil && len(in.Cleansing) > 0 {
		sheets = append(sheets, report.CleanSheet(in.Cleansing))
	}
	return sheets
}

// Export writes the report in the configured format plus a manifest and
// returns the written paths, manifest last.
func (p *Pipeline) Export(res *Result, in *Inputs, input model.RunInput, start time.Time) ([]string, error) {
	dir := filepath.Join(p.cfg.Output.Dir, res.RunID)
	sheets := Sheets(res, in)

	var files []string
	switch p.cfg.Output.Format {
	case "csv":
		paths, err := report.WriteCSVs(dir, sheets)
		if err != nil {
			return nil, err
		}
		files = paths
	default:
		path := filepath.Join(dir, "report.xlsx")
		if err := report.WriteXLSX(path, sheets); err != nil {
			return nil, err
		}
		files = []string{path}
	}

	manifestPath := filepath.Join(dir, "manifest.yaml")
	err := report.WriteManifest(manifestPath, report.Manifest{
		RunID:     res.RunID,
		CreatedAt: start.UTC(),
		Input:     input,
		Pings:     len(in.Pings),
		Areas:     len(in.Areas),
		Users:     in.Users(),
		Analyses:  res.Statuses(),
		Cleansing: in.Cleansing,
		Files:     files,
	})
	if err != nil {
		return nil, err
	}
	return append(files, manifestPath), nil
}

// StoredResults converts a result into rows for the result store.
func StoredResults(res *Result) ([]model.AnalysisResult, error) {
	var out []model.AnalysisResult
	add := func(analysis, area string, status model.Status, v any) error {
		payload, err := json.Marshal(v)
		if err != nil {
			return eris.Wrapf(err, "pipeline: marshal %s result", analysis)
		}
		out = append(out, model.AnalysisResult{Analysis: analysis, Area: area, Status: status, Payload: payload})
		return nil
	}

	type entry struct {
		analysis, area string
		status         model.Status
		value          any
	}
	var entries []entry
	if res.Covisit != nil {
		entries = append(entries, entry{AnalysisCovisit, "", res.Covisit.Status, res.Covisit})
	}
	if res.Repeat != nil {
		entries = append(entries, entry{AnalysisRepeat, "", res.Repeat.Status, res.Repeat})
	}
	if res.Hourly != nil {
		entries = append(entries, entry{AnalysisHourly, "", res.Hourly.Status, res.Hourly})
	}
	for _, d := range res.Demographics {
		entries = append(entries, entry{AnalysisDemographic, d.Area, d.Status, d})
	}
	for _, b := range res.Buildings {
		entries = append(entries, entry{AnalysisBuildings, b.Area, b.Status, b})
	}
	if res.Home != nil {
		entries = append(entries, entry{AnalysisHome, "", res.Home.Status, res.Home})
	}
	if res.Work != nil {
		entries = append(entries, entry{AnalysisWork, "", res.Work.Status, res.Work})
	}

	for _, e := range entries {
		if err := add(e.analysis, e.area, e.status, e.value); err != nil {
			return nil, err
		}
	}
	return out, nil
}
