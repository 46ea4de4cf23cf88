package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mobility-cli/internal/assign"
	"github.com/sells-group/mobility-cli/internal/config"
	"github.com/sells-group/mobility-cli/internal/covisit"
	"github.com/sells-group/mobility-cli/internal/demographic"
	"github.com/sells-group/mobility-cli/internal/fetcher"
	"github.com/sells-group/mobility-cli/internal/geometry"
	"github.com/sells-group/mobility-cli/internal/model"
	"github.com/sells-group/mobility-cli/internal/report"
	"github.com/sells-group/mobility-cli/internal/store"
)

const (
	mokotowWKT = "POLYGON((21 52, 21.1 52, 21.1 52.1, 21 52.1, 21 52))"
	wolaWKT    = "POLYGON((21.2 52, 21.3 52, 21.3 52.1, 21.2 52.1, 21.2 52))"
)

func ts(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testAreas() []model.Area {
	return []model.Area{
		{Name: "Mokotów", Boundary: geometry.DecodeString(mokotowWKT), Lat: 52.05, Lng: 21.05},
		{Name: "Wola", Boundary: geometry.DecodeString(wolaWKT), Lat: 52.05, Lng: 21.25},
	}
}

func testPings() []model.Ping {
	return []model.Ping{
		{UserID: "u1", Timestamp: ts("2024-03-01 08:00"), Lat: 52.05, Lng: 21.05},
		{UserID: "u1", Timestamp: ts("2024-03-02 09:00"), Lat: 52.05, Lng: 21.25},
		{UserID: "u1", Timestamp: ts("2024-03-04 23:00"), Lat: 52.06, Lng: 21.26},
		{UserID: "u2", Timestamp: ts("2024-03-01 10:00"), Lat: 52.05, Lng: 21.05},
		{UserID: "u3", Timestamp: ts("2024-03-01 12:00"), Lat: 52.5, Lng: 21.5},
	}
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		Input: config.InputConfig{
			Pings: filepath.Join(dir, "traffic.csv"),
			Areas: filepath.Join(dir, "locations.csv"),
		},
		Output: config.OutputConfig{
			Dir:        filepath.Join(dir, "output"),
			CleanedDir: filepath.Join(dir, "cleaned"),
			Format:     "xlsx",
		},
		Analysis: config.AnalysisConfig{
			DecayWindowDays: 14,
			NearestMetric:   "great_circle",
			SpatialIndex:    true,
			Residence:       config.EstimateConfig{Location1: "Mokotów", Location2: "Wola", StartHour: 22, EndHour: 5},
			Concurrency:     2,
		},
	}
}

func writeInputs(t *testing.T, cfg *config.Config) {
	t.Helper()
	pings := &fetcher.Table{Header: []string{"user_id", "occured_at", "latitude", "longitude"}}
	for _, p := range testPings() {
		pings.Rows = append(pings.Rows, []string{
			p.UserID, p.Timestamp.Format("2006-01-02 15:04:05"),
			formatCoord(p.Lat), formatCoord(p.Lng),
		})
	}
	// Full-row duplicate, dropped by cleansing.
	pings.Rows = append(pings.Rows, pings.Rows[0])
	require.NoError(t, fetcher.WriteCSV(cfg.Input.Pings, pings))

	areas := &fetcher.Table{
		Header: []string{"location", "lat", "lng", "geometry"},
		Rows: [][]string{
			{"Mokotów", "52.05", "21.05", mokotowWKT},
			{"Wola", "52.05", "21.25", wolaWKT},
		},
	}
	require.NoError(t, fetcher.WriteCSV(cfg.Input.Areas, areas))
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func TestAnalyze(t *testing.T) {
	p := New(testConfig(t.TempDir()), nil)
	in := &Inputs{Pings: testPings(), Areas: testAreas()}

	res, err := p.Analyze(context.Background(), in)
	require.NoError(t, err)

	require.NotNil(t, res.Covisit)
	assert.Equal(t, model.StatusOK, res.Covisit.Status)
	assert.Equal(t, []string{"Mokotów", "Wola"}, res.Covisit.Areas)
	assert.Equal(t, 1, res.Covisit.Users)
	assert.Equal(t, 1, res.Covisit.At("Mokotów", "Wola"))
	assert.Equal(t, 1, res.Covisit.At("Wola", "Mokotów"))

	require.NotNil(t, res.Repeat)
	assert.Equal(t, model.StatusOK, res.Repeat.Status)
	assert.Equal(t, 14, res.Repeat.WindowDays)

	require.NotNil(t, res.Hourly)
	assert.Equal(t, model.StatusOK, res.Hourly.Status)

	require.NotNil(t, res.Home)
	assert.Equal(t, model.StatusOK, res.Home.Status)
	require.Len(t, res.Home.Estimates, 1)
	assert.Equal(t, "u1", res.Home.Estimates[0].UserID)
	assert.InDelta(t, 52.06, res.Home.Estimates[0].Lat, 1e-9)
	assert.InDelta(t, 21.26, res.Home.Estimates[0].Lng, 1e-9)

	assert.Nil(t, res.Work)
	assert.Nil(t, res.Demographics)
	assert.Nil(t, res.Buildings)

	assert.Equal(t, map[string]model.Status{
		AnalysisCovisit: model.StatusOK,
		AnalysisRepeat:  model.StatusOK,
		AnalysisHourly:  model.StatusOK,
		AnalysisHome:    model.StatusOK,
	}, res.Statuses())
}

func TestAnalyze_NoAreas(t *testing.T) {
	p := New(testConfig(t.TempDir()), nil)
	_, err := p.Analyze(context.Background(), &Inputs{Pings: testPings()})
	require.Error(t, err)
	assert.ErrorIs(t, err, assign.ErrNoAreas)
}

func TestAnalyze_UnknownMetric(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Analysis.NearestMetric = "manhattan"
	_, err := New(cfg, nil).Analyze(context.Background(), &Inputs{Pings: testPings(), Areas: testAreas()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nearest metric")
}

func TestAnalyze_NegativeWindow(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Analysis.DecayWindowDays = -1
	_, err := New(cfg, nil).Analyze(context.Background(), &Inputs{Pings: testPings(), Areas: testAreas()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: repeat")
}

func TestAnalyze_PerAreaTargets(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Analysis.Areas = []string{"Wola", "Nowhere"}
	cfg.Analysis.Residence = config.EstimateConfig{}

	cells := []model.PopulationCell{
		{Lat: 52.05, Lng: 21.25, Counts: map[string]float64{"FEMALE1924": 10, "MALE1924": 30}},
	}
	in := &Inputs{Pings: testPings(), Areas: testAreas(), Population: cells}

	res, err := New(cfg, nil).Analyze(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, res.Demographics, 2)
	assert.Equal(t, "Wola", res.Demographics[0].Area)
	assert.Equal(t, model.StatusOK, res.Demographics[0].Status)
	assert.Equal(t, "Nowhere", res.Demographics[1].Area)
	assert.Equal(t, model.StatusLocationNotFound, res.Demographics[1].Status)
	assert.Equal(t, model.StatusOK, res.Statuses()[AnalysisDemographic])
	assert.Nil(t, res.Home)
}

func TestStatuses_Combine(t *testing.T) {
	res := &Result{Demographics: []demographic.Summary{
		{Area: "a", Status: model.StatusLocationNotFound},
		{Area: "b", Status: model.StatusNoData},
	}}
	assert.Equal(t, model.StatusLocationNotFound, res.Statuses()[AnalysisDemographic])
	assert.Empty(t, (&Result{}).Statuses())
}

func TestStoredResults(t *testing.T) {
	res := &Result{
		Covisit: &covisit.Matrix{Status: model.StatusOK, Areas: []string{"a"}, Cells: [][]int{{2}}, Users: 2},
		Demographics: []demographic.Summary{
			{Area: "a", Status: model.StatusOK},
			{Area: "b", Status: model.StatusLocationNotFound},
		},
	}
	rows, err := StoredResults(res)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, AnalysisCovisit, rows[0].Analysis)
	assert.Empty(t, rows[0].Area)
	var m covisit.Matrix
	require.NoError(t, json.Unmarshal(rows[0].Payload, &m))
	assert.Equal(t, 2, m.Users)

	assert.Equal(t, AnalysisDemographic, rows[2].Analysis)
	assert.Equal(t, "b", rows[2].Area)
	assert.Equal(t, model.StatusLocationNotFound, rows[2].Status)
}

func openStore(t *testing.T, dir string) store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), config.StoreConfig{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(dir, "runs.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	writeInputs(t, cfg)
	st := openStore(t, dir)
	ctx := context.Background()

	res, err := New(cfg, st).Run(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)
	require.Len(t, res.Files, 2)
	assert.Equal(t, filepath.Join(cfg.Output.Dir, res.RunID, "report.xlsx"), res.Files[0])
	for _, f := range res.Files {
		_, statErr := os.Stat(f)
		assert.NoError(t, statErr, f)
	}

	m, err := report.ReadManifest(res.Files[1])
	require.NoError(t, err)
	assert.Equal(t, res.RunID, m.RunID)
	assert.Equal(t, 5, m.Pings)
	assert.Equal(t, 2, m.Areas)
	assert.Equal(t, 3, m.Users)
	assert.Equal(t, 14, m.Input.WindowDays)
	require.Len(t, m.Cleansing, 2)
	assert.Equal(t, 1, m.Cleansing[0].Duplicates)

	run, err := st.GetRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Summary)
	assert.Equal(t, 3, run.Summary.Users)
	assert.Equal(t, model.StatusOK, run.Summary.Analyses[AnalysisCovisit])

	results, err := st.ListResults(ctx, res.RunID)
	require.NoError(t, err)
	assert.Len(t, results, 4)
}

func TestRun_CSVOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Output.Format = "csv"
	writeInputs(t, cfg)

	res, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)

	runDir := filepath.Join(cfg.Output.Dir, res.RunID)
	for _, name := range []string{"covisitation.csv", "repeat-summary.csv", "hourly.csv", "home.csv", "cleansing.csv", "manifest.yaml"} {
		_, statErr := os.Stat(filepath.Join(runDir, name))
		assert.NoError(t, statErr, name)
	}

	home, err := fetcher.ReadTable(context.Background(), filepath.Join(runDir, "home.csv"))
	require.NoError(t, err)
	require.Len(t, home.Rows, 1)
	assert.Equal(t, "u1", home.Rows[0][0])
}

func TestRun_MissingInputMarksRunFailed(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	st := openStore(t, dir)
	ctx := context.Background()

	_, err := New(cfg, st).Run(ctx)
	require.Error(t, err)

	runs, err := st.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "load inputs")
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	writeInputs(t, cfg)

	in, files, err := New(cfg, nil).Clean(context.Background())
	require.NoError(t, err)
	assert.Len(t, in.Pings, 5)
	require.Len(t, files, 3)
	assert.Equal(t, filepath.Join(cfg.Output.CleanedDir, "pings.csv"), files[0])
	assert.Equal(t, filepath.Join(cfg.Output.CleanedDir, "cleansing.csv"), files[2])

	pings, err := fetcher.ReadTable(context.Background(), files[0])
	require.NoError(t, err)
	assert.Len(t, pings.Rows, 5)
}
