package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mobility-cli/internal/ingest"
	"github.com/sells-group/mobility-cli/internal/report"
)

// Clean loads and cleanses the configured inputs and writes one CSV per
// entity plus a cleansing report to output.cleaned_dir.
func (p *Pipeline) Clean(ctx context.Context) (*Inputs, []string, error) {
	in, err := p.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	sheets := []report.Sheet{
		{Name: "pings", Table: ingest.PingsTable(in.Pings)},
		{Name: "areas", Table: ingest.AreasTable(in.Areas)},
	}
	if p.cfg.Input.Population != "" {
		sheets = append(sheets, report.Sheet{Name: "population", Table: ingest.PopulationTable(in.Population)})
	}
	if p.cfg.Input.Buildings != "" {
		sheets = append(sheets, report.Sheet{Name: "buildings", Table: ingest.BuildingsTable(in.Buildings)})
	}
	sheets = append(sheets, report.CleanSheet(in.Cleansing))

	files, err := report.WriteCSVs(p.cfg.Output.CleanedDir, sheets)
	if err != nil {
		return nil, files, eris.Wrap(err, "pipeline: write cleaned tables")
	}

	zap.L().Info("pipeline: clean complete",
		zap.String("dir", p.cfg.Output.CleanedDir),
		zap.Int("files", len(files)),
	)
	return in, files, nil
}
