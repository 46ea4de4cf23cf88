package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mobility-cli/internal/fetcher"
	"github.com/sells-group/mobility-cli/internal/model"
)

// ReadSource reads any supported input file into a table: csv, tsv, txt,
// xlsx, geojson, shp, or a zip archive holding one of those.
func ReadSource(ctx context.Context, path string) (*fetcher.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return ReadGeoJSON(path)
	case ".shp":
		return ReadShapefile(path)
	case ".zip":
		dir, err := os.MkdirTemp("", "mobility-ingest-*")
		if err != nil {
			return nil, eris.Wrap(err, "ingest: create temp dir")
		}
		defer os.RemoveAll(dir) //nolint:errcheck

		files, err := fetcher.ExtractZIP(path, dir)
		if err != nil {
			return nil, err
		}
		if shpPath, ok := fetcher.FindByExt(files, ".shp"); ok {
			zap.L().Debug("ingest: reading shapefile from archive", zap.String("archive", path), zap.String("file", filepath.Base(shpPath)))
			return ReadShapefile(shpPath)
		}
		if gj, ok := fetcher.FindByExt(files, ".geojson", ".json"); ok {
			return ReadGeoJSON(gj)
		}
		return fetcher.ReadTable(ctx, path)
	default:
		return fetcher.ReadTable(ctx, path)
	}
}

// LoadPings reads and cleanses a ping file.
func LoadPings(ctx context.Context, path string) ([]model.Ping, CleanReport, error) {
	t, err := ReadSource(ctx, path)
	if err != nil {
		return nil, CleanReport{Entity: "pings"}, eris.Wrap(err, "ingest: read pings")
	}
	return CleanPings(t)
}

// LoadAreas reads and cleanses an area catalog.
func LoadAreas(ctx context.Context, path string) ([]model.Area, CleanReport, error) {
	t, err := ReadSource(ctx, path)
	if err != nil {
		return nil, CleanReport{Entity: "areas"}, eris.Wrap(err, "ingest: read areas")
	}
	return CleanAreas(t)
}

// LoadPopulation reads and cleanses a population grid.
func LoadPopulation(ctx context.Context, path string) ([]model.PopulationCell, CleanReport, error) {
	t, err := ReadSource(ctx, path)
	if err != nil {
		return nil, CleanReport{Entity: "population"}, eris.Wrap(err, "ingest: read population")
	}
	return CleanPopulation(t)
}

// LoadBuildings reads and cleanses a building register.
func LoadBuildings(ctx context.Context, path string) ([]model.Building, CleanReport, error) {
	t, err := ReadSource(ctx, path)
	if err != nil {
		return nil, CleanReport{Entity: "buildings"}, eris.Wrap(err, "ingest: read buildings")
	}
	return CleanBuildings(t)
}
