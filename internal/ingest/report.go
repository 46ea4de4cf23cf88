package ingest

import "go.uber.org/zap"

// CleanReport counts the rows dropped per reason while cleansing one entity.
type CleanReport struct {
	Entity         string `json:"entity" yaml:"entity"`
	Rows           int    `json:"rows" yaml:"rows"`
	Kept           int    `json:"kept" yaml:"kept"`
	Duplicates     int    `json:"duplicates" yaml:"duplicates"`
	Missing        int    `json:"missing" yaml:"missing"`
	BadTimestamp   int    `json:"bad_timestamp" yaml:"bad_timestamp"`
	BadCoordinate  int    `json:"bad_coordinate" yaml:"bad_coordinate"`
	ZeroCoordinate int    `json:"zero_coordinate" yaml:"zero_coordinate"`
	BadNumber      int    `json:"bad_number" yaml:"bad_number"`
	BadGeometry    int    `json:"bad_geometry" yaml:"bad_geometry"`
}

// Dropped returns the number of rows removed.
func (r CleanReport) Dropped() int {
	return r.Rows - r.Kept
}

// Log writes the report at info level.
func (r CleanReport) Log() {
	zap.L().Info("ingest: cleansed",
		zap.String("entity", r.Entity),
		zap.Int("rows", r.Rows),
		zap.Int("kept", r.Kept),
		zap.Int("duplicates", r.Duplicates),
		zap.Int("missing", r.Missing),
		zap.Int("bad_timestamp", r.BadTimestamp),
		zap.Int("bad_coordinate", r.BadCoordinate),
		zap.Int("zero_coordinate", r.ZeroCoordinate),
		zap.Int("bad_number", r.BadNumber),
		zap.Int("bad_geometry", r.BadGeometry),
	)
}
