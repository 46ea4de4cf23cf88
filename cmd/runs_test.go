package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/mobility-cli/internal/ingest"
	"github.com/sells-group/mobility-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Status:    model.RunStatusComplete,
			Summary:   &model.RunSummary{Pings: 1200, Areas: 4, Users: 87},
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Minute),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Status:    model.RunStatusFailed,
			Error:     "pipeline: load inputs: fetcher: open csv: no such file",
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "1200")
	assert.Contains(t, output, "87")
	assert.Contains(t, output, "2m0s")
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "pipeline: load inputs")
	assert.Contains(t, output, "2025-06-15 10:30")
}

func TestFormatResults(t *testing.T) {
	results := []model.AnalysisResult{
		{Analysis: "covisit", Status: model.StatusOK, Payload: []byte(`{"users":3}`)},
		{Analysis: "demographic", Area: "Wola", Status: model.StatusLocationNotFound, Payload: []byte(`{}`)},
	}

	var buf bytes.Buffer
	formatResults(&buf, results)

	output := buf.String()
	assert.Contains(t, output, "ANALYSIS")
	assert.Contains(t, output, "covisit")
	assert.Contains(t, output, "Wola")
	assert.Contains(t, output, "location_not_found")
	assert.Contains(t, output, "11")
}

func TestFilterResults(t *testing.T) {
	results := []model.AnalysisResult{
		{Analysis: "covisit"},
		{Analysis: "demographic", Area: "a"},
		{Analysis: "demographic", Area: "b"},
	}
	assert.Len(t, filterResults(results, ""), 3)
	got := filterResults(results, "demographic")
	assert.Len(t, got, 2)
	assert.Equal(t, "b", got[1].Area)
	assert.Len(t, results, 3)
	assert.Empty(t, filterResults(results, "hourly"))
}

func TestFormatAnalyses(t *testing.T) {
	var buf bytes.Buffer
	formatAnalyses(&buf, "run-1", map[string]model.Status{
		"repeat":  model.StatusNoUsers,
		"covisit": model.StatusMissingUserID,
	}, []string{"output/run-1/report.xlsx"})

	output := buf.String()
	assert.Contains(t, output, "run-1")
	assert.Contains(t, output, "no user identifier")
	assert.Contains(t, output, "no users found")
	assert.Contains(t, output, "output/run-1/report.xlsx")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("covisit")), bytes.Index(buf.Bytes(), []byte("repeat")))
}

func TestFormatCleanReports(t *testing.T) {
	var buf bytes.Buffer
	formatCleanReports(&buf, []ingest.CleanReport{
		{Entity: "pings", Rows: 10, Kept: 7, Duplicates: 2, ZeroCoordinate: 1},
	})
	output := buf.String()
	assert.Contains(t, output, "ENTITY")
	assert.Contains(t, output, "pings")
	assert.Contains(t, output, "10")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "abc", truncateID("abc"))
}
