package model

import (
	"encoding/json"
	"time"
)

// RunStatus represents the state of an analysis run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunInput records what a run was started with.
type RunInput struct {
	Pings      string `json:"pings" yaml:"pings"`
	Areas      string `json:"areas" yaml:"areas"`
	Population string `json:"population,omitempty" yaml:"population,omitempty"`
	Buildings  string `json:"buildings,omitempty" yaml:"buildings,omitempty"`
	WindowDays int    `json:"decay_window_days" yaml:"decay_window_days"`
	Metric     string `json:"nearest_metric" yaml:"nearest_metric"`
}

// Run is a single execution of the analysis pipeline.
type Run struct {
	ID        string      `json:"id"`
	Input     RunInput    `json:"input"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunSummary holds the final counts of a completed run.
type RunSummary struct {
	Pings      int               `json:"pings"`
	Areas      int               `json:"areas"`
	Users      int               `json:"users"`
	Analyses   map[string]Status `json:"analyses"`
	Files      []string          `json:"files,omitempty"`
	DurationMs int64             `json:"duration_ms"`
}

// AnalysisResult is one persisted analysis output. Area is empty for
// catalog-wide analyses such as the co-visitation matrix.
type AnalysisResult struct {
	RunID     string          `json:"run_id"`
	Analysis  string          `json:"analysis"`
	Area      string          `json:"area"`
	Status    Status          `json:"status"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
