package report

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/mobility-cli/internal/ingest"
	"github.com/sells-group/mobility-cli/internal/model"
)

// Manifest describes one run's inputs, outcomes and output files.
type Manifest struct {
	RunID     string                  `yaml:"run_id"`
	CreatedAt time.Time               `yaml:"created_at"`
	Input     model.RunInput          `yaml:"input"`
	Pings     int                     `yaml:"pings"`
	Areas     int                     `yaml:"areas"`
	Users     int                     `yaml:"users"`
	Analyses  map[string]model.Status `yaml:"analyses"`
	Cleansing []ingest.CleanReport    `yaml:"cleansing,omitempty"`
	Files     []string                `yaml:"files"`
}

// WriteManifest writes m as YAML to path.
func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "report: marshal manifest")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "report: create dir for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "report: write manifest %s", path)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: read manifest %s", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "report: parse manifest")
	}
	return &m, nil
}
