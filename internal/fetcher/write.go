package fetcher

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// WriteCSV writes a table as a comma-separated file, creating parent
// directories as needed.
func WriteCSV(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "fetcher: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "fetcher: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if len(t.Header) > 0 {
		if err := w.Write(t.Header); err != nil {
			return eris.Wrapf(err, "fetcher: write header to %s", path)
		}
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return eris.Wrapf(err, "fetcher: write rows to %s", path)
	}
	return eris.Wrapf(f.Close(), "fetcher: close %s", path)
}
