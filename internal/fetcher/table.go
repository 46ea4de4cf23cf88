package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Table is a header row plus data rows read from a CSV or XLSX file.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the named column, matched case-insensitively
// after trimming spaces. Returns -1 when absent.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// TableExts are the file extensions ReadTable understands directly.
var TableExts = []string{".csv", ".txt", ".tsv", ".xlsx"}

// ReadTable reads a CSV or XLSX file. A ZIP archive is extracted to a
// temporary directory and its first table file is read.
func ReadTable(ctx context.Context, path string) (*Table, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".txt", ".tsv":
		return readCSVTable(ctx, path)
	case ".xlsx":
		return readXLSXTable(ctx, path)
	case ".zip":
		dir, err := os.MkdirTemp("", "mobility-zip-*")
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: create temp dir")
		}
		defer os.RemoveAll(dir) //nolint:errcheck

		inner, err := extractTableFile(path, dir)
		if err != nil {
			return nil, err
		}
		zap.L().Debug("fetcher: reading table from archive", zap.String("archive", path), zap.String("file", filepath.Base(inner)))
		return ReadTable(ctx, inner)
	default:
		return nil, eris.Errorf("fetcher: unsupported table format %q", ext)
	}
}

// extractTableFile pulls the table out of an archive. Single-file archives are
// taken as-is; bundles are fully extracted and searched for a table file.
func extractTableFile(zipPath, dir string) (string, error) {
	var files []string
	single, err := ExtractZIPSingle(zipPath, dir)
	switch {
	case err == nil:
		files = append(files, single)
	case eris.Is(err, ErrNotSingleFile):
		files, err = ExtractZIP(zipPath, dir)
		if err != nil {
			return "", err
		}
	default:
		return "", err
	}

	inner, ok := FindByExt(files, TableExts...)
	if !ok {
		return "", eris.Errorf("fetcher: no table file in %s", zipPath)
	}
	return inner, nil
}

func readXLSXTable(ctx context.Context, path string) (*Table, error) {
	rowCh, errCh := StreamXLSX(ctx, path, XLSXOptions{})

	t := &Table{}
	for row := range rowCh {
		if t.Header == nil {
			t.Header = row
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	for err := range errCh {
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: read %s", filepath.Base(path))
		}
	}
	return t, nil
}

func readCSVTable(ctx context.Context, path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: open csv")
	}
	defer f.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rowCh, errCh := StreamCSV(ctx, f, CSVOptions{HasHeader: true, HeaderCh: headerCh, LazyQuotes: true, TrimSpace: true})

	t := &Table{}
	for row := range rowCh {
		t.Rows = append(t.Rows, row)
	}
	for err := range errCh {
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: read %s", filepath.Base(path))
		}
	}
	select {
	case t.Header = <-headerCh:
	default:
	}
	return t, nil
}
