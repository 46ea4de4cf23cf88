package report

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/mobility-cli/internal/fetcher"
)

// maxSheetName is the longest sheet name Excel accepts.
const maxSheetName = 31

var sheetNameCleaner = strings.NewReplacer(":", "", "\\", "", "/", "", "?", "", "*", "", "[", "", "]", "")

// WriteXLSX writes every sheet into one workbook at path. Numeric cells are
// stored as numbers, except in identifier columns.
func WriteXLSX(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return eris.New("report: no sheets to write")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "report: create dir for %s", path)
	}

	f := xlsx.NewFile()
	used := make(map[string]int, len(sheets))
	for _, s := range sheets {
		sheet, err := f.AddSheet(sheetName(s.Name, used))
		if err != nil {
			return eris.Wrapf(err, "report: add sheet %s", s.Name)
		}
		writeRows(sheet, s.Table)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save workbook %s", path)
	}
	return nil
}

func writeRows(sheet *xlsx.Sheet, t *fetcher.Table) {
	textCol := make([]bool, len(t.Header))
	header := sheet.AddRow()
	for i, h := range t.Header {
		header.AddCell().SetString(h)
		lower := strings.ToLower(h)
		textCol[i] = lower == "location" || strings.HasSuffix(lower, "id") || lower == "age_band"
	}
	for _, r := range t.Rows {
		row := sheet.AddRow()
		for i, v := range r {
			c := row.AddCell()
			if i < len(textCol) && textCol[i] {
				c.SetString(v)
				continue
			}
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.SetFloat(f)
				continue
			}
			c.SetString(v)
		}
	}
}

// sheetName makes a valid, unique sheet name.
func sheetName(name string, used map[string]int) string {
	name = sheetNameCleaner.Replace(name)
	if name == "" {
		name = "sheet"
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	base := name
	for used[strings.ToLower(name)] > 0 {
		used[strings.ToLower(base)]++
		suffix := "_" + strconv.Itoa(used[strings.ToLower(base)])
		cut := min(len(base), maxSheetName-len(suffix))
		name = base[:cut] + suffix
	}
	used[strings.ToLower(name)]++
	return name
}

// WriteCSVs writes each sheet to dir/<slug of name>.csv and returns the paths.
func WriteCSVs(dir string, sheets []Sheet) ([]string, error) {
	paths := make([]string, 0, len(sheets))
	seen := make(map[string]int, len(sheets))
	for _, s := range sheets {
		base := Slug(s.Name)
		seen[base]++
		if n := seen[base]; n > 1 {
			base += "-" + strconv.Itoa(n)
		}
		path := filepath.Join(dir, base+".csv")
		if err := fetcher.WriteCSV(path, s.Table); err != nil {
			return paths, eris.Wrapf(err, "report: write sheet %s", s.Name)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
