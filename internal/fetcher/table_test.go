package fetcher

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func createTestZIP(t *testing.T, files map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

func TestReadTable_CSV(t *testing.T) {
	path := writeTestFile(t, "traffic.csv", "\ufeffUSER_ID;OCCURED_AT;LATITUDE;LONGITUDE\nu1;2024-01-01 08:00:00;52.2;21.0\nu2;2024-01-01 09:00:00;52.3;21.1\n")

	tbl, err := ReadTable(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"USER_ID", "OCCURED_AT", "LATITUDE", "LONGITUDE"}, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "u2", tbl.Rows[1][0])
	assert.Equal(t, 2, tbl.Column("latitude"))
	assert.Equal(t, -1, tbl.Column("geometry"))
}

func TestReadTable_XLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {{"location", "lat", "lng"}, {"Arkadia", "52.25", "20.98"}},
	})

	tbl, err := ReadTable(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"location", "lat", "lng"}, tbl.Header)
	assert.Equal(t, [][]string{{"Arkadia", "52.25", "20.98"}}, tbl.Rows)
}

func TestReadTable_ZIP(t *testing.T) {
	path := createTestZIP(t, map[string]string{
		"readme.md":        "ignored",
		"data/traffic.csv": "user_id,occured_at\nu1,2024-01-01\n",
	})

	tbl, err := ReadTable(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"user_id", "occured_at"}, tbl.Header)
	assert.Len(t, tbl.Rows, 1)
}

func TestReadTable_SingleFileZIP(t *testing.T) {
	path := createTestZIP(t, map[string]string{
		"export/locations.csv": "location,lat,lng\nArkadia,52.25,20.98\n",
	})

	tbl, err := ReadTable(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"location", "lat", "lng"}, tbl.Header)
	assert.Equal(t, [][]string{{"Arkadia", "52.25", "20.98"}}, tbl.Rows)
}

func TestReadTable_Errors(t *testing.T) {
	_, err := ReadTable(context.Background(), writeTestFile(t, "x.parquet", "PAR1"))
	assert.Error(t, err)

	_, err = ReadTable(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	_, err = ReadTable(context.Background(), createTestZIP(t, map[string]string{"a.md": "x"}))
	assert.Error(t, err)
}

func TestReadTable_EmptyCSV(t *testing.T) {
	tbl, err := ReadTable(context.Background(), writeTestFile(t, "empty.csv", ""))
	require.NoError(t, err)
	assert.Empty(t, tbl.Header)
	assert.Empty(t, tbl.Rows)
}

func collectRows(t *testing.T, rowCh <-chan []string, errCh <-chan error) ([][]string, error) {
	t.Helper()
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return rows, err
		}
	}
	return rows, nil
}

func TestStreamCSV_DetectsDelimiter(t *testing.T) {
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader("a;b;c\n1;2;3\n"), CSVOptions{})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b", "c"}, {"1", "2", "3"}}, rows)
}

func TestStreamCSV_HeaderAndTrim(t *testing.T) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader("name , age\n alice , 30\n"), CSVOptions{
		Delimiter: ',',
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"alice", "30"}}, rows)
	assert.Equal(t, []string{"name", "age"}, <-headerCh)
}

func TestStreamCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rowCh, errCh := StreamCSV(ctx, strings.NewReader("a\n1\n"), CSVOptions{})
	_, err := collectRows(t, rowCh, errCh)
	assert.Error(t, err)
}

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		in   string
		want rune
	}{
		{"a,b,c", ','},
		{"a;b;c\nx,y,z,w,v", ';'},
		{"a\tb\tc", '\t'},
		{"a|b", '|'},
		{"single", ','},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectDelimiter([]byte(tt.in)), tt.in)
	}
}

func TestReadXLSX_SheetSelection(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Buildings": {{"id"}, {"b1"}},
	})

	rows, err := ReadXLSX(path, XLSXOptions{SheetName: "Buildings", SkipRows: 1})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"b1"}}, rows)

	_, err = ReadXLSX(path, XLSXOptions{SheetName: "Nope"})
	assert.Error(t, err)

	_, err = ReadXLSX(path, XLSXOptions{SheetIndex: 3})
	assert.Error(t, err)
}

func TestStreamXLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{"Sheet1": {{"a"}, {"b"}}})
	rowCh, errCh := StreamXLSX(context.Background(), path, XLSXOptions{})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b"}}, rows)
}

func TestExtractZIP_ZipSlip(t *testing.T) {
	path := createTestZIP(t, map[string]string{"../evil.txt": "x"})
	_, err := ExtractZIP(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip slip")
}

func TestExtractZIPSingle(t *testing.T) {
	path := createTestZIP(t, map[string]string{"only.csv": "a\n"})
	out, err := ExtractZIPSingle(path, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "only.csv", filepath.Base(out))

	path = createTestZIP(t, map[string]string{"a.csv": "a", "b.csv": "b"})
	_, err = ExtractZIPSingle(path, t.TempDir())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotSingleFile))

	_, err = ExtractZIPSingle(filepath.Join(t.TempDir(), "missing.zip"), t.TempDir())
	require.Error(t, err)
	assert.False(t, eris.Is(err, ErrNotSingleFile))
}

func TestFindByExt(t *testing.T) {
	paths := []string{"/x/a.dbf", "/x/A.SHP", "/x/a.shx"}
	p, ok := FindByExt(paths, ".shp")
	require.True(t, ok)
	assert.Equal(t, "/x/A.SHP", p)

	_, ok = FindByExt(paths, ".csv")
	assert.False(t, ok)
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	in := &Table{
		Header: []string{"location", "lat", "lng"},
		Rows:   [][]string{{"Stare Miasto, Kraków", "50.06", "19.94"}, {"Wola", "52.23", "20.98"}},
	}
	require.NoError(t, WriteCSV(path, in))

	out, err := ReadTable(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, in.Header, out.Header)
	assert.Equal(t, in.Rows, out.Rows)
}
