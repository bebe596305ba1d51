package loader

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Vitruves/abtest-report/internal/models"

	"github.com/jszwec/csvutil"
	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"
)

// ErrEmptyTable is returned when a file has a header but no data rows.
var ErrEmptyTable = errors.New("table has no data rows")

// RequiredColumns must be present in every input table.
var RequiredColumns = []string{"age", "campaign", "y"}

// LoadRecords reads the marketing table at filename. Delimited files use
// delimiter (";" for the UCI bank files); the other formats are picked by
// extension.
func LoadRecords(filename, delimiter string) (models.Dataset, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var (
		records []models.Record
		err     error
	)

	switch ext {
	case ".csv", ".txt", ".tsv":
		records, err = loadDelimited(filename, delimiter)
	case ".json":
		records, err = loadJSON(filename)
	case ".xlsx", ".xls":
		records, err = loadExcel(filename)
	case ".parquet":
		records, err = loadParquet(filename)
	default:
		return models.Dataset{}, fmt.Errorf("unsupported file format: %s", ext)
	}
	if err != nil {
		return models.Dataset{}, err
	}

	if len(records) == 0 {
		return models.Dataset{}, fmt.Errorf("%s: %w", filename, ErrEmptyTable)
	}

	return models.Dataset{Records: records}, nil
}

func loadDelimited(filename, delimiter string) ([]models.Record, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if delimiter != "" {
		reader.Comma = []rune(delimiter)[0]
	}

	return decodeRows(reader)
}

// decodeRows turns a header row plus data rows into typed records. Any
// source that can yield []string rows shares this path.
func decodeRows(reader csvutil.Reader) ([]models.Record, error) {
	dec, err := csvutil.NewDecoder(reader)
	if err != nil {
		if err == io.EOF {
			return nil, ErrEmptyTable
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if err := checkHeader(dec.Header()); err != nil {
		return nil, err
	}

	var records []models.Record
	for {
		var rec models.Record
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("malformed row %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func checkHeader(header []string) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}

	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

func loadJSON(filename string) ([]models.Record, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var records []models.Record
	if err := json.NewDecoder(file).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	return records, nil
}

func loadExcel(filename string) ([]models.Record, error) {
	f, err := excelize.OpenFile(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}

	// excelize drops trailing empty cells
	width := len(rows[0])
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		rows[i] = row
	}

	return decodeRows(&sliceReader{rows: rows})
}

func loadParquet(filename string) ([]models.Record, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	pf, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		return nil, err
	}

	columns := pf.Schema().Columns()
	header := make([]string, len(columns))
	for i, path := range columns {
		header[i] = path[len(path)-1]
	}

	table := [][]string{header}

	for _, rowGroup := range pf.RowGroups() {
		rows := rowGroup.Rows()

		buf := make([]parquet.Row, rowGroup.NumRows())
		n, err := rows.ReadRows(buf)
		rows.Close()
		if err != nil && err != io.EOF {
			return nil, err
		}

		for i := 0; i < n; i++ {
			line := make([]string, len(header))
			buf[i].Range(func(columnIndex int, values []parquet.Value) bool {
				if columnIndex < len(line) && len(values) > 0 {
					line[columnIndex] = parquetString(values[0])
				}
				return true
			})
			table = append(table, line)
		}
	}

	return decodeRows(&sliceReader{rows: table})
}

func parquetString(value parquet.Value) string {
	if value.IsNull() {
		return ""
	}

	switch value.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(value.Boolean())
	case parquet.Int32:
		return strconv.FormatInt(int64(value.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(value.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(value.Float()), 'f', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(value.Double(), 'f', -1, 64)
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(value.ByteArray())
	default:
		return value.String()
	}
}

// sliceReader feeds in-memory rows to csvutil.
type sliceReader struct {
	rows [][]string
	pos  int
}

func (r *sliceReader) Read() ([]string, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}
