// Package writer exports the prepared record table to disk.
package writer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Vitruves/abtest-report/internal/models"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"github.com/jszwec/csvutil"
	"github.com/xuri/excelize/v2"
)

// RecordWriter writes records one at a time. Close must be called to
// finish the file.
type RecordWriter interface {
	WriteRecord(record models.Record) error
	Close() error
	GetFilename() string
}

type CSVRecordWriter struct {
	filename string
	file     *os.File
	csv      *csv.Writer
	encoder  *csvutil.Encoder
	rows     int
}

type JSONRecordWriter struct {
	filename   string
	file       *os.File
	firstWrite bool
}

type ExcelRecordWriter struct {
	filename string
	file     *excelize.File
	stream   *excelize.StreamWriter
	row      int
}

// ParquetRecordWriter buffers records in Arrow builders and writes a
// single table on Close.
type ParquetRecordWriter struct {
	filename string
	builder  *array.RecordBuilder
}

// Export writes every record of ds to filename in the given format,
// replacing any existing file.
func Export(ds models.Dataset, filename, format string) error {
	w, err := NewRecordWriter(format, filename)
	if err != nil {
		return err
	}

	for i, r := range ds.Records {
		if err := w.WriteRecord(r); err != nil {
			w.Close()
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	return w.Close()
}

func NewRecordWriter(format, filename string) (RecordWriter, error) {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	switch format {
	case "csv":
		return NewCSVRecordWriter(filename)
	case "json":
		return NewJSONRecordWriter(filename)
	case "xlsx":
		return NewExcelRecordWriter(filename)
	case "parquet":
		return NewParquetRecordWriter(filename), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

func NewCSVRecordWriter(filename string) (*CSVRecordWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(file)
	return &CSVRecordWriter{
		filename: filename,
		file:     file,
		csv:      w,
		encoder:  csvutil.NewEncoder(w),
	}, nil
}

func (w *CSVRecordWriter) WriteRecord(record models.Record) error {
	w.rows++
	return w.encoder.Encode(record)
}

// Close writes the header for an empty table so the file is never blank.
func (w *CSVRecordWriter) Close() error {
	if w.rows == 0 {
		if err := w.encoder.EncodeHeader(models.Record{}); err != nil {
			w.file.Close()
			return err
		}
	}

	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

func (w *CSVRecordWriter) GetFilename() string {
	return w.filename
}

func NewJSONRecordWriter(filename string) (*JSONRecordWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	if _, err := file.WriteString("["); err != nil {
		file.Close()
		return nil, err
	}

	return &JSONRecordWriter{
		filename:   filename,
		file:       file,
		firstWrite: true,
	}, nil
}

func (w *JSONRecordWriter) WriteRecord(record models.Record) error {
	sep := ",\n  "
	if w.firstWrite {
		sep = "\n  "
		w.firstWrite = false
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = w.file.WriteString(sep + string(data))
	return err
}

func (w *JSONRecordWriter) Close() error {
	if _, err := w.file.WriteString("\n]\n"); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

func (w *JSONRecordWriter) GetFilename() string {
	return w.filename
}

func NewExcelRecordWriter(filename string) (*ExcelRecordWriter, error) {
	f := excelize.NewFile()
	stream, err := f.NewStreamWriter("Sheet1")
	if err != nil {
		f.Close()
		return nil, err
	}

	header := make([]interface{}, len(recordColumns))
	for i, col := range recordColumns {
		header[i] = col.name
	}
	if err := stream.SetRow("A1", header); err != nil {
		f.Close()
		return nil, err
	}

	return &ExcelRecordWriter{filename: filename, file: f, stream: stream, row: 1}, nil
}

func (w *ExcelRecordWriter) WriteRecord(record models.Record) error {
	w.row++
	values := make([]interface{}, len(recordColumns))
	for i, col := range recordColumns {
		if col.intValue != nil {
			values[i] = col.intValue(record)
		} else {
			values[i] = col.stringValue(record)
		}
	}

	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	return w.stream.SetRow(cell, values)
}

func (w *ExcelRecordWriter) Close() error {
	defer w.file.Close()
	if err := w.stream.Flush(); err != nil {
		return err
	}
	return w.file.SaveAs(w.filename)
}

func (w *ExcelRecordWriter) GetFilename() string {
	return w.filename
}

func NewParquetRecordWriter(filename string) *ParquetRecordWriter {
	return &ParquetRecordWriter{
		filename: filename,
		builder:  array.NewRecordBuilder(memory.DefaultAllocator, recordSchema()),
	}
}

func (w *ParquetRecordWriter) WriteRecord(record models.Record) error {
	for i, col := range recordColumns {
		switch b := w.builder.Field(i).(type) {
		case *array.Int64Builder:
			b.Append(col.intValue(record))
		case *array.StringBuilder:
			b.Append(col.stringValue(record))
		default:
			return fmt.Errorf("unexpected builder for column %s", col.name)
		}
	}
	return nil
}

func (w *ParquetRecordWriter) Close() error {
	defer w.builder.Release()

	rec := w.builder.NewRecord()
	defer rec.Release()

	table := array.NewTableFromRecords(rec.Schema(), []arrow.Record{rec})
	defer table.Release()

	return writeTableToParquet(table, w.filename)
}

func (w *ParquetRecordWriter) GetFilename() string {
	return w.filename
}

func writeTableToParquet(table arrow.Table, filename string) error {
	outputFile, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer outputFile.Close()

	props := parquet.NewWriterProperties()
	arrowProps := pqarrow.DefaultWriterProps()

	writer, err := pqarrow.NewFileWriter(table.Schema(), outputFile, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	if err := writer.WriteTable(table, table.NumRows()); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write table: %w", err)
	}

	return writer.Close()
}
