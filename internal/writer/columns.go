package writer

import (
	"github.com/Vitruves/abtest-report/internal/models"

	"github.com/apache/arrow/go/v14/arrow"
)

// column describes one exported field. Exactly one accessor is set.
type column struct {
	name        string
	intValue    func(models.Record) int64
	stringValue func(models.Record) string
}

// recordColumns follows the input column order, then the derived columns.
var recordColumns = []column{
	{name: "age", intValue: func(r models.Record) int64 { return int64(r.Age) }},
	{name: "job", stringValue: func(r models.Record) string { return r.Job }},
	{name: "marital", stringValue: func(r models.Record) string { return r.Marital }},
	{name: "education", stringValue: func(r models.Record) string { return r.Education }},
	{name: "default", stringValue: func(r models.Record) string { return r.Default }},
	{name: "balance", intValue: func(r models.Record) int64 { return r.Balance }},
	{name: "housing", stringValue: func(r models.Record) string { return r.Housing }},
	{name: "loan", stringValue: func(r models.Record) string { return r.Loan }},
	{name: "contact", stringValue: func(r models.Record) string { return r.Contact }},
	{name: "day", intValue: func(r models.Record) int64 { return int64(r.Day) }},
	{name: "month", stringValue: func(r models.Record) string { return r.Month }},
	{name: "duration", intValue: func(r models.Record) int64 { return int64(r.Duration) }},
	{name: "campaign", intValue: func(r models.Record) int64 { return int64(r.Campaign) }},
	{name: "pdays", intValue: func(r models.Record) int64 { return int64(r.Pdays) }},
	{name: "previous", intValue: func(r models.Record) int64 { return int64(r.Previous) }},
	{name: "poutcome", stringValue: func(r models.Record) string { return r.Poutcome }},
	{name: "y", stringValue: func(r models.Record) string { return r.Y }},
	{name: "converted", intValue: func(r models.Record) int64 { return int64(r.Converted) }},
	{name: "group", stringValue: func(r models.Record) string { return r.Group }},
}

func recordSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(recordColumns))
	for i, col := range recordColumns {
		typ := arrow.DataType(arrow.BinaryTypes.String)
		if col.intValue != nil {
			typ = arrow.PrimitiveTypes.Int64
		}
		fields[i] = arrow.Field{Name: col.name, Type: typ}
	}
	return arrow.NewSchema(fields, nil)
}
