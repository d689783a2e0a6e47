// Package export writes the tidy table out of process, as an Arrow IPC stream
// or as long-format CSV.
package export

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"co2dash/internal/engine"
)

// ArrowContentType is the media type of an Arrow IPC stream.
const ArrowContentType = "application/vnd.apache.arrow.stream"

// TidySchema is the Arrow schema of the tidy table. Metric columns are
// nullable; a null is a Missing value.
var TidySchema = arrow.NewSchema([]arrow.Field{
	{Name: engine.ColCountry, Type: arrow.BinaryTypes.String},
	{Name: engine.ColISO2, Type: arrow.BinaryTypes.String},
	{Name: engine.ColISO3, Type: arrow.BinaryTypes.String},
	{Name: "Year", Type: arrow.PrimitiveTypes.Int32},
	{Name: engine.FieldEmissions.Name(), Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: engine.FieldIntensities.Name(), Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: engine.FieldMultipliers.Name(), Type: arrow.PrimitiveTypes.Float64, Nullable: true},
}, nil)

// BuildRecord converts t into a single Arrow record. The caller releases it.
func BuildRecord(mem memory.Allocator, t *engine.TidyTable) arrow.Record {
	b := array.NewRecordBuilder(mem, TidySchema)
	defer b.Release()

	n := t.Len()
	country := b.Field(0).(*array.StringBuilder)
	iso2 := b.Field(1).(*array.StringBuilder)
	iso3 := b.Field(2).(*array.StringBuilder)
	country.Reserve(n)
	iso2.Reserve(n)
	iso3.Reserve(n)
	for i := 0; i < n; i++ {
		e := t.EntityDict[t.EntityIDs[i]]
		country.Append(e.Country)
		iso2.Append(e.ISO2)
		iso3.Append(e.ISO3)
	}

	b.Field(3).(*array.Int32Builder).AppendValues(t.Years, nil)

	for k, f := range engine.Fields {
		col := t.Column(f)
		valid := make([]bool, len(col))
		for i, v := range col {
			valid[i] = !engine.IsMissing(v)
		}
		b.Field(4+k).(*array.Float64Builder).AppendValues(col, valid)
	}

	return b.NewRecord()
}

// WriteArrow streams t to w in Arrow IPC stream format.
func WriteArrow(w io.Writer, t *engine.TidyTable) error {
	mem := memory.NewGoAllocator()

	rec := BuildRecord(mem, t)
	defer rec.Release()

	iw := ipc.NewWriter(w, ipc.WithSchema(TidySchema), ipc.WithAllocator(mem))
	if err := iw.Write(rec); err != nil {
		iw.Close()
		return fmt.Errorf("write arrow record: %w", err)
	}
	if err := iw.Close(); err != nil {
		return fmt.Errorf("close arrow stream: %w", err)
	}
	return nil
}
