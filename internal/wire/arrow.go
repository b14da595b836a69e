package wire

import (
	"bytes"

	"github.com/apache/arrow/go/v7/arrow"
	"github.com/apache/arrow/go/v7/arrow/array"
	"github.com/apache/arrow/go/v7/arrow/ipc"
	"github.com/apache/arrow/go/v7/arrow/memory"
)

var allocator = memory.NewGoAllocator()

// EncodeNumericColumn frames a numerical column as an Arrow float64 IPC
// stream (§6: "numeric columns are transported as Arrow float64").
func EncodeNumericColumn(name string, values []float64) ([]byte, error) {
	field := arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64}
	return encodeColumn(field, func(b *array.Float64Builder) {
		b.AppendValues(values, nil)
	})
}

// EncodeTimeStampColumn frames a time-stamp column as an Arrow
// timestamp[ns] IPC stream, converting from the seconds_since_epoch
// convention every other layer of fastprop uses internally (§6).
func EncodeTimeStampColumn(name string, secondsSinceEpoch []float64) ([]byte, error) {
	dt := &arrow.TimestampType{Unit: arrow.Nanosecond}
	field := arrow.Field{Name: name, Type: dt}

	pool := allocator
	schema := arrow.NewSchema([]arrow.Field{field}, nil)
	b := array.NewRecordBuilder(pool, schema)
	defer b.Release()

	tsBuilder := b.Field(0).(*array.TimestampBuilder)
	for _, s := range secondsSinceEpoch {
		tsBuilder.Append(arrow.Timestamp(s * 1e9))
	}

	rec := b.NewRecord()
	defer rec.Release()
	return writeRecord(schema, rec)
}

func encodeColumn(field arrow.Field, appendFn func(*array.Float64Builder)) ([]byte, error) {
	schema := arrow.NewSchema([]arrow.Field{field}, nil)
	b := array.NewRecordBuilder(allocator, schema)
	defer b.Release()

	appendFn(b.Field(0).(*array.Float64Builder))

	rec := b.NewRecord()
	defer rec.Release()
	return writeRecord(schema, rec)
}

func writeRecord(schema *arrow.Schema, rec arrow.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	if err := w.Write(rec); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeNumericColumn reads back a single-column Arrow float64 IPC stream
// framed by EncodeNumericColumn.
func DecodeNumericColumn(data []byte) ([]float64, error) {
	r, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(allocator))
	if err != nil {
		return nil, err
	}
	defer r.Release()

	var values []float64
	for r.Next() {
		rec := r.Record()
		col, ok := rec.Column(0).(*array.Float64)
		if !ok {
			continue
		}
		values = append(values, col.Float64Values()...)
	}
	return values, nil
}

// DecodeTimeStampColumn reads back a timestamp[ns] IPC stream and converts
// to seconds_since_epoch.
func DecodeTimeStampColumn(data []byte) ([]float64, error) {
	r, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(allocator))
	if err != nil {
		return nil, err
	}
	defer r.Release()

	var values []float64
	for r.Next() {
		rec := r.Record()
		col, ok := rec.Column(0).(*array.Timestamp)
		if !ok {
			continue
		}
		for i := 0; i < col.Len(); i++ {
			values = append(values, float64(col.Value(i))/1e9)
		}
	}
	return values, nil
}
