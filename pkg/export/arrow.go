package export

import (
	"io"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/daftar/daftar/internal/model"
	"github.com/daftar/daftar/pkg/dataset"
	"github.com/daftar/daftar/pkg/errors"
)

// WriteDatasetArrow writes the cleaned table as an Arrow IPC stream with
// one string column per canonical column.
func WriteDatasetArrow(w io.Writer, ds *dataset.Dataset) error {
	pool := memory.NewGoAllocator()

	fields := make([]arrow.Field, len(model.Columns))
	for i, col := range model.Columns {
		fields[i] = arrow.Field{Name: col, Type: arrow.BinaryTypes.String}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(pool, schema)
	defer b.Release()

	for i := range ds.Records {
		for j, v := range ds.Records[i].Fields() {
			b.Field(j).(*array.StringBuilder).Append(v)
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	fw := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return errors.Wrap(err, errors.CodeExportFailed, "write arrow record")
	}
	if err := fw.Close(); err != nil {
		return errors.Wrap(err, errors.CodeExportFailed, "close arrow writer")
	}
	return nil
}
