package analysis

import (
	"github.com/daftar/daftar/pkg/dataset"
	"github.com/daftar/daftar/pkg/errors"
)

// EngineCounter builds the Counter for the configured aggregation
// engine. The returned closer must be called after the report is built.
func EngineCounter(engine string, ds *dataset.Dataset) (Counter, func() error, error) {
	switch engine {
	case "", "native":
		return NativeCounter{DS: ds}, func() error { return nil }, nil
	case "duckdb":
		c, err := NewDuckDBCounter(ds)
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.CodeEngineFailed, "init duckdb engine")
		}
		return c, c.Close, nil
	default:
		return nil, nil, errors.New(errors.CodeEngineFailed, "unknown engine").
			WithContext("engine", engine)
	}
}
