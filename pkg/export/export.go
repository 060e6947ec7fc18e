// Package export writes the processed dataset and reports to
// interchange formats: CSV, XLSX workbooks, and Arrow IPC.
package export

import (
	"io"
	"strings"

	"github.com/daftar/daftar/pkg/dataset"
	"github.com/daftar/daftar/pkg/errors"
)

// Format identifies an export format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
	FormatArrow Format = "arrow"
)

// ParseFormat normalizes a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv", "":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "arrow", "ipc", "feather":
		return FormatArrow, nil
	default:
		return "", errors.New(errors.CodeExportFailed, "unknown export format").
			WithContext("format", s)
	}
}

// ContentType returns the MIME type served for a format.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatArrow:
		return "application/vnd.apache.arrow.file"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Extension returns the file extension for a format, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	case FormatArrow:
		return "arrow"
	default:
		return "csv"
	}
}

// Dataset writes the cleaned table in the requested format.
func Dataset(w io.Writer, ds *dataset.Dataset, format Format) error {
	switch format {
	case FormatCSV:
		if err := ds.WriteCSV(w); err != nil {
			return errors.Wrap(err, errors.CodeExportFailed, "write csv")
		}
		return nil
	case FormatXLSX:
		return WriteDatasetXLSX(w, ds)
	case FormatArrow:
		return WriteDatasetArrow(w, ds)
	default:
		return errors.New(errors.CodeExportFailed, "unknown export format").
			WithContext("format", string(format))
	}
}
