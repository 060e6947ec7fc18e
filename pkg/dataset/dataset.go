// Package dataset holds a cleaned registration table in memory.
package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/daftar/daftar/internal/model"
)

// Dataset is one in-memory registration table after cleaning.
type Dataset struct {
	Records []model.Record
	// SkippedRows counts malformed source rows dropped at parse time.
	SkippedRows int
	// SourceName is the original file name, for display only.
	SourceName string
}

// New wraps parsed records and applies the cleaning rules.
func New(records []model.Record, skipped int, sourceName string) *Dataset {
	ds := &Dataset{
		Records:     records,
		SkippedRows: skipped,
		SourceName:  sourceName,
	}
	Clean(ds.Records)
	return ds
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Records)
}

// Column returns every value of one canonical column, in row order.
func (d *Dataset) Column(name string) []string {
	out := make([]string, len(d.Records))
	for i := range d.Records {
		out[i] = d.Records[i].Get(name)
	}
	return out
}

// NUnique returns the number of distinct values in a column.
func (d *Dataset) NUnique(name string) int {
	seen := make(map[string]struct{})
	for i := range d.Records {
		seen[d.Records[i].Get(name)] = struct{}{}
	}
	return len(seen)
}

// CountWhere returns how many rows have column == value.
func (d *Dataset) CountWhere(column, value string) int {
	n := 0
	for i := range d.Records {
		if d.Records[i].Get(column) == value {
			n++
		}
	}
	return n
}

// Checksum returns a stable hex digest of the cleaned table, used as the
// report-cache key.
func (d *Dataset) Checksum() string {
	h := sha256.New()
	for _, col := range model.Columns {
		io.WriteString(h, col)
		h.Write([]byte{0})
	}
	for i := range d.Records {
		for _, f := range d.Records[i].Fields() {
			io.WriteString(h, f)
			h.Write([]byte{0})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// WriteCSV writes the cleaned table as semicolon-delimited CSV.
func (d *Dataset) WriteCSV(w io.Writer) error {
	if _, err := io.WriteString(w, strings.Join(model.Columns, ";")+"\n"); err != nil {
		return err
	}
	for i := range d.Records {
		fields := d.Records[i].Fields()
		for j, f := range fields {
			fields[j] = quoteCSVField(f)
		}
		if _, err := io.WriteString(w, strings.Join(fields, ";")+"\n"); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	return nil
}

// quoteCSVField quotes a field if it contains the delimiter, quotes, or
// line breaks.
func quoteCSVField(f string) string {
	if !strings.ContainsAny(f, ";\"\n\r") {
		return f
	}
	return `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
}
