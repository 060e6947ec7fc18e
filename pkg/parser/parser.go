// Package parser reads registration tables from CSV and XLSX inputs.
package parser

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/daftar/daftar/internal/model"
)

// Sentinel errors returned by parsers.
var (
	ErrEmptyInput      = errors.New("input is empty")
	ErrMissingColumn   = errors.New("required column missing")
	ErrContextCanceled = errors.New("parsing canceled")
)

// Result holds the parsed table plus ingest diagnostics.
type Result struct {
	Records []model.Record
	// SkippedRows counts malformed rows dropped during parsing.
	SkippedRows int
	// ExtraColumns lists header columns outside the canonical set.
	ExtraColumns []string
}

// Parser reads registration records from an input stream.
type Parser interface {
	Parse(ctx context.Context, r io.Reader) (*Result, error)
}

// Config holds parser settings.
type Config struct {
	// Delimiter for CSV input. Registration exports use ';'.
	Delimiter byte
	// BufferSize for the CSV read buffer.
	BufferSize int
}

// DefaultConfig returns parser defaults for registration exports.
func DefaultConfig() Config {
	return Config{
		Delimiter:  ';',
		BufferSize: 256 * 1024,
	}
}

// ForPath returns a parser based on the file extension.
// Anything that is not .xlsx is treated as delimited text.
func ForPath(path string, cfg Config) Parser {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return NewXLSXParser(cfg)
	}
	return NewCSVParser(cfg)
}

// mapHeader resolves the index of every canonical column in the header.
// Returns the index table, the extra column names, or the first missing
// canonical column.
func mapHeader(header []string) (map[string]int, []string, string) {
	byName := make(map[string]int, len(header))
	for i, col := range header {
		byName[strings.TrimSpace(col)] = i
	}

	indices := make(map[string]int, len(model.Columns))
	for _, col := range model.Columns {
		idx, ok := byName[col]
		if !ok {
			return nil, nil, col
		}
		indices[col] = idx
	}

	var extra []string
	canonical := make(map[string]bool, len(model.Columns))
	for _, col := range model.Columns {
		canonical[col] = true
	}
	for _, col := range header {
		if name := strings.TrimSpace(col); !canonical[name] {
			extra = append(extra, name)
		}
	}

	return indices, extra, ""
}

// recordFromRow maps a raw row to a Record via the header index table.
// Short rows yield empty fields, matching how the upstream exports pad.
func recordFromRow(row []string, indices map[string]int) model.Record {
	fields := make([]string, len(model.Columns))
	for i, col := range model.Columns {
		idx := indices[col]
		if idx < len(row) {
			fields[i] = row[idx]
		}
	}
	return model.FromFields(fields)
}
