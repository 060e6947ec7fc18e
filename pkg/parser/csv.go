package parser

import (
	"bufio"
	"context"
	"io"

	"github.com/daftar/daftar/internal/model"
)

// CSVParser implements tolerant byte-level parsing of semicolon-delimited
// registration exports. Malformed rows are skipped, not fatal.
type CSVParser struct {
	cfg Config
}

// NewCSVParser creates a new CSV parser.
func NewCSVParser(cfg Config) *CSVParser {
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ';'
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 256 * 1024
	}
	return &CSVParser{cfg: cfg}
}

// Parse implements the Parser interface.
func (p *CSVParser) Parse(ctx context.Context, r io.Reader) (*Result, error) {
	reader := bufio.NewReaderSize(r, p.cfg.BufferSize)

	headerLine, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	headerLine = trimLineEnding(headerLine)
	if len(headerLine) == 0 {
		return nil, ErrEmptyInput
	}

	header := p.scanLine(headerLine)
	indices, extra, missing := mapHeader(header)
	if missing != "" {
		return nil, &MissingColumnError{Column: missing}
	}

	res := &Result{ExtraColumns: extra}
	width := len(header)

	for {
		select {
		case <-ctx.Done():
			return nil, ErrContextCanceled
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if len(line) == 0 && err == io.EOF {
			break
		}

		line = trimLineEnding(line)
		if len(line) == 0 {
			if err == io.EOF {
				break
			}
			continue
		}

		row := p.scanLine(line)
		// A row wider than the header is malformed; skip it the way
		// the upstream reader does, counting it for diagnostics.
		if len(row) > width {
			res.SkippedRows++
			if err == io.EOF {
				break
			}
			continue
		}

		res.Records = append(res.Records, recordFromRow(row, indices))

		if err == io.EOF {
			break
		}
	}

	if len(res.Records) == 0 {
		return nil, ErrEmptyInput
	}
	return res, nil
}

// scanLine splits one line into fields using byte-level scanning.
// Handles quoted fields with embedded delimiters and doubled quotes.
func (p *CSVParser) scanLine(line []byte) []string {
	if len(line) == 0 {
		return nil
	}

	fields := make([]string, 0, len(model.Columns))
	delim := p.cfg.Delimiter
	start := 0
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]

		if c == '"' {
			if !inQuotes {
				inQuotes = true
			} else if i+1 < len(line) && line[i+1] == '"' {
				i++ // doubled quote inside a quoted field
			} else {
				inQuotes = false
			}
		} else if c == delim && !inQuotes {
			fields = append(fields, unquoteField(line[start:i]))
			start = i + 1
		}
	}
	fields = append(fields, unquoteField(line[start:]))

	return fields
}

// unquoteField removes surrounding quotes and unescapes doubled quotes.
func unquoteField(field []byte) string {
	if len(field) < 2 || field[0] != '"' || field[len(field)-1] != '"' {
		return string(field)
	}

	field = field[1 : len(field)-1]
	result := make([]byte, 0, len(field))
	for i := 0; i < len(field); i++ {
		if field[i] == '"' && i+1 < len(field) && field[i+1] == '"' {
			result = append(result, '"')
			i++
		} else {
			result = append(result, field[i])
		}
	}
	return string(result)
}

// trimLineEnding removes trailing \n and \r characters.
func trimLineEnding(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}

// MissingColumnError reports which canonical column the header lacks.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return "required column missing: " + e.Column
}

func (e *MissingColumnError) Unwrap() error {
	return ErrMissingColumn
}
