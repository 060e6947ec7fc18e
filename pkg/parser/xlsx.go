package parser

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXParser reads registration tables exported as Excel workbooks.
// It expects the same header row on the first sheet.
type XLSXParser struct {
	cfg Config
}

// NewXLSXParser creates a new XLSX parser.
func NewXLSXParser(cfg Config) *XLSXParser {
	return &XLSXParser{cfg: cfg}
}

// Parse implements the Parser interface.
func (p *XLSXParser) Parse(ctx context.Context, r io.Reader) (*Result, error) {
	xlFile, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer xlFile.Close()

	sheetName := xlFile.GetSheetName(0)
	if sheetName == "" {
		sheetList := xlFile.GetSheetList()
		if len(sheetList) == 0 {
			return nil, ErrEmptyInput
		}
		sheetName = sheetList[0]
	}

	rows, err := xlFile.Rows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheetName, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ErrEmptyInput
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	indices, extra, missing := mapHeader(header)
	if missing != "" {
		return nil, &MissingColumnError{Column: missing}
	}

	res := &Result{ExtraColumns: extra}
	width := len(header)

	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ErrContextCanceled
		default:
		}

		row, err := rows.Columns()
		if err != nil {
			res.SkippedRows++
			continue
		}
		if len(row) == 0 {
			continue
		}
		if len(row) > width {
			res.SkippedRows++
			continue
		}

		res.Records = append(res.Records, recordFromRow(row, indices))
	}

	if len(res.Records) == 0 {
		return nil, ErrEmptyInput
	}
	return res, nil
}
