package export

import (
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/daftar/daftar/internal/model"
	"github.com/daftar/daftar/pkg/analysis"
	"github.com/daftar/daftar/pkg/dataset"
	"github.com/daftar/daftar/pkg/errors"
)

const dataSheet = "Data"

// WriteDatasetXLSX writes the cleaned table as an Excel workbook with a
// single Data sheet.
func WriteDatasetXLSX(w io.Writer, ds *dataset.Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		return errors.Wrap(err, errors.CodeExportFailed, "rename sheet")
	}

	header := make([]interface{}, len(model.Columns))
	for i, c := range model.Columns {
		header[i] = c
	}
	if err := setRow(f, dataSheet, 1, header); err != nil {
		return err
	}

	for i := range ds.Records {
		fields := ds.Records[i].Fields()
		row := make([]interface{}, len(fields))
		for j, v := range fields {
			row[j] = v
		}
		if err := setRow(f, dataSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, errors.CodeExportFailed, "write workbook")
	}
	return nil
}

// WriteReportXLSX writes a workbook with one sheet per report section,
// each holding its count tables.
func WriteReportXLSX(w io.Writer, rep *analysis.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for _, section := range rep.Sections {
		sheet := sheetName(section.Title)
		if first {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return errors.Wrap(err, errors.CodeExportFailed, "rename sheet")
			}
			first = false
		} else if _, err := f.NewSheet(sheet); err != nil {
			return errors.Wrap(err, errors.CodeExportFailed, "add sheet").
				WithContext("section", section.ID)
		}

		row := 1
		for _, m := range section.Metrics {
			if err := setRow(f, sheet, row, []interface{}{m.Label, m.Value}); err != nil {
				return err
			}
			row++
		}
		for _, c := range section.Charts {
			if err := setRow(f, sheet, row, []interface{}{c.Title}); err != nil {
				return err
			}
			row++
			for _, cnt := range c.Table.Counts {
				if err := setRow(f, sheet, row, []interface{}{cnt.Value, cnt.N}); err != nil {
					return err
				}
				row++
			}
			row++ // blank spacer between tables
		}
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, errors.CodeExportFailed, "write workbook")
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errors.Wrap(err, errors.CodeExportFailed, "cell name")
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return errors.Wrap(err, errors.CodeExportFailed, "set row").
			WithContext("sheet", sheet).WithContext("row", row)
	}
	return nil
}

// sheetName clamps a title to Excel's 31-character sheet-name limit.
func sheetName(title string) string {
	runes := []rune(title)
	if len(runes) <= 31 {
		return title
	}
	return string(runes[:31])
}
