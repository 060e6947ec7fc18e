package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/daftar/daftar/internal/model"
)

// sampleCSV builds a minimal export with the full canonical header and
// the given data lines appended.
func sampleCSV(lines ...string) string {
	var b strings.Builder
	b.WriteString(strings.Join(model.Columns, ";"))
	b.WriteString("\n")
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	return b.String()
}

// row builds one data line with name/category set and the remaining
// columns filled with "x".
func row(name, category string) string {
	fields := make([]string, len(model.Columns))
	fields[0] = name
	fields[1] = category
	for i := 2; i < len(fields); i++ {
		fields[i] = "x"
	}
	return strings.Join(fields, ";")
}

func TestCSVParser_BasicParsing(t *testing.T) {
	p := NewCSVParser(DefaultConfig())

	input := sampleCSV(
		row("BUDI SANTOSO", "Reguler"),
		row("SITI AMINAH", "Prestasi"),
	)

	res, err := p.Parse(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(res.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(res.Records))
	}
	if res.Records[0].Name != "BUDI SANTOSO" {
		t.Errorf("Expected name 'BUDI SANTOSO', got %q", res.Records[0].Name)
	}
	if res.Records[1].Category != "Prestasi" {
		t.Errorf("Expected category 'Prestasi', got %q", res.Records[1].Category)
	}
	if res.SkippedRows != 0 {
		t.Errorf("Expected 0 skipped rows, got %d", res.SkippedRows)
	}
}

func TestCSVParser_QuotedFields(t *testing.T) {
	p := NewCSVParser(DefaultConfig())

	fields := make([]string, len(model.Columns))
	fields[0] = `"SANTOSO; BUDI"`
	fields[1] = `"kata ""kutip"" ganda"`
	for i := 2; i < len(fields); i++ {
		fields[i] = "x"
	}
	input := sampleCSV(strings.Join(fields, ";"))

	res, err := p.Parse(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if got := res.Records[0].Name; got != "SANTOSO; BUDI" {
		t.Errorf("Expected embedded delimiter preserved, got %q", got)
	}
	if got := res.Records[0].Category; got != `kata "kutip" ganda` {
		t.Errorf("Expected doubled quotes unescaped, got %q", got)
	}
}

func TestCSVParser_CRLFLineEndings(t *testing.T) {
	p := NewCSVParser(DefaultConfig())

	input := strings.ReplaceAll(sampleCSV(row("BUDI", "Reguler")), "\n", "\r\n")

	res, err := p.Parse(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := res.Records[0].Get(model.ColMotherIncome); got != "x" {
		t.Errorf("Expected last column 'x' without CR, got %q", got)
	}
}

func TestCSVParser_SkipsWideRows(t *testing.T) {
	p := NewCSVParser(DefaultConfig())

	input := sampleCSV(
		row("BUDI", "Reguler"),
		row("RUSAK", "Reguler")+";kolom_liar",
		row("SITI", "Prestasi"),
	)

	res, err := p.Parse(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(res.Records) != 2 {
		t.Errorf("Expected 2 records after skipping, got %d", len(res.Records))
	}
	if res.SkippedRows != 1 {
		t.Errorf("Expected 1 skipped row, got %d", res.SkippedRows)
	}
}

func TestCSVParser_PadsShortRows(t *testing.T) {
	p := NewCSVParser(DefaultConfig())

	input := sampleCSV("BUDI;Reguler")

	res, err := p.Parse(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(res.Records) != 1 {
		t.Fatalf("Expected short row kept, got %d records", len(res.Records))
	}
	if got := res.Records[0].MotherIncome; got != "" {
		t.Errorf("Expected missing trailing field empty, got %q", got)
	}
}

func TestCSVParser_MissingColumn(t *testing.T) {
	p := NewCSVParser(DefaultConfig())

	header := strings.Join(model.Columns[:len(model.Columns)-1], ";")
	input := header + "\nBUDI\n"

	_, err := p.Parse(context.Background(), strings.NewReader(input))
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("Expected ErrMissingColumn, got %v", err)
	}

	var mce *MissingColumnError
	if !errors.As(err, &mce) {
		t.Fatal("Expected MissingColumnError")
	}
	if mce.Column != model.ColMotherIncome {
		t.Errorf("Expected missing column %q, got %q", model.ColMotherIncome, mce.Column)
	}
}

func TestCSVParser_ExtraColumns(t *testing.T) {
	p := NewCSVParser(DefaultConfig())

	header := strings.Join(model.Columns, ";") + ";tanggal_daftar"
	input := header + "\n" + row("BUDI", "Reguler") + ";2024-01-01\n"

	res, err := p.Parse(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(res.ExtraColumns) != 1 || res.ExtraColumns[0] != "tanggal_daftar" {
		t.Errorf("Expected extra column 'tanggal_daftar', got %v", res.ExtraColumns)
	}
	if res.Records[0].Name != "BUDI" {
		t.Errorf("Expected canonical columns still mapped, got %q", res.Records[0].Name)
	}
}

func TestCSVParser_EmptyInput(t *testing.T) {
	p := NewCSVParser(DefaultConfig())

	if _, err := p.Parse(context.Background(), strings.NewReader("")); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Expected ErrEmptyInput for empty stream, got %v", err)
	}

	headerOnly := strings.Join(model.Columns, ";") + "\n"
	if _, err := p.Parse(context.Background(), strings.NewReader(headerOnly)); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Expected ErrEmptyInput for header-only input, got %v", err)
	}
}

func TestCSVParser_ContextCancellation(t *testing.T) {
	p := NewCSVParser(DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := sampleCSV(row("BUDI", "Reguler"))
	_, err := p.Parse(ctx, strings.NewReader(input))
	if !errors.Is(err, ErrContextCanceled) {
		t.Errorf("Expected ErrContextCanceled, got %v", err)
	}
}

func TestForPath_SelectsByExtension(t *testing.T) {
	if _, ok := ForPath("data.xlsx", DefaultConfig()).(*XLSXParser); !ok {
		t.Error("Expected XLSX parser for .xlsx path")
	}
	if _, ok := ForPath("data.csv", DefaultConfig()).(*CSVParser); !ok {
		t.Error("Expected CSV parser for .csv path")
	}
	if _, ok := ForPath("data", DefaultConfig()).(*CSVParser); !ok {
		t.Error("Expected CSV parser for extensionless path")
	}
}
