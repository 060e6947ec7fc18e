package dataset

import (
	"strings"
	"testing"

	"github.com/daftar/daftar/internal/model"
)

func record(overrides map[string]string) model.Record {
	fields := make([]string, len(model.Columns))
	for i, col := range model.Columns {
		if v, ok := overrides[col]; ok {
			fields[i] = v
		} else {
			fields[i] = "x"
		}
	}
	return model.FromFields(fields)
}

func TestClean_IncomeSentinel(t *testing.T) {
	records := []model.Record{
		record(map[string]string{
			model.ColFatherIncome: `\N`,
			model.ColMotherIncome: `\N`,
		}),
	}
	Clean(records)

	if records[0].FatherIncome != DefaultIncome {
		t.Errorf("Expected father income %q, got %q", DefaultIncome, records[0].FatherIncome)
	}
	if records[0].MotherIncome != DefaultIncome {
		t.Errorf("Expected mother income %q, got %q", DefaultIncome, records[0].MotherIncome)
	}
}

func TestClean_SentinelOnlyRewritesIncome(t *testing.T) {
	// The sentinel in a non-income column is kept as literal text.
	records := []model.Record{
		record(map[string]string{model.ColSchool: `\N`}),
	}
	Clean(records)

	if records[0].School != `\N` {
		t.Errorf("Expected sentinel preserved outside income columns, got %q", records[0].School)
	}
}

func TestClean_FillsBlanks(t *testing.T) {
	records := []model.Record{
		record(map[string]string{
			model.ColRegency:      "",
			model.ColFatherIncome: "",
		}),
	}
	Clean(records)

	if records[0].Regency != PlaceholderUnknown {
		t.Errorf("Expected blank regency filled, got %q", records[0].Regency)
	}
	// A blank income cell is unknown, not the lowest bracket. Only the
	// explicit sentinel maps to the default income.
	if records[0].FatherIncome != PlaceholderUnknown {
		t.Errorf("Expected blank income filled with placeholder, got %q", records[0].FatherIncome)
	}
}

func TestDataset_ColumnAccessors(t *testing.T) {
	ds := New([]model.Record{
		record(map[string]string{model.ColProvince: "JAWA BARAT"}),
		record(map[string]string{model.ColProvince: "BANTEN"}),
		record(map[string]string{model.ColProvince: "JAWA BARAT"}),
	}, 2, "pendaftaran.csv")

	if ds.Len() != 3 {
		t.Errorf("Expected 3 rows, got %d", ds.Len())
	}
	if ds.SkippedRows != 2 {
		t.Errorf("Expected 2 skipped rows, got %d", ds.SkippedRows)
	}
	if got := ds.NUnique(model.ColProvince); got != 2 {
		t.Errorf("Expected 2 distinct provinces, got %d", got)
	}
	if got := ds.CountWhere(model.ColProvince, "JAWA BARAT"); got != 2 {
		t.Errorf("Expected 2 rows in JAWA BARAT, got %d", got)
	}

	col := ds.Column(model.ColProvince)
	if len(col) != 3 || col[1] != "BANTEN" {
		t.Errorf("Expected column values in row order, got %v", col)
	}
}

func TestDataset_ChecksumStability(t *testing.T) {
	mk := func() *Dataset {
		return New([]model.Record{
			record(map[string]string{model.ColName: "BUDI"}),
			record(map[string]string{model.ColName: "SITI"}),
		}, 0, "a.csv")
	}

	a, b := mk(), mk()
	if a.Checksum() != b.Checksum() {
		t.Error("Expected identical tables to share a checksum")
	}

	c := New([]model.Record{
		record(map[string]string{model.ColName: "BUDI"}),
	}, 0, "a.csv")
	if a.Checksum() == c.Checksum() {
		t.Error("Expected different tables to have different checksums")
	}
}

func TestDataset_ChecksumFieldBoundaries(t *testing.T) {
	// "ab" + "c" must not collide with "a" + "bc".
	a := New([]model.Record{
		record(map[string]string{model.ColName: "ab", model.ColCategory: "c"}),
	}, 0, "a.csv")
	b := New([]model.Record{
		record(map[string]string{model.ColName: "a", model.ColCategory: "bc"}),
	}, 0, "a.csv")

	if a.Checksum() == b.Checksum() {
		t.Error("Expected field boundaries to affect the checksum")
	}
}

func TestDataset_WriteCSV(t *testing.T) {
	ds := New([]model.Record{
		record(map[string]string{model.ColName: "SANTOSO; BUDI"}),
	}, 0, "a.csv")

	var buf strings.Builder
	if err := ds.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header plus 1 row, got %d lines", len(lines))
	}
	if lines[0] != strings.Join(model.Columns, ";") {
		t.Errorf("Expected canonical header, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], `"SANTOSO; BUDI";`) {
		t.Errorf("Expected delimiter-bearing field quoted, got %q", lines[1])
	}
}
