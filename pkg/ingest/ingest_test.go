package ingest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/daftar/daftar/internal/model"
	"github.com/daftar/daftar/pkg/dataset"
	"github.com/daftar/daftar/pkg/errors"
)

func writeSample(t *testing.T) string {
	t.Helper()

	var b strings.Builder
	b.WriteString(strings.Join(model.Columns, ";"))
	b.WriteString("\n")

	fields := make([]string, len(model.Columns))
	for i, col := range model.Columns {
		switch col {
		case model.ColName:
			fields[i] = "BUDI"
		case model.ColFatherIncome:
			fields[i] = `\N`
		case model.ColRegency:
			fields[i] = ""
		default:
			fields[i] = "x"
		}
	}
	b.WriteString(strings.Join(fields, ";"))
	b.WriteString("\n")

	path := filepath.Join(t.TempDir(), "pendaftaran.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("Failed to write sample: %v", err)
	}
	return path
}

func TestLoad_CleansRecords(t *testing.T) {
	path := writeSample(t)

	ds, err := Load(context.Background(), path, DefaultOptions())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if ds.Len() != 1 {
		t.Fatalf("Expected 1 row, got %d", ds.Len())
	}
	if ds.SourceName != "pendaftaran.csv" {
		t.Errorf("Expected base-name source, got %q", ds.SourceName)
	}

	r := ds.Records[0]
	if r.FatherIncome != dataset.DefaultIncome {
		t.Errorf("Expected income sentinel replaced, got %q", r.FatherIncome)
	}
	if r.Regency != dataset.PlaceholderUnknown {
		t.Errorf("Expected blank regency filled, got %q", r.Regency)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), DefaultOptions())
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if errors.CodeOf(err) != errors.CodeFileNotFound {
		t.Errorf("Expected file-not-found code, got %v", errors.CodeOf(err))
	}
}

func TestLoad_MalformedInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(path, []byte("kolom_a;kolom_b\n1;2\n"), 0644); err != nil {
		t.Fatalf("Failed to write sample: %v", err)
	}

	_, err := Load(context.Background(), path, DefaultOptions())
	if err == nil {
		t.Fatal("Expected error for missing canonical columns")
	}
	if errors.CodeOf(err) != errors.CodeInvalidFormat {
		t.Errorf("Expected invalid-format code, got %v", errors.CodeOf(err))
	}
}

func TestLoad_WrapReader(t *testing.T) {
	path := writeSample(t)

	var sawSize int64
	opts := DefaultOptions()
	opts.WrapReader = func(r io.Reader, size int64) io.Reader {
		sawSize = size
		return r
	}

	if _, err := Load(context.Background(), path, opts); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sawSize <= 0 {
		t.Errorf("Expected the local file size passed to the wrapper, got %d", sawSize)
	}
}

func TestLoad_SourceNameOverride(t *testing.T) {
	path := writeSample(t)

	opts := DefaultOptions()
	opts.SourceName = "ekspor-maret.csv"

	ds, err := Load(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ds.SourceName != "ekspor-maret.csv" {
		t.Errorf("Expected override name, got %q", ds.SourceName)
	}
}
