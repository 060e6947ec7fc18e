package analysis

import (
	"context"
	"strings"
	"testing"

	"github.com/daftar/daftar/internal/model"
	"github.com/daftar/daftar/pkg/dataset"
)

// testDataset builds a small cleaned table covering every dimension.
func testDataset(t *testing.T) *dataset.Dataset {
	t.Helper()

	mk := func(overrides map[string]string) model.Record {
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

	records := []model.Record{
		mk(map[string]string{
			model.ColDomicile:     "JAWA BARAT",
			model.ColProvince:     "JAWA BARAT",
			model.ColRegency:      "KOTA BOGOR",
			model.ColCategory:     "Reguler",
			model.ColChoice1:      "SMA A",
			model.ColCampus1:      "Kampus Utara",
			model.ColCampus2:      "Kampus Selatan",
			model.ColCampus3:      "Kampus Utara",
			model.ColFatherEdu:    "S1",
			model.ColMotherEdu:    "SMA",
			model.ColFatherJob:    "Wiraswasta",
			model.ColMotherJob:    "Ibu Rumah Tangga",
			model.ColFatherIncome: "2.500.001 - 5.000.000",
			model.ColMotherIncome: "0 - 2.500.000",
		}),
		mk(map[string]string{
			model.ColDomicile:     "JAWA BARAT",
			model.ColProvince:     "JAWA BARAT",
			model.ColRegency:      "KOTA DEPOK",
			model.ColCategory:     "Reguler",
			model.ColChoice1:      "SMA A",
			model.ColCampus1:      "Kampus Utara",
			model.ColCampus2:      "Kampus Utara",
			model.ColCampus3:      "Kampus Timur",
			model.ColFatherEdu:    "S2",
			model.ColMotherEdu:    "S1",
			model.ColFatherJob:    "PNS",
			model.ColMotherJob:    "Guru",
			model.ColFatherIncome: "10.000.001 - 20.000.000",
			model.ColMotherIncome: "5.000.001 - 7.500.000",
		}),
		mk(map[string]string{
			model.ColDomicile:     "BANTEN",
			model.ColProvince:     "BANTEN",
			model.ColRegency:      "KOTA TANGERANG",
			model.ColCategory:     "Prestasi",
			model.ColChoice1:      "SMA B",
			model.ColCampus1:      "Kampus Selatan",
			model.ColCampus2:      "Kampus Timur",
			model.ColCampus3:      "Kampus Selatan",
			model.ColFatherEdu:    "SMA",
			model.ColMotherEdu:    "SMA",
			model.ColFatherJob:    "Karyawan Swasta",
			model.ColMotherJob:    "Ibu Rumah Tangga",
			model.ColFatherIncome: "Tidak Diketahui",
			model.ColMotherIncome: "0 - 2.500.000",
		}),
	}

	return dataset.New(records, 0, "pendaftaran.csv")
}

func buildTestReport(t *testing.T) *Report {
	t.Helper()

	ds := testDataset(t)
	rep, err := BuildReport(context.Background(), Meta{
		Source:   ds.SourceName,
		Rows:     ds.Len(),
		Checksum: ds.Checksum(),
	}, NativeCounter{DS: ds}, DefaultOptions())
	if err != nil {
		t.Fatalf("BuildReport failed: %v", err)
	}
	return rep
}

func TestBuildReport_AllSectionsPresent(t *testing.T) {
	rep := buildTestReport(t)

	if len(rep.Sections) != len(SectionList) {
		t.Fatalf("Expected %d sections, got %d", len(SectionList), len(rep.Sections))
	}
	for i, d := range SectionList {
		if rep.Sections[i].ID != d.ID {
			t.Errorf("Expected section %q at position %d, got %q", d.ID, i, rep.Sections[i].ID)
		}
		if rep.Sections[i].Title != d.Title {
			t.Errorf("Expected title %q, got %q", d.Title, rep.Sections[i].Title)
		}
	}
	if rep.Rows != 3 {
		t.Errorf("Expected 3 rows in metadata, got %d", rep.Rows)
	}
}

func TestBuildReport_SummaryMetrics(t *testing.T) {
	rep := buildTestReport(t)

	sec, ok := rep.Section(SectionSummary)
	if !ok {
		t.Fatal("Summary section missing")
	}
	if len(sec.Metrics) != 4 {
		t.Fatalf("Expected 4 summary metrics, got %d", len(sec.Metrics))
	}
	if sec.Metrics[0].Value != 3 {
		t.Errorf("Expected total 3, got %d", sec.Metrics[0].Value)
	}
	if sec.Metrics[1].Value != 2 {
		t.Errorf("Expected 2 provinces, got %d", sec.Metrics[1].Value)
	}
	if sec.Metrics[3].Label != "Siswa dari JAWA BARAT" || sec.Metrics[3].Value != 2 {
		t.Errorf("Expected 2 students from the highlight region, got %v", sec.Metrics[3])
	}
}

func TestBuildReport_CampusPooling(t *testing.T) {
	rep := buildTestReport(t)

	sec, _ := rep.Section(SectionPreferences)
	chart, ok := sec.Chart("campus")
	if !ok {
		t.Fatal("Campus chart missing")
	}

	// Three campus columns over three rows pool to nine selections.
	if chart.Table.Total != 9 {
		t.Errorf("Expected 9 pooled selections, got %d", chart.Table.Total)
	}
	if got := chart.Table.Get("Kampus Utara"); got != 4 {
		t.Errorf("Expected Kampus Utara counted 4 times across columns, got %d", got)
	}
	if chart.Table.Top().Value != "Kampus Utara" {
		t.Errorf("Expected Kampus Utara most popular, got %q", chart.Table.Top().Value)
	}
}

func TestBuildReport_IncomeSection(t *testing.T) {
	rep := buildTestReport(t)

	sec, _ := rep.Section(SectionIncome)
	father, ok := sec.Chart("father")
	if !ok {
		t.Fatal("Father income chart missing")
	}

	// The unknown placeholder is dropped by the ordinal reordering and
	// the remaining brackets follow bracket order, not count order.
	for _, c := range father.Table.Counts {
		if c.Value == "Tidak Diketahui" {
			t.Error("Expected placeholder dropped from ordinal income chart")
		}
	}
	if len(father.Table.Counts) != 2 {
		t.Fatalf("Expected 2 known father brackets, got %v", father.Table.Counts)
	}
	if father.Table.Counts[0].Value != "2.500.001 - 5.000.000" {
		t.Errorf("Expected brackets in ordinal order, got %v", father.Table.Counts)
	}

	combined, _ := sec.Chart("combined")
	// Row 1: 5M + 2.5M = 7.5M. Row 2: 20M + 7.5M = 27.5M. Row 3: 0 + 2.5M.
	if got := combined.Table.Get(Bucket5To10M); got != 1 {
		t.Errorf("Expected 1 household in 5-10 Juta, got %d", got)
	}
	if got := combined.Table.Get(Bucket20To50M); got != 1 {
		t.Errorf("Expected 1 household in 20-50 Juta, got %d", got)
	}
	if got := combined.Table.Get(BucketUpTo5M); got != 1 {
		t.Errorf("Expected 1 household in the lowest bucket, got %d", got)
	}
}

func TestBuildReport_ComparisonAlignment(t *testing.T) {
	rep := buildTestReport(t)

	sec, _ := rep.Section(SectionParentEducation)
	chart, ok := sec.Chart("comparison")
	if !ok {
		t.Fatal("Comparison chart missing")
	}
	if chart.Kind != ChartGrouped {
		t.Errorf("Expected grouped chart, got %q", chart.Kind)
	}
	if len(chart.Groups) != 2 || chart.Groups[0].Name != "Ayah" || chart.Groups[1].Name != "Ibu" {
		t.Fatalf("Expected Ayah and Ibu groups, got %v", chart.Groups)
	}

	// Father has S1, S2, SMA; mother has SMA, S1. The axis holds the
	// father's labels first, and the union covers both series.
	labels := make(map[string]bool)
	for _, c := range chart.Table.Counts {
		labels[c.Value] = true
	}
	for _, want := range []string{"S1", "S2", "SMA"} {
		if !labels[want] {
			t.Errorf("Expected label %q on the comparison axis", want)
		}
	}
}

func TestAlignComparison_SecondOnlyLabels(t *testing.T) {
	a := ValueCounts("a", []string{"S1", "S1", "SMA"})
	b := ValueCounts("b", []string{"SMA", "D3"})

	axis := alignComparison(a, b)

	if len(axis.Counts) != 3 {
		t.Fatalf("Expected 3 axis labels, got %v", axis.Counts)
	}
	last := axis.Counts[2]
	if last.Value != "D3" || last.N != 0 {
		t.Errorf("Expected second-only label appended with zero count, got %v", last)
	}
}

func TestReport_Filtered(t *testing.T) {
	rep := buildTestReport(t)

	got := rep.Filtered([]string{SectionIncome, SectionSummary})
	if len(got.Sections) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(got.Sections))
	}
	// Report order wins over filter order.
	if got.Sections[0].ID != SectionSummary || got.Sections[1].ID != SectionIncome {
		t.Errorf("Expected report order preserved, got %q then %q", got.Sections[0].ID, got.Sections[1].ID)
	}

	if all := rep.Filtered(nil); len(all.Sections) != len(SectionList) {
		t.Errorf("Expected empty filter to keep everything, got %d sections", len(all.Sections))
	}
}

func TestBuildReport_Insights(t *testing.T) {
	rep := buildTestReport(t)

	sec, _ := rep.Section(SectionDemographics)
	if len(sec.Insights) == 0 {
		t.Fatal("Expected demographic insights")
	}
	if !strings.Contains(sec.Insights[0], "JAWA BARAT") {
		t.Errorf("Expected dominant domicile named, got %q", sec.Insights[0])
	}
}

func TestBuildReport_PartialOptionsKeepCallerValues(t *testing.T) {
	ds := testDataset(t)

	// Only the highlight region is set; the zero top-N fields take the
	// defaults without clobbering it.
	rep, err := BuildReport(context.Background(), Meta{Rows: ds.Len()},
		NativeCounter{DS: ds}, Options{HighlightRegion: "BANTEN"})
	if err != nil {
		t.Fatalf("BuildReport failed: %v", err)
	}

	sec, ok := rep.Section(SectionSummary)
	if !ok {
		t.Fatal("Summary section missing")
	}
	highlight := sec.Metrics[3]
	if !strings.Contains(highlight.Label, "BANTEN") {
		t.Errorf("Expected highlight label for BANTEN, got %q", highlight.Label)
	}
	if highlight.Value != 1 {
		t.Errorf("Expected 1 record from BANTEN, got %d", highlight.Value)
	}
}

func TestBuildReport_CanceledContext(t *testing.T) {
	ds := testDataset(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The native counter never blocks, so a pre-canceled context still
	// completes. This guards the plumbing, not the cancellation itself.
	if _, err := BuildReport(ctx, Meta{Rows: ds.Len()}, NativeCounter{DS: ds}, DefaultOptions()); err != nil {
		t.Errorf("Expected native build to complete, got %v", err)
	}
}
