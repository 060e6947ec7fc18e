package analysis

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/daftar/daftar/internal/model"
)

// ChartKind selects how a count table is rendered.
type ChartKind string

const (
	ChartPie     ChartKind = "pie"
	ChartBar     ChartKind = "bar"
	ChartHBar    ChartKind = "hbar"
	ChartGrouped ChartKind = "grouped"
)

// Chart is one renderable chart within a section.
type Chart struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Kind  ChartKind  `json:"kind"`
	Table CountTable `json:"table"`
	// Groups carries the per-series tables for grouped comparisons.
	Groups []Group `json:"groups,omitempty"`
}

// Group is one named series of a grouped chart.
type Group struct {
	Name  string     `json:"name"`
	Table CountTable `json:"table"`
}

// Metric is one headline number in the summary section.
type Metric struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Section is one toggleable report block.
type Section struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Metrics  []Metric `json:"metrics,omitempty"`
	Charts   []Chart  `json:"charts,omitempty"`
	Insights []string `json:"insights,omitempty"`
}

// Chart looks up a chart by ID.
func (s *Section) Chart(id string) (*Chart, bool) {
	for i := range s.Charts {
		if s.Charts[i].ID == id {
			return &s.Charts[i], true
		}
	}
	return nil, false
}

// Report is the full analysis result for one dataset.
type Report struct {
	Source      string    `json:"source"`
	Rows        int       `json:"rows"`
	SkippedRows int       `json:"skipped_rows"`
	Checksum    string    `json:"checksum"`
	GeneratedAt time.Time `json:"generated_at"`
	Sections    []Section `json:"sections"`
}

// Section looks up a section by ID.
func (r *Report) Section(id string) (*Section, bool) {
	for i := range r.Sections {
		if r.Sections[i].ID == id {
			return &r.Sections[i], true
		}
	}
	return nil, false
}

// Filtered returns a copy keeping only the named sections, in report
// order. An empty filter keeps everything.
func (r *Report) Filtered(ids []string) *Report {
	if len(ids) == 0 {
		return r
	}
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}

	out := *r
	out.Sections = nil
	for _, s := range r.Sections {
		if keep[s.ID] {
			out.Sections = append(out.Sections, s)
		}
	}
	return &out
}

// Section identifiers, in display order.
const (
	SectionSummary          = "summary"
	SectionDemographics     = "demographics"
	SectionGeography        = "geography"
	SectionPreferences      = "preferences"
	SectionParentEducation  = "parent_education"
	SectionParentOccupation = "parent_occupation"
	SectionIncome           = "income"
	SectionSchoolOrigin     = "school_origin"
)

// SectionDescriptor describes one section for toggle UIs.
type SectionDescriptor struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// SectionList enumerates every section in display order.
var SectionList = []SectionDescriptor{
	{SectionSummary, "Statistik Ringkasan"},
	{SectionDemographics, "Analisis Demografis"},
	{SectionGeography, "Analisis Geografis"},
	{SectionPreferences, "Analisis Preferensi Sekolah"},
	{SectionParentEducation, "Pendidikan Orang Tua"},
	{SectionParentOccupation, "Pekerjaan Orang Tua"},
	{SectionIncome, "Analisis Penghasilan"},
	{SectionSchoolOrigin, "Asal Sekolah"},
}

func sectionTitle(id string) string {
	for _, d := range SectionList {
		if d.ID == id {
			return d.Title
		}
	}
	return id
}

// Options bound the report computation.
type Options struct {
	TopRegencies    int
	TopOccupations  int
	TopSchools      int
	HighlightRegion string
}

// DefaultOptions mirror the dashboard defaults.
func DefaultOptions() Options {
	return Options{
		TopRegencies:    10,
		TopOccupations:  8,
		TopSchools:      10,
		HighlightRegion: "JAWA BARAT",
	}
}

// Meta carries dataset provenance into the report.
type Meta struct {
	Source      string
	Rows        int
	SkippedRows int
	Checksum    string
}

// BuildReport computes every section over one dataset. Sections are
// independent group-by-count passes, so they run concurrently.
func BuildReport(ctx context.Context, meta Meta, c Counter, opts Options) (*Report, error) {
	def := DefaultOptions()
	if opts.TopRegencies <= 0 {
		opts.TopRegencies = def.TopRegencies
	}
	if opts.TopOccupations <= 0 {
		opts.TopOccupations = def.TopOccupations
	}
	if opts.TopSchools <= 0 {
		opts.TopSchools = def.TopSchools
	}
	if opts.HighlightRegion == "" {
		opts.HighlightRegion = def.HighlightRegion
	}

	sections := make([]Section, len(SectionList))
	g, gctx := errgroup.WithContext(ctx)

	build := []func(context.Context, Counter, Options) (Section, error){
		buildSummary,
		buildDemographics,
		buildGeography,
		buildPreferences,
		buildParentEducation,
		buildParentOccupation,
		buildIncome,
		buildSchoolOrigin,
	}
	for i, fn := range build {
		i, fn := i, fn
		g.Go(func() error {
			s, err := fn(gctx, c, opts)
			if err != nil {
				return fmt.Errorf("section %s: %w", SectionList[i].ID, err)
			}
			sections[i] = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Report{
		Source:      meta.Source,
		Rows:        meta.Rows,
		SkippedRows: meta.SkippedRows,
		Checksum:    meta.Checksum,
		GeneratedAt: time.Now(),
		Sections:    sections,
	}, nil
}

func buildSummary(ctx context.Context, c Counter, opts Options) (Section, error) {
	domicile, err := c.Counts(ctx, model.ColDomicile)
	if err != nil {
		return Section{}, err
	}
	provinces, err := c.Counts(ctx, model.ColProvince)
	if err != nil {
		return Section{}, err
	}
	schools, err := c.Counts(ctx, model.ColSchool)
	if err != nil {
		return Section{}, err
	}

	return Section{
		ID:    SectionSummary,
		Title: sectionTitle(SectionSummary),
		Metrics: []Metric{
			{Label: "Total Calon Murid", Value: domicile.Total},
			{Label: "Jumlah Provinsi", Value: len(provinces.Counts)},
			{Label: "Jumlah Sekolah Asal", Value: len(schools.Counts)},
			{Label: "Siswa dari " + opts.HighlightRegion, Value: domicile.Get(opts.HighlightRegion)},
		},
	}, nil
}

func buildDemographics(ctx context.Context, c Counter, _ Options) (Section, error) {
	domicile, err := c.Counts(ctx, model.ColDomicile)
	if err != nil {
		return Section{}, err
	}
	category, err := c.Counts(ctx, model.ColCategory)
	if err != nil {
		return Section{}, err
	}

	s := Section{
		ID:    SectionDemographics,
		Title: sectionTitle(SectionDemographics),
		Charts: []Chart{
			{ID: "domicile", Title: "Sebaran Domisili Calon Murid", Kind: ChartPie, Table: domicile},
			{ID: "category", Title: "Jumlah Calon Murid per Kategori", Kind: ChartBar, Table: category},
		},
	}
	if top := domicile.Top(); top.N > 0 {
		s.Insights = append(s.Insights, fmt.Sprintf(
			"%s mendominasi dengan %d siswa (%.1f%%)",
			top.Value, top.N, share(top.N, domicile.Total)))
	}
	if top := category.Top(); top.N > 0 {
		s.Insights = append(s.Insights, fmt.Sprintf(
			"Mayoritas pendaftar adalah kategori %s dengan %d siswa", top.Value, top.N))
	}
	return s, nil
}

func buildGeography(ctx context.Context, c Counter, opts Options) (Section, error) {
	province, err := c.Counts(ctx, model.ColProvince)
	if err != nil {
		return Section{}, err
	}
	regency, err := c.Counts(ctx, model.ColRegency)
	if err != nil {
		return Section{}, err
	}
	topRegency := TopN(regency, opts.TopRegencies)

	s := Section{
		ID:    SectionGeography,
		Title: sectionTitle(SectionGeography),
		Charts: []Chart{
			{ID: "province", Title: "Distribusi Provinsi Asal", Kind: ChartHBar, Table: province},
			{ID: "regency", Title: fmt.Sprintf("Top %d Kabupaten/Kota Asal", opts.TopRegencies), Kind: ChartHBar, Table: topRegency},
		},
	}
	if top := province.Top(); top.N > 0 {
		s.Insights = append(s.Insights,
			fmt.Sprintf("Provinsi dominan: %s (%d siswa)", top.Value, top.N),
			fmt.Sprintf("Total provinsi yang terwakili: %d provinsi", len(province.Counts)))
	}
	if top := topRegency.Top(); top.N > 0 {
		s.Insights = append(s.Insights,
			fmt.Sprintf("Kabupaten/Kota terbanyak: %s (%d siswa)", top.Value, top.N))
	}
	return s, nil
}

func buildPreferences(ctx context.Context, c Counter, _ Options) (Section, error) {
	choice1, err := c.Counts(ctx, model.ColChoice1)
	if err != nil {
		return Section{}, err
	}
	campus, err := c.PooledCounts(ctx, "kampus",
		model.ColCampus1, model.ColCampus2, model.ColCampus3)
	if err != nil {
		return Section{}, err
	}

	s := Section{
		ID:    SectionPreferences,
		Title: sectionTitle(SectionPreferences),
		Charts: []Chart{
			{ID: "choice1", Title: "Distribusi Pilihan Pertama", Kind: ChartPie, Table: choice1},
			{ID: "campus", Title: "Popularitas Kampus", Kind: ChartBar, Table: campus},
		},
	}
	if top := choice1.Top(); top.N > 0 {
		s.Insights = append(s.Insights,
			fmt.Sprintf("Pilihan pertama terpopuler: %s (%d siswa)", top.Value, top.N))
	}
	if top := campus.Top(); top.N > 0 {
		s.Insights = append(s.Insights,
			fmt.Sprintf("Kampus terfavorit: %s (%d pilihan)", top.Value, top.N))
	}
	return s, nil
}

func buildParentEducation(ctx context.Context, c Counter, _ Options) (Section, error) {
	father, err := c.Counts(ctx, model.ColFatherEdu)
	if err != nil {
		return Section{}, err
	}
	mother, err := c.Counts(ctx, model.ColMotherEdu)
	if err != nil {
		return Section{}, err
	}

	return Section{
		ID:    SectionParentEducation,
		Title: sectionTitle(SectionParentEducation),
		Charts: []Chart{
			{ID: "father", Title: "Distribusi Pendidikan Ayah", Kind: ChartPie, Table: father},
			{ID: "mother", Title: "Distribusi Pendidikan Ibu", Kind: ChartPie, Table: mother},
			{
				ID:    "comparison",
				Title: "Perbandingan Tingkat Pendidikan Ayah vs Ibu",
				Kind:  ChartGrouped,
				Table: alignComparison(father, mother),
				Groups: []Group{
					{Name: "Ayah", Table: father},
					{Name: "Ibu", Table: mother},
				},
			},
		},
	}, nil
}

// alignComparison builds the label axis of a grouped chart: the first
// series' labels in their count order, then labels only the second
// series has. Counts carry the first series' values; renderers read the
// per-group tables for the bars.
func alignComparison(a, b CountTable) CountTable {
	seen := make(map[string]bool, len(a.Counts))
	counts := make([]Count, 0, len(a.Counts)+len(b.Counts))
	for _, c := range a.Counts {
		seen[c.Value] = true
		counts = append(counts, c)
	}
	for _, c := range b.Counts {
		if !seen[c.Value] {
			counts = append(counts, Count{Value: c.Value, N: a.Get(c.Value)})
		}
	}
	return CountTable{Column: a.Column + "_vs_" + b.Column, Counts: counts, Total: a.Total}
}

func buildParentOccupation(ctx context.Context, c Counter, opts Options) (Section, error) {
	father, err := c.Counts(ctx, model.ColFatherJob)
	if err != nil {
		return Section{}, err
	}
	mother, err := c.Counts(ctx, model.ColMotherJob)
	if err != nil {
		return Section{}, err
	}
	topFather := TopN(father, opts.TopOccupations)
	topMother := TopN(mother, opts.TopOccupations)

	s := Section{
		ID:    SectionParentOccupation,
		Title: sectionTitle(SectionParentOccupation),
		Charts: []Chart{
			{ID: "father", Title: fmt.Sprintf("Top %d Pekerjaan Ayah", opts.TopOccupations), Kind: ChartHBar, Table: topFather},
			{ID: "mother", Title: fmt.Sprintf("Top %d Pekerjaan Ibu", opts.TopOccupations), Kind: ChartHBar, Table: topMother},
		},
	}
	if top := topFather.Top(); top.N > 0 {
		s.Insights = append(s.Insights,
			fmt.Sprintf("Pekerjaan ayah terbanyak: %s (%d orang)", top.Value, top.N))
	}
	if top := topMother.Top(); top.N > 0 {
		s.Insights = append(s.Insights,
			fmt.Sprintf("Pekerjaan ibu terbanyak: %s (%d orang)", top.Value, top.N))
	}
	return s, nil
}

func buildIncome(ctx context.Context, c Counter, _ Options) (Section, error) {
	father, err := c.Counts(ctx, model.ColFatherIncome)
	if err != nil {
		return Section{}, err
	}
	mother, err := c.Counts(ctx, model.ColMotherIncome)
	if err != nil {
		return Section{}, err
	}
	combined, err := c.CombinedIncome(ctx)
	if err != nil {
		return Section{}, err
	}

	s := Section{
		ID:    SectionIncome,
		Title: sectionTitle(SectionIncome),
		Charts: []Chart{
			{ID: "father", Title: "Distribusi Penghasilan Ayah", Kind: ChartBar, Table: ReorderOrdinal(father, IncomeBracketOrder)},
			{ID: "mother", Title: "Distribusi Penghasilan Ibu", Kind: ChartBar, Table: ReorderOrdinal(mother, IncomeBracketOrder)},
			{ID: "combined", Title: "Estimasi Penghasilan Keluarga Gabungan", Kind: ChartPie, Table: combined},
		},
	}
	if top := combined.Top(); top.N > 0 {
		s.Insights = append(s.Insights, fmt.Sprintf(
			"Estimasi penghasilan keluarga terbanyak: %s (%.1f%%)",
			top.Value, share(top.N, combined.Total)))
	}
	return s, nil
}

func buildSchoolOrigin(ctx context.Context, c Counter, opts Options) (Section, error) {
	schoolProvince, err := c.Counts(ctx, model.ColSchoolProvince)
	if err != nil {
		return Section{}, err
	}
	school, err := c.Counts(ctx, model.ColSchool)
	if err != nil {
		return Section{}, err
	}

	return Section{
		ID:    SectionSchoolOrigin,
		Title: sectionTitle(SectionSchoolOrigin),
		Charts: []Chart{
			{ID: "province", Title: "Distribusi Provinsi Asal Sekolah", Kind: ChartPie, Table: schoolProvince},
			{ID: "schools", Title: fmt.Sprintf("%d Sekolah Asal Terbanyak", opts.TopSchools), Kind: ChartHBar, Table: TopN(school, opts.TopSchools)},
		},
	}, nil
}

func share(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
