// Package model defines the registration record shape shared across the pipeline.
package model

// Canonical column names of a registration export, in file order.
const (
	ColName           = "nama_calon_murid"
	ColCategory       = "kategori"
	ColTrack          = "jalur"
	ColChoice1        = "tujuan1"
	ColChoice2        = "tujuan2"
	ColChoice3        = "tujuan3"
	ColCampus1        = "kampus1"
	ColCampus2        = "kampus2"
	ColCampus3        = "kampus3"
	ColDomicile       = "domisili"
	ColProvince       = "alamat_propinsi"
	ColRegency        = "alamat_kabupaten"
	ColSchool         = "asal_sekolah"
	ColSchoolProvince = "propinsi_asal_sekolah"
	ColFatherEdu      = "ayah_pendidikan"
	ColFatherJob      = "ayah_pekerjaan"
	ColFatherIncome   = "ayah_penghasilan"
	ColMotherEdu      = "ibu_pendidikan"
	ColMotherJob      = "ibu_pekerjaan"
	ColMotherIncome   = "ibu_penghasilan"
)

// Columns lists every required column in canonical order.
var Columns = []string{
	ColName, ColCategory, ColTrack,
	ColChoice1, ColChoice2, ColChoice3,
	ColCampus1, ColCampus2, ColCampus3,
	ColDomicile, ColProvince, ColRegency,
	ColSchool, ColSchoolProvince,
	ColFatherEdu, ColFatherJob, ColFatherIncome,
	ColMotherEdu, ColMotherJob, ColMotherIncome,
}

// Record is one registrant row after header mapping. All fields are
// categorical strings; cleaning replaces sentinels and blanks in place.
type Record struct {
	Name           string `json:"nama_calon_murid"`
	Category       string `json:"kategori"`
	Track          string `json:"jalur"`
	Choice1        string `json:"tujuan1"`
	Choice2        string `json:"tujuan2"`
	Choice3        string `json:"tujuan3"`
	Campus1        string `json:"kampus1"`
	Campus2        string `json:"kampus2"`
	Campus3        string `json:"kampus3"`
	Domicile       string `json:"domisili"`
	Province       string `json:"alamat_propinsi"`
	Regency        string `json:"alamat_kabupaten"`
	School         string `json:"asal_sekolah"`
	SchoolProvince string `json:"propinsi_asal_sekolah"`
	FatherEdu      string `json:"ayah_pendidikan"`
	FatherJob      string `json:"ayah_pekerjaan"`
	FatherIncome   string `json:"ayah_penghasilan"`
	MotherEdu      string `json:"ibu_pendidikan"`
	MotherJob      string `json:"ibu_pekerjaan"`
	MotherIncome   string `json:"ibu_penghasilan"`
}

// FromFields builds a Record from values already ordered per Columns.
func FromFields(fields []string) Record {
	var r Record
	for i, p := range r.fieldPtrs() {
		if i < len(fields) {
			*p = fields[i]
		}
	}
	return r
}

// Fields returns the record values in canonical column order.
func (r *Record) Fields() []string {
	ptrs := r.fieldPtrs()
	out := make([]string, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out
}

// Get returns the value for a canonical column name.
func (r *Record) Get(column string) string {
	for i, c := range Columns {
		if c == column {
			return *r.fieldPtrs()[i]
		}
	}
	return ""
}

// fieldPtrs returns pointers to every field, aligned with Columns.
func (r *Record) fieldPtrs() []*string {
	return []*string{
		&r.Name, &r.Category, &r.Track,
		&r.Choice1, &r.Choice2, &r.Choice3,
		&r.Campus1, &r.Campus2, &r.Campus3,
		&r.Domicile, &r.Province, &r.Regency,
		&r.School, &r.SchoolProvince,
		&r.FatherEdu, &r.FatherJob, &r.FatherIncome,
		&r.MotherEdu, &r.MotherJob, &r.MotherIncome,
	}
}
