package dataset

import "github.com/daftar/daftar/internal/model"

// Cleaning constants. NullSentinel is the literal marker the upstream
// export writes into the two income columns; the other blanks are filled
// with PlaceholderUnknown.
const (
	NullSentinel       = `\N`
	DefaultIncome      = "0 - 2.500.000"
	PlaceholderUnknown = "Tidak Diketahui"
)

// Clean normalizes records in place.
//
// Order matters: the income sentinel is replaced first, so a `\N` in
// either income column becomes the lowest bracket rather than the
// unknown placeholder. Every remaining empty cell is then filled with
// the placeholder.
func Clean(records []model.Record) {
	for i := range records {
		r := &records[i]

		if r.FatherIncome == NullSentinel {
			r.FatherIncome = DefaultIncome
		}
		if r.MotherIncome == NullSentinel {
			r.MotherIncome = DefaultIncome
		}

		fillBlanks(r)
	}
}

// fillBlanks replaces every empty field with the unknown placeholder.
func fillBlanks(r *model.Record) {
	fields := r.Fields()
	for i, f := range fields {
		if f == "" {
			fields[i] = PlaceholderUnknown
		}
	}
	*r = model.FromFields(fields)
}
