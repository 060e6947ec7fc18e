package analysis

// ColumnHouseholdIncome names the derived combined-income dimension.
const ColumnHouseholdIncome = "penghasilan_gabungan"

// IncomeBracketOrder is the ordinal ordering of the parental income
// brackets as they appear in registration exports.
var IncomeBracketOrder = []string{
	"0 - 2.500.000",
	"2.500.001 - 5.000.000",
	"5.000.001 - 7.500.000",
	"7.500.001 - 10.000.000",
	"10.000.001 - 20.000.000",
	"20.000.001 - 50.000.000",
	"50.000.001 - 100.000.000",
}

// bracketCeil maps each bracket label to its numeric upper bound in
// rupiah. Unknown labels (including the filled placeholder) map to 0.
var bracketCeil = map[string]int64{
	"0 - 2.500.000":            2_500_000,
	"2.500.001 - 5.000.000":    5_000_000,
	"5.000.001 - 7.500.000":    7_500_000,
	"7.500.001 - 10.000.000":   10_000_000,
	"10.000.001 - 20.000.000":  20_000_000,
	"20.000.001 - 50.000.000":  50_000_000,
	"50.000.001 - 100.000.000": 100_000_000,
}

// Household bucket labels, lowest to highest.
const (
	BucketUpTo5M  = "≤ 5 Juta"
	Bucket5To10M  = "5-10 Juta"
	Bucket10To20M = "10-20 Juta"
	Bucket20To50M = "20-50 Juta"
	BucketOver50M = "> 50 Juta"
)

// HouseholdBucketOrder lists the combined-income buckets in ordinal order.
var HouseholdBucketOrder = []string{
	BucketUpTo5M, Bucket5To10M, Bucket10To20M, Bucket20To50M, BucketOver50M,
}

// BracketCeil returns the upper bound of an income bracket, 0 if unknown.
func BracketCeil(bracket string) int64 {
	return bracketCeil[bracket]
}

// HouseholdBucket combines both parents' brackets into one household
// estimate: sum of the bracket upper bounds, re-bucketed against fixed
// thresholds.
func HouseholdBucket(fatherBracket, motherBracket string) string {
	total := BracketCeil(fatherBracket) + BracketCeil(motherBracket)

	switch {
	case total <= 5_000_000:
		return BucketUpTo5M
	case total <= 10_000_000:
		return Bucket5To10M
	case total <= 20_000_000:
		return Bucket10To20M
	case total <= 50_000_000:
		return Bucket20To50M
	default:
		return BucketOver50M
	}
}
