// Package analysis computes the descriptive statistics behind every
// report section: value counts per dimension, top-N restrictions,
// ordinal reordering, and the derived household-income feature.
package analysis

import (
	"context"
	"sort"

	"github.com/daftar/daftar/pkg/dataset"
)

// Count is one value with its occurrence count.
type Count struct {
	Value string `json:"value"`
	N     int    `json:"n"`
}

// CountTable holds the counts of one dimension, sorted by count
// descending with ties kept in first-seen order.
type CountTable struct {
	Column string  `json:"column"`
	Counts []Count `json:"counts"`
	// Total is the number of rows counted, including values later
	// trimmed by TopN.
	Total int `json:"total"`
}

// Top returns the most frequent value, or "" for an empty table.
func (t CountTable) Top() Count {
	if len(t.Counts) == 0 {
		return Count{}
	}
	return t.Counts[0]
}

// Get returns the count for a value, or 0.
func (t CountTable) Get(value string) int {
	for _, c := range t.Counts {
		if c.Value == value {
			return c.N
		}
	}
	return 0
}

// ValueCounts groups values and counts occurrences. The result is
// ordered by count descending; equal counts keep first-seen order.
func ValueCounts(column string, values []string) CountTable {
	type slot struct {
		n     int
		first int
	}
	byValue := make(map[string]*slot)
	order := make([]string, 0, 32)

	for i, v := range values {
		s, ok := byValue[v]
		if !ok {
			s = &slot{first: i}
			byValue[v] = s
			order = append(order, v)
		}
		s.n++
	}

	counts := make([]Count, 0, len(order))
	for _, v := range order {
		counts = append(counts, Count{Value: v, N: byValue[v].n})
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].N > counts[j].N
	})

	return CountTable{Column: column, Counts: counts, Total: len(values)}
}

// TopN restricts a table to its n most frequent values. Total is kept so
// shares remain relative to the whole column.
func TopN(t CountTable, n int) CountTable {
	if n <= 0 || n >= len(t.Counts) {
		return t
	}
	trimmed := make([]Count, n)
	copy(trimmed, t.Counts[:n])
	return CountTable{Column: t.Column, Counts: trimmed, Total: t.Total}
}

// ReorderOrdinal reorders a table against a fixed ordinal label list.
// Labels absent from the table are skipped; counts whose label is not in
// the ordering are dropped, matching a filtered reindex.
func ReorderOrdinal(t CountTable, order []string) CountTable {
	present := make(map[string]int, len(t.Counts))
	for _, c := range t.Counts {
		present[c.Value] = c.N
	}

	counts := make([]Count, 0, len(order))
	for _, label := range order {
		if n, ok := present[label]; ok {
			counts = append(counts, Count{Value: label, N: n})
		}
	}

	return CountTable{Column: t.Column, Counts: counts, Total: t.Total}
}

// Counter produces count tables for one loaded dataset. The native
// implementation walks records in memory; the DuckDB engine answers the
// same questions with SQL.
type Counter interface {
	// Counts groups one canonical column by value.
	Counts(ctx context.Context, column string) (CountTable, error)
	// PooledCounts groups the concatenation of several columns.
	PooledCounts(ctx context.Context, name string, columns ...string) (CountTable, error)
	// CombinedIncome counts the derived household-income buckets.
	CombinedIncome(ctx context.Context) (CountTable, error)
}

// NativeCounter computes counts directly over an in-memory dataset.
type NativeCounter struct {
	DS *dataset.Dataset
}

// Counts implements Counter.
func (n NativeCounter) Counts(_ context.Context, column string) (CountTable, error) {
	return ValueCounts(column, n.DS.Column(column)), nil
}

// PooledCounts implements Counter.
func (n NativeCounter) PooledCounts(_ context.Context, name string, columns ...string) (CountTable, error) {
	var pooled []string
	for _, col := range columns {
		pooled = append(pooled, n.DS.Column(col)...)
	}
	return ValueCounts(name, pooled), nil
}

// CombinedIncome implements Counter.
func (n NativeCounter) CombinedIncome(_ context.Context) (CountTable, error) {
	buckets := make([]string, 0, n.DS.Len())
	for i := range n.DS.Records {
		r := &n.DS.Records[i]
		buckets = append(buckets, HouseholdBucket(r.FatherIncome, r.MotherIncome))
	}
	return ValueCounts(ColumnHouseholdIncome, buckets), nil
}
