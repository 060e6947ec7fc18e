package analysis

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/daftar/daftar/internal/model"
	"github.com/daftar/daftar/pkg/dataset"
)

// DuckDBCounter answers the same aggregation questions as NativeCounter
// with SQL over an in-memory DuckDB table. Selected with --engine duckdb.
type DuckDBCounter struct {
	db *sql.DB
}

// NewDuckDBCounter loads a cleaned dataset into an in-memory DuckDB
// table. The caller must Close it.
func NewDuckDBCounter(ds *dataset.Dataset) (*DuckDBCounter, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	cols := make([]string, len(model.Columns))
	for i, c := range model.Columns {
		cols[i] = fmt.Sprintf("%q VARCHAR", c)
	}
	if _, err := db.Exec("CREATE TABLE registrations (" + strings.Join(cols, ", ") + ")"); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(model.Columns)), ", ")
	stmt, err := db.Prepare("INSERT INTO registrations VALUES (" + placeholders + ")")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range ds.Records {
		fields := ds.Records[i].Fields()
		args := make([]interface{}, len(fields))
		for j, f := range fields {
			args[j] = f
		}
		if _, err := stmt.Exec(args...); err != nil {
			db.Close()
			return nil, fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	return &DuckDBCounter{db: db}, nil
}

// Close releases the DuckDB handle.
func (d *DuckDBCounter) Close() error {
	return d.db.Close()
}

// Counts implements Counter. Ties break on the value itself so repeated
// runs order identically.
func (d *DuckDBCounter) Counts(ctx context.Context, column string) (CountTable, error) {
	q := fmt.Sprintf(
		`SELECT %q AS v, COUNT(*) AS n FROM registrations GROUP BY v ORDER BY n DESC, v`,
		column)
	return d.queryCounts(ctx, column, q)
}

// PooledCounts implements Counter. The columns are stacked with UNION ALL
// before grouping, so each row contributes one count per column.
func (d *DuckDBCounter) PooledCounts(ctx context.Context, name string, columns ...string) (CountTable, error) {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf(`SELECT %q AS v FROM registrations`, col)
	}
	q := fmt.Sprintf(
		`SELECT v, COUNT(*) AS n FROM (%s) GROUP BY v ORDER BY n DESC, v`,
		strings.Join(parts, " UNION ALL "))
	return d.queryCounts(ctx, name, q)
}

// CombinedIncome implements Counter. The bracket-to-ceiling lookup and
// the re-bucketing thresholds are expressed as nested CASEs.
func (d *DuckDBCounter) CombinedIncome(ctx context.Context) (CountTable, error) {
	ceil := func(col string) string {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("CASE %q ", col))
		for _, bracket := range IncomeBracketOrder {
			sb.WriteString(fmt.Sprintf("WHEN '%s' THEN %d ", bracket, BracketCeil(bracket)))
		}
		sb.WriteString("ELSE 0 END")
		return sb.String()
	}

	q := fmt.Sprintf(`
		SELECT CASE
			WHEN total <= 5000000 THEN '%s'
			WHEN total <= 10000000 THEN '%s'
			WHEN total <= 20000000 THEN '%s'
			WHEN total <= 50000000 THEN '%s'
			ELSE '%s'
		END AS bucket, COUNT(*) AS n
		FROM (SELECT (%s) + (%s) AS total FROM registrations)
		GROUP BY bucket ORDER BY n DESC, bucket`,
		BucketUpTo5M, Bucket5To10M, Bucket10To20M, Bucket20To50M, BucketOver50M,
		ceil(model.ColFatherIncome), ceil(model.ColMotherIncome))

	return d.queryCounts(ctx, ColumnHouseholdIncome, q)
}

func (d *DuckDBCounter) queryCounts(ctx context.Context, column, query string) (CountTable, error) {
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return CountTable{}, fmt.Errorf("duckdb query %s: %w", column, err)
	}
	defer rows.Close()

	t := CountTable{Column: column}
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Value, &c.N); err != nil {
			return CountTable{}, err
		}
		t.Counts = append(t.Counts, c)
		t.Total += c.N
	}
	return t, rows.Err()
}
