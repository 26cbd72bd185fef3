package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/JayJamieson/duckcsv/pkg/render"
)

// ErrArrowUnavailable is returned by Relation.Arrow in builds without the
// duckdb_arrow tag.
var ErrArrowUnavailable = errors.New("arrow support not compiled in (build with -tags=duckdb_arrow)")

// Relation is an unmaterialized query. Each fetch runs the query again.
type Relation struct {
	db    *DB
	query string
}

// Result is a fully materialized relation.
type Result struct {
	Columns []string
	Types   []string
	Rows    [][]any
	QueryMS float64
}

// Columns holds a result column by column. Values[i] belongs to Names[i];
// duplicate names keep their own slot.
type Columns struct {
	Names  []string
	Values [][]any
}

// Column returns the first column called name, or nil.
func (c *Columns) Column(name string) []any {
	for i, n := range c.Names {
		if n == name {
			return c.Values[i]
		}
	}
	return nil
}

func (r *Relation) Query() string {
	return r.query
}

// Limit wraps the relation in a sub-query capped at n rows.
func (r *Relation) Limit(n int) *Relation {
	return r.db.Sql(fmt.Sprintf("SELECT * FROM (%s) LIMIT %d", r.query, n))
}

// Order wraps the relation in a sub-query sorted by expr.
func (r *Relation) Order(expr string) *Relation {
	return r.db.Sql(fmt.Sprintf("SELECT * FROM (%s) ORDER BY %s", r.query, expr))
}

func (r *Relation) Execute(ctx context.Context) (*Result, error) {
	startTime := time.Now()

	rows, err := r.db.duckConn.QueryContext(ctx, r.query)
	if err != nil {
		return nil, fmt.Errorf("failed to query data: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}

	types := make([]string, len(colTypes))
	for i, ct := range colTypes {
		types[i] = ct.DatabaseTypeName()
	}

	result := &Result{
		Columns: columns,
		Types:   types,
		Rows:    make([][]any, 0),
	}

	for rows.Next() {
		values := make([]any, len(columns))

		scanArgs := make([]any, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}

		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		result.Rows = append(result.Rows, transformArray(columns, values).([]any))
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	result.QueryMS = float64(time.Since(startTime).Microseconds()) / 1000.0

	return result, nil
}

// FetchAll returns every row as a slice of values.
func (r *Relation) FetchAll(ctx context.Context) ([][]any, error) {
	result, err := r.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return result.Rows, nil
}

// FetchOne returns the first row, or nil when the relation is empty.
func (r *Relation) FetchOne(ctx context.Context) ([]any, error) {
	result, err := r.Execute(ctx)
	if err != nil {
		return nil, err
	}
	if len(result.Rows) == 0 {
		return nil, nil
	}
	return result.Rows[0], nil
}

// Records returns one map per row keyed by column name.
func (r *Relation) Records(ctx context.Context) ([]map[string]any, error) {
	result, err := r.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return result.Shape("objects").([]map[string]any), nil
}

func (r *Relation) Columnar(ctx context.Context) (*Columns, error) {
	result, err := r.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return result.Columnar(), nil
}

// Render writes the relation as a boxed text table.
func (r *Relation) Render(ctx context.Context, w io.Writer) error {
	result, err := r.Execute(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, render.Table(result.Columns, result.Types, result.Rows))
	return err
}

func (res *Result) Columnar() *Columns {
	cols := &Columns{
		Names:  res.Columns,
		Values: make([][]any, len(res.Columns)),
	}
	for i := range res.Columns {
		values := make([]any, len(res.Rows))
		for j, row := range res.Rows {
			values[j] = row[i]
		}
		cols.Values[i] = values
	}
	return cols
}

// Shape converts the rows using the named transform ("array" or "objects").
// Unknown names fall back to "array".
func (res *Result) Shape(name string) any {
	fn, ok := transformFuncs[name]
	if !ok {
		fn = transformArray
	}

	if name == "objects" {
		out := make([]map[string]any, 0, len(res.Rows))
		for _, row := range res.Rows {
			out = append(out, fn(res.Columns, row).(map[string]any))
		}
		return out
	}

	out := make([][]any, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, fn(res.Columns, row).([]any))
	}
	return out
}

// TableQuery pages through a table. Zero Limit means no limit.
type TableQuery struct {
	Limit      int
	Offset     int
	SortColumn string
	SortDesc   bool
	RowID      bool
}

func (db *DB) TableRelation(tableName string, q TableQuery) *Relation {
	query := "SELECT "
	if q.RowID {
		query += "row_number() OVER () AS rowid, "
	}
	query += "* FROM " + quoteIdent(tableName)

	if q.SortColumn != "" {
		direction := ""
		if q.SortDesc {
			direction = " DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s%s", quoteIdent(q.SortColumn), direction)
	}

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	return db.Sql(query)
}
