// Package demo replays a fixed walkthrough of DuckDB against an employees CSV:
// connecting, reading the file a few ways, converting results, running
// analytical queries and casts, and finally listing and dropping tables.
//
// Steps run in order and the first failure stops the tour. Errors come
// straight from the engine; nothing is retried or recovered.
package demo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JayJamieson/duckcsv/pkg/db"
	"github.com/JayJamieson/duckcsv/pkg/render"
)

// Step is one numbered example. csv is the path of the employees file.
type Step struct {
	Section string
	Title   string
	Run     func(ctx context.Context, d *db.DB, csv string, w io.Writer) error
}

func Steps() []Step {
	return []Step{
		{"BASICS", "SELECT 42", selectLiteral},

		{"CSV INGESTION", "Query the file directly", queryFile},
		{"CSV INGESTION", "read_csv", readCSV(db.ReadCSVOptions{})},
		{"CSV INGESTION", "read_csv with filename column", readCSV(db.ReadCSVOptions{Filename: true})},
		{"CSV INGESTION", "read_csv with header=false", readCSV(db.ReadCSVOptions{Header: boolPtr(false)})},
		{"CSV INGESTION", "read_csv with header=false, skip=1", readCSV(db.ReadCSVOptions{Header: boolPtr(false), SkipRows: 1})},

		{"DIFFERENT FORMATS", "Relation", formatRelation},
		{"DIFFERENT FORMATS", "Records", formatRecords},
		{"DIFFERENT FORMATS", "Columnar arrays", formatColumnar},
		{"DIFFERENT FORMATS", "Arrow table", formatArrow},
		{"DIFFERENT FORMATS", "Rows", formatRows},

		{"ANALYTICAL QUERIES", "Create table employees", createEmployees},
		{"ANALYTICAL QUERIES", "10 lowest paid employees", show(`SELECT * FROM employees ORDER BY Salary ASC LIMIT 10`)},
		{"ANALYTICAL QUERIES", "Employee with the highest bonus", show(`
SELECT * FROM employees
WHERE "Bonus %" = (SELECT MAX("Bonus %")
FROM employees)`)},
		{"ANALYTICAL QUERIES", "Average salary (all rows)", averageAll},
		{"ANALYTICAL QUERIES", "Average salary (one row)", averageOne},
		{"ANALYTICAL QUERIES", "Average salary by team", show(`SELECT Team, AVG(Salary) FROM employees GROUP BY Team`)},

		{"CAST TYPE", "Salary::float", show(`SELECT Salary::float AS Salary FROM employees LIMIT 10`)},
		{"CAST TYPE", `CAST("Bonus %" AS int)`, show(`SELECT CAST("Bonus %" AS int) AS Bonus FROM employees LIMIT 10`)},

		{"ADMIN", "SHOW TABLES", show(`SHOW TABLES`)},
		{"ADMIN", "DROP TABLE employees", dropEmployees},
		{"ADMIN", "SHOW TABLES", show(`SHOW TABLES`)},
	}
}

// Run executes every step against d, writing section banners and results to w.
func Run(ctx context.Context, d *db.DB, csv string, w io.Writer) error {
	section := ""
	for i, step := range Steps() {
		if step.Section != section {
			section = step.Section
			fmt.Fprintf(w, "\n# %s %s\n", section, strings.Repeat("#", 40-len(section)))
		}
		fmt.Fprintf(w, "\n-- %d. %s\n", i+1, step.Title)

		if err := step.Run(ctx, d, csv, w); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Title, err)
		}
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }

func show(query string) func(context.Context, *db.DB, string, io.Writer) error {
	return func(ctx context.Context, d *db.DB, _ string, w io.Writer) error {
		return d.Sql(query).Render(ctx, w)
	}
}

func selectLiteral(ctx context.Context, d *db.DB, _ string, w io.Writer) error {
	rows, err := d.Sql("SELECT 42").FetchAll(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, rows)
	return err
}

func queryFile(ctx context.Context, d *db.DB, csv string, w io.Writer) error {
	return d.FromFile(csv).Render(ctx, w)
}

func readCSV(opts db.ReadCSVOptions) func(context.Context, *db.DB, string, io.Writer) error {
	return func(ctx context.Context, d *db.DB, csv string, w io.Writer) error {
		return d.ReadCSV(csv, opts).Render(ctx, w)
	}
}

func formatRelation(ctx context.Context, d *db.DB, csv string, w io.Writer) error {
	rel := d.FromFile(csv)
	fmt.Fprintf(w, "%T: %s\n", rel, rel.Query())
	return rel.Render(ctx, w)
}

func formatRecords(ctx context.Context, d *db.DB, csv string, w io.Writer) error {
	records, err := d.FromFile(csv).Limit(3).Records(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Fprintln(w, rec)
	}
	return nil
}

func formatColumnar(ctx context.Context, d *db.DB, csv string, w io.Writer) error {
	cols, err := d.FromFile(csv).Limit(3).Columnar(ctx)
	if err != nil {
		return err
	}
	for i, name := range cols.Names {
		fmt.Fprintf(w, "%s: %v\n", name, cols.Values[i])
	}
	return nil
}

func formatArrow(ctx context.Context, d *db.DB, csv string, w io.Writer) error {
	table, err := d.FromFile(csv).Arrow(ctx)
	if errors.Is(err, db.ErrArrowUnavailable) {
		_, err = fmt.Fprintf(w, "skipped: %v\n", err)
		return err
	}
	if err != nil {
		return err
	}
	defer table.Release()

	fmt.Fprintf(w, "arrow.Table: %d rows\n%s\n", table.NumRows(), table.Schema())
	return nil
}

func formatRows(ctx context.Context, d *db.DB, csv string, w io.Writer) error {
	rows, err := d.FromFile(csv).Limit(3).FetchAll(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, rows)
	return err
}

func createEmployees(ctx context.Context, d *db.DB, csv string, w io.Writer) error {
	if err := d.CreateTableAs(ctx, "employees", d.FromFile(csv)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "OK")
	return err
}

func averageAll(ctx context.Context, d *db.DB, _ string, w io.Writer) error {
	rows, err := d.Sql("SELECT AVG(Salary) FROM employees").FetchAll(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, rows)
	return err
}

func averageOne(ctx context.Context, d *db.DB, _ string, w io.Writer) error {
	row, err := d.Sql("SELECT AVG(Salary) FROM employees").FetchOne(ctx)
	if err != nil {
		return err
	}
	if row == nil {
		_, err = fmt.Fprintln(w, "NULL")
		return err
	}
	_, err = fmt.Fprintf(w, "%v\n%s\n", row, render.Value(row[0]))
	return err
}

func dropEmployees(ctx context.Context, d *db.DB, _ string, w io.Writer) error {
	if err := d.DropTable(ctx, "employees"); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "OK")
	return err
}
