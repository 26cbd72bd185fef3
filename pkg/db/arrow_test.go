//go:build duckdb_arrow

package db

import (
	"context"
	"testing"
)

func TestArrow(t *testing.T) {
	database := newTestDB(t, "")

	table, err := database.FromFile(employeesCSV).Arrow(context.Background())
	if err != nil {
		t.Fatalf("Arrow error: %v", err)
	}
	defer table.Release()

	if table.NumRows() != 15 {
		t.Errorf("Expected 15 rows, got %d", table.NumRows())
	}
	if table.NumCols() != 7 {
		t.Errorf("Expected 7 columns, got %d", table.NumCols())
	}
	if name := table.Schema().Field(3).Name; name != "Salary" {
		t.Errorf("Expected Salary field, got %s", name)
	}
}
