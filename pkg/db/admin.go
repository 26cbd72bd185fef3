package db

import (
	"context"
	"fmt"

	"github.com/JayJamieson/duckcsv/pkg/models"
)

func (db *DB) CreateTableAs(ctx context.Context, name string, rel *Relation) error {
	query := fmt.Sprintf("CREATE TABLE %s AS (%s)", quoteIdent(name), rel.Query())
	if _, err := db.duckConn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	return nil
}

func (db *DB) ShowTables(ctx context.Context) ([]string, error) {
	rows, err := db.duckConn.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table rows: %w", err)
	}

	return tables, nil
}

// DropTable drops name from DuckDB and forgets any catalog entry for it.
func (db *DB) DropTable(ctx context.Context, name string) error {
	if _, err := db.duckConn.ExecContext(ctx, "DROP TABLE "+quoteIdent(name)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	if db.catalog == nil {
		return nil
	}
	return db.catalog.Remove(ctx, name)
}

func (db *DB) TableInfo(ctx context.Context, name string) ([]models.ColumnInfo, error) {
	rows, err := db.duckConn.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteLiteral(name)))
	if err != nil {
		return nil, fmt.Errorf("failed to get table info: %w", err)
	}
	defer rows.Close()

	var columns []models.ColumnInfo
	for rows.Next() {
		var col models.ColumnInfo
		if err := rows.Scan(&col.CID, &col.Name, &col.Type, &col.NotNull, &col.DefaultVal, &col.PK); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}
		columns = append(columns, col)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column rows: %w", err)
	}

	return columns, nil
}
