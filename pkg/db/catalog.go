package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/JayJamieson/duckcsv/pkg/models"
	"github.com/labstack/gommon/log"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

var (
	ErrNotFound  = errors.New("csv table not found")
	ErrNoCatalog = errors.New("no import catalog configured")
)

// Catalog records which DuckDB tables were created from imported CSV files.
// It lives in libsql so a remote Turso database can hold it.
type Catalog struct {
	conn *sql.DB
}

func OpenCatalog(url string) (*Catalog, error) {
	conn, err := sql.Open("libsql", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	_, err = conn.Exec(`
		CREATE TABLE IF NOT EXISTS csv_table (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			table_name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			row_count INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create csv_table: %w", err)
	}

	return &Catalog{conn: conn}, nil
}

func (c *Catalog) Close() error {
	return c.conn.Close()
}

// Register stores t, replacing any earlier entry for the same table name.
func (c *Catalog) Register(ctx context.Context, t *models.CSVTable) (err error) {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Warnf("Error rolling back transaction: %v", rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM csv_table WHERE table_name = ?`, t.TableName); err != nil {
		return fmt.Errorf("failed to replace CSV reference: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO csv_table (id, filename, table_name, created_at, row_count)
		VALUES (?, ?, ?, ?, ?)
	`, t.ID, t.Filename, t.TableName, t.CreatedAt, t.RowCount)
	if err != nil {
		return fmt.Errorf("failed to store CSV reference: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (c *Catalog) Get(ctx context.Context, id string) (*models.CSVTable, error) {
	return c.getOne(ctx, `WHERE id = ?`, id)
}

func (c *Catalog) GetByTable(ctx context.Context, tableName string) (*models.CSVTable, error) {
	return c.getOne(ctx, `WHERE table_name = ?`, tableName)
}

func (c *Catalog) getOne(ctx context.Context, where string, arg string) (*models.CSVTable, error) {
	var csvTable models.CSVTable
	err := c.conn.QueryRowContext(ctx, `
		SELECT id, filename, table_name, created_at, row_count
		FROM csv_table
	`+where, arg).Scan(&csvTable.ID, &csvTable.Filename, &csvTable.TableName, &csvTable.CreatedAt, &csvTable.RowCount)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, arg)
		}
		return nil, fmt.Errorf("failed to get CSV table: %w", err)
	}
	return &csvTable, nil
}

func (c *Catalog) List(ctx context.Context) ([]models.CSVTable, error) {
	rows, err := c.conn.QueryContext(ctx, `
		SELECT id, filename, table_name, created_at, row_count
		FROM csv_table
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list CSV tables: %w", err)
	}
	defer rows.Close()

	tables := make([]models.CSVTable, 0)
	for rows.Next() {
		var t models.CSVTable
		if err := rows.Scan(&t.ID, &t.Filename, &t.TableName, &t.CreatedAt, &t.RowCount); err != nil {
			return nil, fmt.Errorf("failed to scan CSV table: %w", err)
		}
		tables = append(tables, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating CSV tables: %w", err)
	}

	return tables, nil
}

// Remove forgets the entry for tableName. Missing entries are not an error.
func (c *Catalog) Remove(ctx context.Context, tableName string) error {
	if _, err := c.conn.ExecContext(ctx, `DELETE FROM csv_table WHERE table_name = ?`, tableName); err != nil {
		return fmt.Errorf("failed to remove CSV reference: %w", err)
	}
	return nil
}

// Prune drops entries whose table is not in existing and reports how many went.
func (c *Catalog) Prune(ctx context.Context, existing []string) (int, error) {
	tables, err := c.List(ctx)
	if err != nil {
		return 0, err
	}

	keep := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		keep[name] = struct{}{}
	}

	pruned := 0
	for _, t := range tables {
		if _, ok := keep[t.TableName]; ok {
			continue
		}
		if err := c.Remove(ctx, t.TableName); err != nil {
			return pruned, err
		}
		pruned++
	}

	return pruned, nil
}
