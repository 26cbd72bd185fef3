package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/labstack/gommon/log"
	_ "github.com/marcboeker/go-duckdb/v2"
)

// Config selects where the engine and the import catalog live. An empty
// DatabasePath keeps DuckDB in memory. An empty CatalogURL runs without a
// catalog: nothing is written outside DuckDB and ImportCSV is unavailable.
type Config struct {
	DatabasePath string
	CatalogURL   string
}

type DB struct {
	duckConn *sql.DB
	catalog  *Catalog
}

func New(config Config) (*DB, error) {
	if config.DatabasePath != "" {
		if err := os.MkdirAll(filepath.Dir(config.DatabasePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	conn, err := sql.Open("duckdb", config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB connection: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to DuckDB: %w", err)
	}

	db := &DB{duckConn: conn}

	if config.CatalogURL == "" {
		return db, nil
	}

	catalog, err := OpenCatalog(config.CatalogURL)
	if err != nil {
		conn.Close()
		return nil, err
	}
	db.catalog = catalog

	pruned, err := db.SyncCatalog(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}
	if pruned > 0 {
		log.Infof("Pruned %d stale catalog entries", pruned)
	}

	return db, nil
}

func (db *DB) Close() error {
	if db.catalog != nil {
		if err := db.catalog.Close(); err != nil {
			log.Warnf("Error closing catalog connection: %v", err)
		}
	}

	return db.duckConn.Close()
}

// Catalog exposes the import registry backing ImportCSV. It is nil when the
// database was opened without a CatalogURL.
func (db *DB) Catalog() *Catalog {
	return db.catalog
}

// SyncCatalog drops catalog entries whose DuckDB table no longer exists,
// e.g. after a DROP TABLE issued as plain SQL.
func (db *DB) SyncCatalog(ctx context.Context) (int, error) {
	if db.catalog == nil {
		return 0, nil
	}

	tables, err := db.ShowTables(ctx)
	if err != nil {
		return 0, err
	}
	return db.catalog.Prune(ctx, tables)
}

// Sql returns a lazy relation for query. Nothing runs until the relation
// is fetched or converted.
func (db *DB) Sql(query string) *Relation {
	return &Relation{db: db, query: query}
}

func (db *DB) Exec(ctx context.Context, query string) error {
	if _, err := db.duckConn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}
