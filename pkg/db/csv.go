package db

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/JayJamieson/duckcsv/pkg/models"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

type transformFunc func(columns []string, values []any) any

var transformFuncs = map[string]transformFunc{
	"array":   transformArray,
	"objects": transformObject,
}

// ReadCSVOptions mirrors the read_csv named parameters. Zero values leave
// the decision to DuckDB's sniffer.
type ReadCSVOptions struct {
	Header    *bool
	SkipRows  int
	Filename  bool
	Delimiter string
}

func transformArray(columns []string, values []any) any {
	arrRow := make([]any, len(columns))

	for i := range columns {
		val := values[i]
		if b, ok := val.([]byte); ok {
			val = string(b)
		}
		arrRow[i] = val
	}
	return arrRow
}

func transformObject(columns []string, values []any) any {
	objRow := make(map[string]any)

	for i, col := range columns {
		val := values[i]
		if b, ok := val.([]byte); ok {
			val = string(b)
		}
		objRow[col] = val
	}
	return objRow
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteIdent(s string) string {
	return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
}

func (o ReadCSVOptions) args() []string {
	var args []string
	if o.Header != nil {
		args = append(args, "header="+strconv.FormatBool(*o.Header))
	}
	if o.SkipRows > 0 {
		args = append(args, "skip="+strconv.Itoa(o.SkipRows))
	}
	if o.Filename {
		args = append(args, "filename=true")
	}
	if o.Delimiter != "" {
		args = append(args, "delim="+quoteLiteral(o.Delimiter))
	}
	return args
}

// FromFile is the bare replacement-scan form: SELECT * FROM 'path'.
func (db *DB) FromFile(path string) *Relation {
	return db.Sql("SELECT * FROM " + quoteLiteral(path))
}

func (db *DB) ReadCSV(path string, opts ReadCSVOptions) *Relation {
	args := opts.args()
	if len(args) == 0 {
		return db.Sql(fmt.Sprintf("SELECT * FROM read_csv_auto(%s)", quoteLiteral(path)))
	}
	return db.Sql(fmt.Sprintf("SELECT * FROM read_csv(%s, %s)", quoteLiteral(path), strings.Join(args, ", ")))
}

// TableNameFor derives a SQL-friendly table name from an uploaded filename.
func TableNameFor(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "csv_data"
	}
	if unicode.IsDigit(rune(name[0])) {
		name = "t_" + name
	}
	return name
}

// ImportCSV loads reader into a table named after filename and records it in
// the catalog. The DuckDB side runs in a transaction that only commits once
// the catalog entry is stored, so a failed import leaves any earlier table of
// the same name untouched.
func (db *DB) ImportCSV(ctx context.Context, filename string, reader io.Reader, opts ReadCSVOptions) (_ *models.CSVTable, err error) {
	if db.catalog == nil {
		return nil, ErrNoCatalog
	}

	id := uuid.New().String()
	tableName := TableNameFor(filename)

	tempDir, err := os.MkdirTemp("", "csv-import")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	tempFile := filepath.Join(tempDir, "data.csv")
	f, err := os.Create(tempFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write CSV data: %w", err)
	}
	f.Close()

	tx, err := db.duckConn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Warnf("Error rolling back import of %s: %v", tableName, rbErr)
			}
		}
	}()

	createQuery := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS (%s)", quoteIdent(tableName), db.ReadCSV(tempFile, opts).Query())
	if _, err = tx.ExecContext(ctx, createQuery); err != nil {
		return nil, fmt.Errorf("failed to import CSV into DuckDB: %w", err)
	}

	var rowCount int64
	countQuery := "SELECT COUNT(*) FROM " + quoteIdent(tableName)
	if err = tx.QueryRowContext(ctx, countQuery).Scan(&rowCount); err != nil {
		return nil, fmt.Errorf("failed to count imported rows: %w", err)
	}

	csvTable := &models.CSVTable{
		ID:        id,
		Filename:  filename,
		TableName: tableName,
		CreatedAt: time.Now().UTC(),
		RowCount:  rowCount,
	}

	if err = db.catalog.Register(ctx, csvTable); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		log.Errorf("Catalog entry %s stored but table %s was not committed: %v", id, tableName, err)
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	return csvTable, nil
}
