//go:build duckdb_arrow

package db

import (
	"context"
	"database/sql/driver"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/marcboeker/go-duckdb/v2"
)

// Arrow materializes the relation as an Arrow table through the driver's
// Arrow interface. The caller must Release the table. The driver only
// compiles this interface with the duckdb_arrow build tag.
func (r *Relation) Arrow(ctx context.Context) (arrow.Table, error) {
	conn, err := r.db.duckConn.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	var table arrow.Table
	err = conn.Raw(func(driverConn any) error {
		ar, err := duckdb.NewArrowFromConn(driverConn.(driver.Conn))
		if err != nil {
			return fmt.Errorf("failed to open arrow interface: %w", err)
		}

		reader, err := ar.QueryContext(ctx, r.query)
		if err != nil {
			return fmt.Errorf("failed to query data: %w", err)
		}
		defer reader.Release()

		var records []arrow.Record
		defer func() {
			for _, rec := range records {
				rec.Release()
			}
		}()

		for reader.Next() {
			rec := reader.Record()
			rec.Retain()
			records = append(records, rec)
		}
		if err := reader.Err(); err != nil {
			return fmt.Errorf("error reading arrow records: %w", err)
		}

		table = array.NewTableFromRecords(reader.Schema(), records)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return table, nil
}
