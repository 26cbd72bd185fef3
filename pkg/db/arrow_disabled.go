//go:build !duckdb_arrow

package db

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
)

// Arrow needs the driver's Arrow interface, which is only built with
// -tags=duckdb_arrow. Without it every call fails with ErrArrowUnavailable.
func (r *Relation) Arrow(ctx context.Context) (arrow.Table, error) {
	return nil, ErrArrowUnavailable
}
