package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyInto bulk-inserts rows into a table using the PostgreSQL COPY protocol.
// Table may be schema-qualified ("staging.stg_semillas"). This is the fastest
// path for loading staging extracts and fact batches.
func CopyInto(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	var ident pgx.Identifier
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		ident = pgx.Identifier{parts[0], parts[1]}
	} else {
		ident = pgx.Identifier{table}
	}

	n, err := pool.CopyFrom(ctx, ident, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}

	return n, nil
}
