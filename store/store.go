// Package store gives the reconciliation and analytics engines a uniform view
// of the inventory store. Two access styles satisfy the same two-operation
// contract: a GORM-managed MySQL connection and a direct database/sql handle
// (MySQL or a file-based SQLite copy).
package store

import (
	"context"
	"database/sql"

	"assetsync/models"
)

// Store is the read/write contract the engines depend on. ScanAll takes the
// one up-front snapshot for a run; UpdateTagByTrimmedKey issues a single
// immediately-committed write matching rows on TRIM(inventory column).
type Store interface {
	ScanAll(ctx context.Context) (*models.Snapshot, error)
	UpdateTagByTrimmedKey(ctx context.Context, key, tag string) (int64, error)
	Close() error
}

// snapshotFromRows drains a full-table scan into a Snapshot, normalizing
// driver []byte values to string and keeping NULL as nil.
func snapshotFromRows(rows *sql.Rows) (*models.Snapshot, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []models.Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		record := make(models.Row, len(columns))
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				record[i] = string(b)
			} else {
				record[i] = v
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return models.NewSnapshot(columns, records), nil
}
