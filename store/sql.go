package store

import (
	"context"
	"database/sql"
	"fmt"

	"assetsync/models"
)

// SQL adapts a plain database/sql handle to the Store contract. This is the
// standalone access style: point it at the production MySQL server or at a
// file-based SQLite copy of the accountinfo table. Both engines accept the
// backtick-quoted identifiers and TRIM() used here.
type SQL struct {
	db     *sql.DB
	table  string
	column string
}

// OpenSQL opens and pings a database/sql connection. The driver must already
// be registered by the caller (blank import).
func OpenSQL(driver, dsn, table, column string) (*SQL, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, &models.StoreUnavailableError{Op: "open", Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &models.StoreUnavailableError{Op: "ping", Err: err}
	}
	return &SQL{db: db, table: table, column: column}, nil
}

// NewSQL wraps an existing handle, mostly for tests.
func NewSQL(db *sql.DB, table, column string) *SQL {
	return &SQL{db: db, table: table, column: column}
}

func (s *SQL) ScanAll(ctx context.Context) (*models.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM `%s`", s.table))
	if err != nil {
		return nil, &models.StoreUnavailableError{Op: "scan", Err: err}
	}
	defer rows.Close()

	snapshot, err := snapshotFromRows(rows)
	if err != nil {
		return nil, &models.StoreUnavailableError{Op: "scan", Err: err}
	}
	return snapshot, nil
}

func (s *SQL) UpdateTagByTrimmedKey(ctx context.Context, key, tag string) (int64, error) {
	query := fmt.Sprintf("UPDATE `%s` SET `TAG` = ? WHERE TRIM(`%s`) = ?", s.table, s.column)
	result, err := s.db.ExecContext(ctx, query, tag, key)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *SQL) Close() error {
	return s.db.Close()
}
