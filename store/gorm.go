package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"assetsync/models"
)

// Gorm adapts a GORM connection to the Store contract. This is the integrated
// access style used when the module runs inside the backend that owns the
// inventory database.
type Gorm struct {
	db     *gorm.DB
	table  string
	column string
}

func NewGorm(db *gorm.DB, table, column string) *Gorm {
	return &Gorm{db: db, table: table, column: column}
}

func (g *Gorm) ScanAll(ctx context.Context) (*models.Snapshot, error) {
	rows, err := g.db.WithContext(ctx).Raw(fmt.Sprintf("SELECT * FROM `%s`", g.table)).Rows()
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

func (g *Gorm) UpdateTagByTrimmedKey(ctx context.Context, key, tag string) (int64, error) {
	query := fmt.Sprintf("UPDATE `%s` SET `TAG` = ? WHERE TRIM(`%s`) = ?", g.table, g.column)
	result := g.db.WithContext(ctx).Exec(query, tag, key)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
