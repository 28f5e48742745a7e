// sync-tags runs one full TAG reconciliation pass: load the AR01 and the
// locations classifier, scan the inventory store, write resolved tags back and
// generate the six-sheet exception report.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	AR01_FILE=AR01.xlsx CLASSIFIER_FILE=CLASIFICADOR_LOCALES.xlsx \
//	go run ./cmd/sync-tags
//
// Set DB_DRIVER=sqlite with DB_DSN=<path> to run against a file-based copy of
// the accountinfo table instead of the MySQL server.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"assetsync/config"
	"assetsync/reports"
	"assetsync/sources"
	"assetsync/store"
	"assetsync/tagsync"
)

func main() {
	logger := config.GetLogger()

	cfg, err := config.LoadSync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	if cfg.RunLogFile != "" {
		file, err := config.ConfigureRunLog(cfg.RunLogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		defer file.Close()
	}

	st, err := openStore(cfg)
	if err != nil {
		config.LogError(logger, "sync-tags", "main", "open store", nil, err)
		os.Exit(1)
	}
	defer st.Close()

	src, err := sources.Load(cfg)
	if err != nil {
		config.LogError(logger, "sync-tags", "main", "load spreadsheets", nil, err)
		os.Exit(1)
	}
	logger.Infof("loaded %d AR01 rows and %d classifier rows", src.FinanceCount(), src.ClassifierCount())

	result, err := tagsync.New(src, st, cfg, logger).Run(context.Background())
	if err != nil {
		config.LogError(logger, "sync-tags", "main", "reconciliation run", nil, err)
		os.Exit(1)
	}

	path, err := reports.Generate(result, cfg.ReportFile, logger)
	if err != nil {
		config.LogError(logger, "sync-tags", "main", "generate report", nil, err)
		os.Exit(1)
	}

	for key, count := range result.Summary() {
		logger.Infof("  %s: %d", key, count)
	}
	logger.Infof("report written to %s", path)
}

func openStore(cfg config.Sync) (store.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(os.Getenv("DB_DRIVER")))
	switch driver {
	case "", "gorm", "mysql":
		db, err := config.ConnectDatabase()
		if err != nil {
			return nil, err
		}
		return store.NewGorm(db, cfg.TableName, cfg.InventoryColumn), nil
	case "sqlite":
		dsn := os.Getenv("DB_DSN")
		if dsn == "" {
			return nil, fmt.Errorf("DB_DSN is required when DB_DRIVER=sqlite")
		}
		return store.OpenSQL("sqlite", dsn, cfg.TableName, cfg.InventoryColumn)
	case "mysql-sql":
		dsn := os.Getenv("DB_DSN")
		if dsn == "" {
			return nil, fmt.Errorf("DB_DSN is required when DB_DRIVER=mysql-sql")
		}
		return store.OpenSQL("mysql", dsn, cfg.TableName, cfg.InventoryColumn)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", driver)
	}
}
