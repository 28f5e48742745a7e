// analyze-assets scans the inventory store and prints an asset health report
// as JSON: anomalies, data quality scores, distributions and maintenance
// predictions.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	go run ./cmd/analyze-assets > report.json
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"assetsync/analytics"
	"assetsync/config"
	"assetsync/store"
)

func main() {
	logger := config.GetLogger()

	cfg, err := config.LoadSync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	st, err := openStore(cfg)
	if err != nil {
		config.LogError(logger, "analyze-assets", "main", "open store", nil, err)
		os.Exit(1)
	}
	defer st.Close()

	result, err := analytics.New(st, cfg, logger).Run(context.Background())
	if err != nil {
		config.LogError(logger, "analyze-assets", "main", "analytics run", nil, err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		config.LogError(logger, "analyze-assets", "main", "encode result", nil, err)
		os.Exit(1)
	}
	fmt.Println(string(out))
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
