package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

func init() {
	// Load env from .env
	godotenv.Load()
}

// Sync carries every knob of a reconciliation run. The defaults match the
// production AR01 report layout and the OCS accountinfo schema; all of them can
// be overridden through the environment (see LoadSync).
type Sync struct {
	// FinanceFile is the AR01 fixed-asset report (.xlsx).
	FinanceFile string `validate:"required"`
	// ClassifierFile is the locations classifier (.xlsx).
	ClassifierFile string `validate:"required"`

	// SkipFinanceRows is the number of leading non-data rows in the AR01.
	SkipFinanceRows int `validate:"min=0"`
	// FinanceColumns are the zero-based sheet positions of the inventory
	// number and location code. Positional on purpose: the AR01 header text is
	// unstable between revisions, the column order is not.
	FinanceColumns [2]int
	// ClassifierColumns are the zero-based positions of location code,
	// location description and building.
	ClassifierColumns [3]int

	// TableName is the inventory store table scanned and updated by the run.
	TableName string `validate:"required"`
	// InventoryColumn is the store column holding the business inventory
	// number used for cross-referencing.
	InventoryColumn string `validate:"required"`

	// ReportFile is where the six-sheet exception report is written.
	ReportFile string `validate:"required"`
	// RunLogFile receives the per-record run log; empty means stdout only.
	RunLogFile string
}

// DefaultSync returns the documented defaults.
func DefaultSync() Sync {
	return Sync{
		FinanceFile:       "AR01.xlsx",
		ClassifierFile:    "CLASIFICADOR_LOCALES.xlsx",
		SkipFinanceRows:   8,
		FinanceColumns:    [2]int{5, 8},
		ClassifierColumns: [3]int{4, 5, 6},
		TableName:         "accountinfo",
		InventoryColumn:   "fields_3",
		ReportFile:        "Reportes.xlsx",
		RunLogFile:        "Registros.txt",
	}
}

// LoadSync builds a Sync from the environment on top of the defaults.
//
// Recognized variables: AR01_FILE, CLASSIFIER_FILE, AR01_SKIP_ROWS,
// AR01_COLUMNS ("5,8"), CLASSIFIER_COLUMNS ("4,5,6"), ACCOUNTINFO_TABLE,
// INVENTORY_COLUMN, REPORT_FILE, RUN_LOG_FILE.
func LoadSync() (Sync, error) {
	cfg := DefaultSync()

	if v := strings.TrimSpace(os.Getenv("AR01_FILE")); v != "" {
		cfg.FinanceFile = v
	}
	if v := strings.TrimSpace(os.Getenv("CLASSIFIER_FILE")); v != "" {
		cfg.ClassifierFile = v
	}
	if v := strings.TrimSpace(os.Getenv("AR01_SKIP_ROWS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid AR01_SKIP_ROWS %q: %w", v, err)
		}
		cfg.SkipFinanceRows = n
	}
	if v := strings.TrimSpace(os.Getenv("AR01_COLUMNS")); v != "" {
		cols, err := parseColumns(v, 2)
		if err != nil {
			return cfg, fmt.Errorf("invalid AR01_COLUMNS %q: %w", v, err)
		}
		copy(cfg.FinanceColumns[:], cols)
	}
	if v := strings.TrimSpace(os.Getenv("CLASSIFIER_COLUMNS")); v != "" {
		cols, err := parseColumns(v, 3)
		if err != nil {
			return cfg, fmt.Errorf("invalid CLASSIFIER_COLUMNS %q: %w", v, err)
		}
		copy(cfg.ClassifierColumns[:], cols)
	}
	if v := strings.TrimSpace(os.Getenv("ACCOUNTINFO_TABLE")); v != "" {
		cfg.TableName = v
	}
	if v := strings.TrimSpace(os.Getenv("INVENTORY_COLUMN")); v != "" {
		cfg.InventoryColumn = v
	}
	if v := strings.TrimSpace(os.Getenv("REPORT_FILE")); v != "" {
		cfg.ReportFile = v
	}
	if v, ok := os.LookupEnv("RUN_LOG_FILE"); ok {
		cfg.RunLogFile = strings.TrimSpace(v)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid sync configuration: %w", err)
	}
	return cfg, nil
}

func parseColumns(raw string, want int) ([]int, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != want {
		return nil, fmt.Errorf("expected %d comma-separated indexes, got %d", want, len(parts))
	}
	cols := make([]int, 0, want)
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("column index must not be negative: %d", n)
		}
		cols = append(cols, n)
	}
	return cols, nil
}
