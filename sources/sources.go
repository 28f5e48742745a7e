// Package sources loads the two spreadsheet inputs of a reconciliation run:
// the AR01 finance fixed-asset report and the locations classifier. Both are
// read by fixed column position and held read-only in memory for the run.
package sources

import (
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"assetsync/config"
	"assetsync/models"
	"assetsync/utils"
)

// FinanceRow is one AR01 row, untrimmed as read from the sheet.
type FinanceRow struct {
	Inventory string
	Location  string
}

// ClassifierRow is one locations-classifier row, untrimmed as read.
type ClassifierRow struct {
	Location    string
	Description string
	Building    string
}

// Workbooks holds both loaded tables plus trimmed-key indexes. The engine
// calls the lookups once per store record, so they are O(1); first match wins,
// same as a linear scan over the sheet.
type Workbooks struct {
	finance    []FinanceRow
	classifier []ClassifierRow

	financeIndex    map[string]int
	classifierIndex map[string]int
	financeKeys     []string
}

// Load reads both spreadsheets from the configured paths.
func Load(cfg config.Sync) (*Workbooks, error) {
	financeRows, err := readSheet(cfg.FinanceFile, cfg.SkipFinanceRows, maxColumn(cfg.FinanceColumns[:]))
	if err != nil {
		return nil, err
	}
	classifierRows, err := readSheet(cfg.ClassifierFile, 0, maxColumn(cfg.ClassifierColumns[:]))
	if err != nil {
		return nil, err
	}

	finance := make([]FinanceRow, 0, len(financeRows))
	for _, row := range financeRows {
		finance = append(finance, FinanceRow{
			Inventory: cell(row, cfg.FinanceColumns[0]),
			Location:  cell(row, cfg.FinanceColumns[1]),
		})
	}
	classifier := make([]ClassifierRow, 0, len(classifierRows))
	for _, row := range classifierRows {
		classifier = append(classifier, ClassifierRow{
			Location:    cell(row, cfg.ClassifierColumns[0]),
			Description: cell(row, cfg.ClassifierColumns[1]),
			Building:    cell(row, cfg.ClassifierColumns[2]),
		})
	}
	return NewWorkbooks(finance, classifier), nil
}

// NewWorkbooks indexes already-loaded tables. Rows come in sheet order; for
// colliding trimmed keys the first row wins.
func NewWorkbooks(finance []FinanceRow, classifier []ClassifierRow) *Workbooks {
	w := &Workbooks{
		finance:         finance,
		classifier:      classifier,
		financeIndex:    make(map[string]int),
		classifierIndex: make(map[string]int),
	}
	for i, entry := range finance {
		key := strings.TrimSpace(entry.Inventory)
		if _, seen := w.financeIndex[key]; !seen {
			w.financeIndex[key] = i
			w.financeKeys = append(w.financeKeys, key)
		}
	}
	for i, entry := range classifier {
		key := strings.TrimSpace(entry.Location)
		if _, seen := w.classifierIndex[key]; !seen {
			w.classifierIndex[key] = i
		}
	}
	return w
}

// FindInventoryLocation looks an inventory number up in the AR01 and returns
// its location code. Both sides are matched after trimming.
func (w *Workbooks) FindInventoryLocation(inventory string) (string, bool) {
	idx, ok := w.financeIndex[strings.TrimSpace(inventory)]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(w.finance[idx].Location), true
}

// FindClassifierValues looks a location code up in the classifier and returns
// its description and building with spaces replaced by underscores.
func (w *Workbooks) FindClassifierValues(location string) (description, building string, ok bool) {
	idx, found := w.classifierIndex[strings.TrimSpace(location)]
	if !found {
		return "", "", false
	}
	row := w.classifier[idx]
	return utils.Underscored(row.Description), utils.Underscored(row.Building), true
}

// HasFinanceKey reports whether the trimmed key appears in the AR01 inventory
// column.
func (w *Workbooks) HasFinanceKey(key string) bool {
	_, ok := w.financeIndex[strings.TrimSpace(key)]
	return ok
}

// FinanceKeys returns the distinct trimmed AR01 inventory numbers in
// first-appearance order.
func (w *Workbooks) FinanceKeys() []string {
	return w.financeKeys
}

// FinanceCount returns the number of AR01 data rows loaded.
func (w *Workbooks) FinanceCount() int { return len(w.finance) }

// ClassifierCount returns the number of classifier rows loaded.
func (w *Workbooks) ClassifierCount() int { return len(w.classifier) }

// readSheet returns the data rows of the first sheet, after skipping skip
// leading rows. Rows shorter than maxCol+1 are padded with empty cells;
// excelize drops trailing empty cells per row, so a short row is not by itself
// a shape error. A sheet that never reaches the required column is.
func readSheet(path string, skip int, maxCol int) ([][]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &models.SourceNotFoundError{Path: path, Err: err}
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &models.SourceParseError{Path: path, Reason: "cannot open workbook", Err: err}
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, &models.SourceParseError{Path: path, Reason: "workbook has no sheets"}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &models.SourceParseError{Path: path, Reason: "cannot read rows", Err: err}
	}
	if skip > len(rows) {
		skip = len(rows)
	}
	rows = rows[skip:]

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if len(rows) > 0 && width <= maxCol {
		return nil, &models.SourceParseError{
			Path:   path,
			Reason: fmt.Sprintf("sheet %q has %d columns, need at least %d", sheet, width, maxCol+1),
		}
	}
	return rows, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}

func maxColumn(cols []int) int {
	max := 0
	for _, c := range cols {
		if c > max {
			max = c
		}
	}
	return max
}
