// Package reports turns a SyncResult into the six-sheet exception workbook.
// Every sheet is present even when its collection is empty; downstream sheet
// selectors depend on a stable sheet list.
package reports

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"assetsync/config"
	"assetsync/models"
)

const (
	SheetEmptyInventories     = "Empty_Inventories"
	SheetVirtualMachines      = "Virtual_Machines"
	SheetLocationsNotInClass  = "Locations_not_in_Classifier"
	SheetDuplicateInventories = "Duplicate_Inventories"
	SheetDBNotInAR01          = "DB_not_in_AR01"
	SheetAR01NotInDB          = "AR01_not_in_DB"
)

// Generate writes the report workbook for result at path and returns the
// absolute path of the written file.
func Generate(result *models.SyncResult, path string, log *logrus.Logger) (string, error) {
	if log == nil {
		log = config.GetLogger()
	}

	f := excelize.NewFile()
	defer f.Close()

	type table struct {
		name    string
		headers []string
		rows    [][]string
	}

	tables := []table{
		{SheetEmptyInventories, result.ColumnNames, rowCells(result.EmptyInventories, len(result.ColumnNames))},
		{SheetVirtualMachines, result.ColumnNames, rowCells(result.VMInventories, len(result.ColumnNames))},
		{SheetLocationsNotInClass, []string{"Inventory", "Location"}, locationCells(result.LocationsNotInClassifier)},
		{SheetDuplicateInventories, append(append([]string{}, result.ColumnNames...), "TAG"), duplicateCells(result.DuplicateInventories, len(result.ColumnNames))},
		{SheetDBNotInAR01, result.ColumnNames, rowCells(result.DBNotInAR01, len(result.ColumnNames))},
		{SheetAR01NotInDB, []string{"AR01 Inventory not in DB", "Corresponding Location"}, financeCells(result.AR01NotInDB)},
	}

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), t.name); err != nil {
				return "", fmt.Errorf("failed to name sheet %s: %w", t.name, err)
			}
		} else {
			if _, err := f.NewSheet(t.name); err != nil {
				return "", fmt.Errorf("failed to create sheet %s: %w", t.name, err)
			}
		}
		if err := writeTable(f, t.name, t.headers, t.rows); err != nil {
			return "", err
		}
		log.Infof("sheet %q: %d records", t.name, len(t.rows))
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save report %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	log.Infof("report generated: %s", abs)
	return abs, nil
}

func writeTable(f *excelize.File, sheet string, headers []string, rows [][]string) error {
	widths := make([]int, len(headers))

	set := func(col, row int, value string) error {
		ref, err := excelize.CoordinatesToCellName(col+1, row+1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, ref, value); err != nil {
			return err
		}
		if value != "" && len(value) > widths[col] {
			widths[col] = len(value)
		}
		return nil
	}

	for c, h := range headers {
		if err := set(c, 0, h); err != nil {
			return err
		}
	}
	for r, row := range rows {
		for c := range headers {
			value := ""
			if c < len(row) {
				value = row[c]
			}
			if err := set(c, r+1, value); err != nil {
				return err
			}
		}
	}

	// Column widths auto-fit to the longest non-empty cell, padded.
	for c, w := range widths {
		name, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, float64(w+2)*1.2); err != nil {
			return err
		}
	}
	return nil
}

func rowCells(rows []models.Row, width int) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, width)
		for i := range cells {
			cells[i] = row.CellString(i)
		}
		out = append(out, cells)
	}
	return out
}

func duplicateCells(dups []models.DuplicateRow, width int) [][]string {
	out := make([][]string, 0, len(dups))
	for _, d := range dups {
		cells := make([]string, width+1)
		for i := 0; i < width; i++ {
			cells[i] = d.Row.CellString(i)
		}
		cells[width] = d.Tag
		out = append(out, cells)
	}
	return out
}

func locationCells(misses []models.LocationMiss) [][]string {
	out := make([][]string, 0, len(misses))
	for _, m := range misses {
		out = append(out, []string{m.Inventory, m.Location})
	}
	return out
}

func financeCells(misses []models.FinanceMiss) [][]string {
	out := make([][]string, 0, len(misses))
	for _, m := range misses {
		out = append(out, []string{m.Inventory, m.Location})
	}
	return out
}
