// Package tagsync is the reconciliation engine. One run scans every record of
// the inventory store, cross-references its inventory number against the AR01
// finance report and the locations classifier, writes the resolved
// "{building}-{description}" tag back, and classifies every record into
// exactly one outcome category for exception reporting.
package tagsync

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"assetsync/config"
	"assetsync/models"
	"assetsync/sources"
	"assetsync/store"
)

// VMSentinel marks an asset as a virtual machine, excluded from physical
// reconciliation. The comparison is exact, without trimming: " MV " is not a
// virtual machine and follows the general resolution path. Preserved behavior,
// pending clarification with the inventory owners.
const VMSentinel = "MV"

const hardwareIDColumn = "HARDWARE_ID"

type Syncer struct {
	sources *sources.Workbooks
	store   store.Store
	cfg     config.Sync
	log     *logrus.Logger
}

func New(src *sources.Workbooks, st store.Store, cfg config.Sync, log *logrus.Logger) *Syncer {
	if log == nil {
		log = config.GetLogger()
	}
	return &Syncer{sources: src, store: st, cfg: cfg, log: log}
}

type seenEntry struct {
	row        models.Row
	hardwareID string
	// tag resolved during the main pass, empty when the record's key did not
	// resolve. Duplicate reporting recomputes it independently and the two
	// must agree.
	tag string
}

// Run executes one full reconciliation pass and returns the categorized
// result. Store read failures abort the run with no partial result; individual
// tag-write failures are logged and the pass continues.
func (s *Syncer) Run(ctx context.Context) (*models.SyncResult, error) {
	s.log.Info("starting tag synchronization run")

	snapshot, err := s.store.ScanAll(ctx)
	if err != nil {
		return nil, err
	}

	result := models.NewSyncResult(snapshot.Columns)

	colIdx, ok := snapshot.ColumnIndex(s.cfg.InventoryColumn)
	if !ok {
		return nil, fmt.Errorf("inventory column %q not found in table %q", s.cfg.InventoryColumn, s.cfg.TableName)
	}
	hwIdx, ok := snapshot.ColumnIndexFold(hardwareIDColumn)
	if !ok {
		s.log.Warnf("column %s not found, using column %q as fallback", hardwareIDColumn, snapshot.Columns[0])
		hwIdx = 0
	}

	seen := make(map[string][]seenEntry)
	var seenOrder []string
	dbKeys := make(map[string]struct{})

	s.log.Infof("processing %d records", len(snapshot.Rows))

	for i, row := range snapshot.Rows {
		result.TotalProcessed++
		raw := row[colIdx]
		s.log.Infof("%d. %v", i+1, raw)

		if raw == nil {
			result.EmptyInventories = append(result.EmptyInventories, row)
			continue
		}
		value := row.CellString(colIdx)
		if value == VMSentinel {
			result.VMInventories = append(result.VMInventories, row)
			continue
		}

		key := strings.TrimSpace(value)
		dbKeys[key] = struct{}{}
		if _, dup := seen[key]; !dup {
			seenOrder = append(seenOrder, key)
		}
		entry := seenEntry{row: row, hardwareID: row.CellString(hwIdx)}

		if !s.sources.HasFinanceKey(key) {
			result.DBNotInAR01 = append(result.DBNotInAR01, row)
		}

		location, found := s.sources.FindInventoryLocation(key)
		if found {
			description, building, classified := s.sources.FindClassifierValues(location)
			if classified {
				tag := building + "-" + description
				entry.tag = tag
				if _, err := s.store.UpdateTagByTrimmedKey(ctx, key, tag); err != nil {
					mutErr := &models.MutationError{Key: key, Tag: tag, Err: err}
					config.LogError(s.log, "tagsync", "Run", "update tag", key, mutErr)
					result.Issues = append(result.Issues, mutErr.Error())
				} else {
					result.TagsUpdated++
					s.log.Infof("TAG updated for inventory %s with value [ %s ]", key, tag)
				}
			} else {
				s.log.Warnf("location %s not found in classifier for inventory %s", location, key)
				result.LocationsNotInClassifier = append(result.LocationsNotInClassifier, models.LocationMiss{
					Inventory: key,
					Location:  location,
				})
			}
		} else {
			s.log.Warnf("inventory %s not found in AR01", key)
		}

		seen[key] = append(seen[key], entry)
	}

	s.collectDuplicates(result, seen, seenOrder, colIdx)
	s.collectMissingFromStore(result, dbKeys)

	result.CompletedAt = time.Now()
	s.log.Infof("sync completed: %d TAGs updated out of %d records processed (run %s)",
		result.TagsUpdated, result.TotalProcessed, result.RunID)
	return result, nil
}

// collectDuplicates reports every record whose resolution key appeared more
// than once, not just the extras. Each key's records are ordered by
// hardware_id descending (stable on the original pass order) for the report;
// the tag written during the main pass is unaffected.
func (s *Syncer) collectDuplicates(result *models.SyncResult, seen map[string][]seenEntry, order []string, colIdx int) {
	for _, key := range order {
		entries := seen[key]
		if len(entries) < 2 {
			continue
		}
		sorted := make([]seenEntry, len(entries))
		copy(sorted, entries)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].hardwareID > sorted[j].hardwareID
		})
		for _, entry := range sorted {
			tag, _ := s.resolveTag(strings.TrimSpace(entry.row.CellString(colIdx)))
			if entry.tag != "" && tag != entry.tag {
				// Same lookup over the same loaded tables should never
				// diverge. If it does, that is a logic defect to surface.
				issue := fmt.Sprintf("duplicate tag recomputation mismatch for inventory %q: pass resolved %q, recheck resolved %q",
					key, entry.tag, tag)
				s.log.Warn(issue)
				result.Issues = append(result.Issues, issue)
			}
			result.DuplicateInventories = append(result.DuplicateInventories, models.DuplicateRow{
				Row:        entry.row,
				HardwareID: entry.hardwareID,
				Tag:        tag,
			})
		}
	}
}

// collectMissingFromStore reports every distinct AR01 inventory number that
// never appeared as a resolution key, paired with its location code.
func (s *Syncer) collectMissingFromStore(result *models.SyncResult, dbKeys map[string]struct{}) {
	for _, key := range s.sources.FinanceKeys() {
		if _, inStore := dbKeys[key]; inStore {
			continue
		}
		location, _ := s.sources.FindInventoryLocation(key)
		result.AR01NotInDB = append(result.AR01NotInDB, models.FinanceMiss{
			Inventory: key,
			Location:  location,
		})
	}
}

func (s *Syncer) resolveTag(key string) (string, bool) {
	location, ok := s.sources.FindInventoryLocation(key)
	if !ok {
		return "", false
	}
	description, building, ok := s.sources.FindClassifierValues(location)
	if !ok {
		return "", false
	}
	return building + "-" + description, true
}
