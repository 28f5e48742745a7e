package models

import (
	"time"

	"github.com/google/uuid"
)

// DuplicateRow is a store record whose resolution key collides with at least
// one other record. Tag carries the independently recomputed resolved tag, or
// the empty string when the key does not resolve.
type DuplicateRow struct {
	Row        Row
	HardwareID string
	Tag        string
}

// LocationMiss pairs an inventory number with a finance location code that is
// absent from the classifier.
type LocationMiss struct {
	Inventory string
	Location  string
}

// FinanceMiss pairs a finance inventory number absent from the store with its
// resolved location code (empty when the finance lookup yields nothing).
type FinanceMiss struct {
	Inventory string
	Location  string
}

// SyncResult is the aggregate output of one reconciliation run. It is built by
// the engine during the pass and immutable once returned.
type SyncResult struct {
	RunID       uuid.UUID
	StartedAt   time.Time
	CompletedAt time.Time

	TotalProcessed int
	TagsUpdated    int

	ColumnNames []string

	EmptyInventories         []Row
	VMInventories            []Row
	DuplicateInventories     []DuplicateRow
	DBNotInAR01              []Row
	LocationsNotInClassifier []LocationMiss
	AR01NotInDB              []FinanceMiss

	// Issues holds human-readable non-fatal problems observed during the run:
	// failed mutations and duplicate tag recomputation mismatches.
	Issues []string
}

func NewSyncResult(columns []string) *SyncResult {
	return &SyncResult{
		RunID:       uuid.New(),
		StartedAt:   time.Now(),
		ColumnNames: columns,
	}
}

// Summary returns the count map consumed by dashboards and the run log.
func (r *SyncResult) Summary() map[string]int {
	return map[string]int{
		"total_processed":   r.TotalProcessed,
		"tags_updated":      r.TagsUpdated,
		"empty_inventory":   len(r.EmptyInventories),
		"virtual_machines":  len(r.VMInventories),
		"duplicates":        len(r.DuplicateInventories),
		"not_in_ar01":       len(r.DBNotInAR01),
		"not_in_classifier": len(r.LocationsNotInClassifier),
		"ar01_not_in_db":    len(r.AR01NotInDB),
	}
}
