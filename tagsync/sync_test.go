package tagsync_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"assetsync/config"
	"assetsync/models"
	"assetsync/sources"
	"assetsync/tagsync"
)

type tagUpdate struct {
	key string
	tag string
}

type fakeStore struct {
	snapshot *models.Snapshot
	scanErr  error
	failKeys map[string]bool
	updates  []tagUpdate
}

func (f *fakeStore) ScanAll(ctx context.Context) (*models.Snapshot, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return f.snapshot, nil
}

func (f *fakeStore) UpdateTagByTrimmedKey(ctx context.Context, key, tag string) (int64, error) {
	if f.failKeys[key] {
		return 0, errors.New("lock wait timeout exceeded")
	}
	f.updates = append(f.updates, tagUpdate{key: key, tag: tag})
	return 1, nil
}

func (f *fakeStore) Close() error { return nil }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// testWorkbooks: inventories 100 and 200 resolve, 999 has a location missing
// from the classifier. The 100 entry is padded to exercise trimmed matching.
func testWorkbooks() *sources.Workbooks {
	return sources.NewWorkbooks(
		[]sources.FinanceRow{
			{Inventory: " 100 ", Location: "L1"},
			{Inventory: "200", Location: " L2 "},
			{Inventory: "999", Location: "LX"},
		},
		[]sources.ClassifierRow{
			{Location: " L1 ", Description: "Piso 4", Building: "FOCSA"},
			{Location: "L2", Description: "Office 2", Building: "MAIN"},
		},
	)
}

func newSyncer(st *fakeStore) *tagsync.Syncer {
	return tagsync.New(testWorkbooks(), st, config.DefaultSync(), quietLogger())
}

func snapshotOf(rows ...models.Row) *models.Snapshot {
	return models.NewSnapshot([]string{"HARDWARE_ID", "fields_3", "TAG"}, rows)
}

func TestRunCategorizesRecords(t *testing.T) {
	st := &fakeStore{snapshot: snapshotOf(
		models.Row{"hw1", nil, nil},
		models.Row{"hw2", "MV", nil},
		models.Row{"hw3", " MV ", nil},
		models.Row{"hw4", " 100 ", nil},
		models.Row{"hw5", "300", nil},
	)}

	result, err := newSyncer(st).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.TotalProcessed != 5 {
		t.Errorf("TotalProcessed = %d, want 5", result.TotalProcessed)
	}
	if len(result.EmptyInventories) != 1 {
		t.Errorf("EmptyInventories = %d rows, want 1", len(result.EmptyInventories))
	}
	// Only the exact value marks a virtual machine; " MV " follows the
	// general path, trims to "MV" and is not in the AR01.
	if len(result.VMInventories) != 1 {
		t.Errorf("VMInventories = %d rows, want 1", len(result.VMInventories))
	}
	if len(result.DBNotInAR01) != 2 {
		t.Fatalf("DBNotInAR01 = %d rows, want 2", len(result.DBNotInAR01))
	}
	if got := result.DBNotInAR01[0].CellString(0); got != "hw3" {
		t.Errorf("first DBNotInAR01 record = %s, want hw3", got)
	}

	if result.TagsUpdated != 1 {
		t.Errorf("TagsUpdated = %d, want 1", result.TagsUpdated)
	}
	if len(st.updates) != 1 || st.updates[0] != (tagUpdate{key: "100", tag: "FOCSA-Piso_4"}) {
		t.Errorf("updates = %v, want [{100 FOCSA-Piso_4}]", st.updates)
	}

	// AR01 keys never seen in the store, in sheet order, with locations.
	want := []models.FinanceMiss{
		{Inventory: "200", Location: "L2"},
		{Inventory: "999", Location: "LX"},
	}
	if len(result.AR01NotInDB) != len(want) {
		t.Fatalf("AR01NotInDB = %v, want %v", result.AR01NotInDB, want)
	}
	for i, miss := range want {
		if result.AR01NotInDB[i] != miss {
			t.Errorf("AR01NotInDB[%d] = %v, want %v", i, result.AR01NotInDB[i], miss)
		}
	}

	if len(result.LocationsNotInClassifier) != 0 {
		t.Errorf("LocationsNotInClassifier = %v, want none", result.LocationsNotInClassifier)
	}
	if len(result.Issues) != 0 {
		t.Errorf("Issues = %v, want none", result.Issues)
	}
	if result.CompletedAt.Before(result.StartedAt) {
		t.Error("CompletedAt before StartedAt")
	}
}

func TestRunDuplicatesReportEveryRecord(t *testing.T) {
	st := &fakeStore{snapshot: snapshotOf(
		models.Row{"1", "100", nil},
		models.Row{"3", " 100 ", nil},
		models.Row{"2", "100", nil},
		models.Row{"9", "200", nil},
	)}

	result, err := newSyncer(st).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(result.DuplicateInventories) != 3 {
		t.Fatalf("DuplicateInventories = %d records, want 3", len(result.DuplicateInventories))
	}
	// All three colliding records appear, ordered by hardware id descending.
	for i, wantHW := range []string{"3", "2", "1"} {
		d := result.DuplicateInventories[i]
		if d.HardwareID != wantHW {
			t.Errorf("duplicate[%d].HardwareID = %s, want %s", i, d.HardwareID, wantHW)
		}
		if d.Tag != "FOCSA-Piso_4" {
			t.Errorf("duplicate[%d].Tag = %s, want FOCSA-Piso_4", i, d.Tag)
		}
	}

	// Every occurrence still writes its tag during the main pass.
	if result.TagsUpdated != 4 {
		t.Errorf("TagsUpdated = %d, want 4", result.TagsUpdated)
	}
	if len(result.Issues) != 0 {
		t.Errorf("Issues = %v, want none", result.Issues)
	}
}

func TestRunLocationMissingFromClassifier(t *testing.T) {
	st := &fakeStore{snapshot: snapshotOf(
		models.Row{"hw1", "999", nil},
	)}

	result, err := newSyncer(st).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := models.LocationMiss{Inventory: "999", Location: "LX"}
	if len(result.LocationsNotInClassifier) != 1 || result.LocationsNotInClassifier[0] != want {
		t.Fatalf("LocationsNotInClassifier = %v, want [%v]", result.LocationsNotInClassifier, want)
	}
	if result.TagsUpdated != 0 {
		t.Errorf("TagsUpdated = %d, want 0", result.TagsUpdated)
	}
	if len(st.updates) != 0 {
		t.Errorf("updates = %v, want none", st.updates)
	}
}

func TestRunMutationFailureContinues(t *testing.T) {
	st := &fakeStore{
		snapshot: snapshotOf(
			models.Row{"hw1", "100", nil},
			models.Row{"hw2", "200", nil},
		),
		failKeys: map[string]bool{"100": true},
	}

	result, err := newSyncer(st).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.TagsUpdated != 1 {
		t.Errorf("TagsUpdated = %d, want 1", result.TagsUpdated)
	}
	if len(st.updates) != 1 || st.updates[0].key != "200" {
		t.Errorf("updates = %v, want only key 200", st.updates)
	}
	if len(result.Issues) != 1 || !strings.Contains(result.Issues[0], `"100"`) {
		t.Errorf("Issues = %v, want one entry naming inventory 100", result.Issues)
	}
	if result.TotalProcessed != 2 {
		t.Errorf("TotalProcessed = %d, want 2", result.TotalProcessed)
	}
}

func TestRunScanFailureAborts(t *testing.T) {
	scanErr := &models.StoreUnavailableError{Op: "scan", Err: errors.New("connection refused")}
	st := &fakeStore{scanErr: scanErr}

	result, err := newSyncer(st).Run(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if result != nil {
		t.Errorf("result = %v, want nil on scan failure", result)
	}
	var unavailable *models.StoreUnavailableError
	if !errors.As(err, &unavailable) {
		t.Errorf("error = %v, want StoreUnavailableError", err)
	}
}

func TestRunMissingInventoryColumn(t *testing.T) {
	st := &fakeStore{snapshot: models.NewSnapshot(
		[]string{"HARDWARE_ID", "TAG"},
		[]models.Row{{"hw1", nil}},
	)}

	if _, err := newSyncer(st).Run(context.Background()); err == nil {
		t.Fatal("expected error for missing inventory column")
	}
}

func TestRunIdempotent(t *testing.T) {
	rows := []models.Row{
		models.Row{"hw1", " 100 ", nil},
		models.Row{"hw2", "MV", nil},
		models.Row{"hw3", nil, nil},
		models.Row{"hw4", "999", nil},
	}

	first := &fakeStore{snapshot: snapshotOf(rows...)}
	resultA, err := newSyncer(first).Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	// A second pass over an unchanged store and spreadsheet pair repeats the
	// same classification and writes the same values again.
	second := &fakeStore{snapshot: snapshotOf(rows...)}
	resultB, err := newSyncer(second).Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	a, b := resultA.Summary(), resultB.Summary()
	for key, want := range a {
		if b[key] != want {
			t.Errorf("summary[%s] = %d on second run, want %d", key, b[key], want)
		}
	}
	if len(first.updates) != len(second.updates) {
		t.Fatalf("updates differ: %v vs %v", first.updates, second.updates)
	}
	for i := range first.updates {
		if first.updates[i] != second.updates[i] {
			t.Errorf("update[%d] = %v on second run, want %v", i, second.updates[i], first.updates[i])
		}
	}
}

func TestRunHardwareColumnFallback(t *testing.T) {
	st := &fakeStore{snapshot: models.NewSnapshot(
		[]string{"ID", "fields_3"},
		[]models.Row{
			{"b", "100"},
			{"a", "100"},
		},
	)}

	result, err := newSyncer(st).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.DuplicateInventories) != 2 {
		t.Fatalf("DuplicateInventories = %d records, want 2", len(result.DuplicateInventories))
	}
	// With no HARDWARE_ID column the first column orders the duplicates.
	if result.DuplicateInventories[0].HardwareID != "b" {
		t.Errorf("first duplicate id = %s, want b", result.DuplicateInventories[0].HardwareID)
	}
}
