package seed

import (
	"testing"
	"time"

	"github.com/nainya/docsim/pkg/document"
)

func newTestStore() *document.RecordStore {
	return document.NewRecordStoreWithClock(func() time.Time {
		return time.UnixMilli(1700000000000)
	})
}

func TestPopulateFillsEmptyStore(t *testing.T) {
	store := newTestStore()

	added, err := Populate(store)
	if err != nil {
		t.Fatalf("Failed to populate: %v", err)
	}

	if added != Size() {
		t.Errorf("Expected %d records added, got %d", Size(), added)
	}
	if store.Len() != Size() {
		t.Errorf("Expected store length %d, got %d", Size(), store.Len())
	}
}

func TestCorpusCoversEveryStatus(t *testing.T) {
	store := newTestStore()
	if _, err := Populate(store); err != nil {
		t.Fatalf("Failed to populate: %v", err)
	}

	counts := store.CountByStatus()
	for _, s := range document.AllStatuses() {
		if counts[s] == 0 {
			t.Errorf("Expected at least one %v record in the corpus", s)
		}
	}
}

func TestRefreshAddsNothingWhenComplete(t *testing.T) {
	store := newTestStore()
	if _, err := Populate(store); err != nil {
		t.Fatalf("Failed to populate: %v", err)
	}

	added, err := Refresh(store)
	if err != nil {
		t.Fatalf("Failed to refresh: %v", err)
	}
	if len(added) != 0 {
		t.Errorf("Expected no records added on a full store, got %v", added)
	}
}

func TestRefreshLeavesDriftedRecordsAlone(t *testing.T) {
	store := newTestStore()
	if _, err := Populate(store); err != nil {
		t.Fatalf("Failed to populate: %v", err)
	}

	// Drift DOC003 away from its seeded state.
	_, err := store.Mutate("DOC003", func(rec *document.DocumentRecord) error {
		rec.Status = document.StatusProcessing
		rec.SliceCount = 7
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to mutate: %v", err)
	}

	if _, err := Refresh(store); err != nil {
		t.Fatalf("Failed to refresh: %v", err)
	}

	rec, _ := store.Get("DOC003")
	if rec.Status != document.StatusProcessing || rec.SliceCount != 7 {
		t.Errorf("Expected drifted record untouched, got %v/%d", rec.Status, rec.SliceCount)
	}
}

func TestRefreshTopsUpPartialStore(t *testing.T) {
	store := newTestStore()

	now := store.Now()
	err := store.Insert(&document.DocumentRecord{
		NID:             "DOC001",
		Name:            "Custom Name",
		FileTypes:       []string{"PDF"},
		Status:          document.StatusPending,
		UpdateTime:      now,
		LastUpdateTime:  now,
		StatusChangedAt: now,
	})
	if err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	added, err := Refresh(store)
	if err != nil {
		t.Fatalf("Failed to refresh: %v", err)
	}

	if len(added) != Size()-1 {
		t.Errorf("Expected %d records added, got %d", Size()-1, len(added))
	}
	for _, nid := range added {
		if nid == "DOC001" {
			t.Error("Expected DOC001 to be skipped, it was re-added")
		}
	}

	rec, _ := store.Get("DOC001")
	if rec.Name != "Custom Name" {
		t.Errorf("Expected pre-existing record untouched, got name %q", rec.Name)
	}
}

func TestSeededTimestampsTrailTheClock(t *testing.T) {
	store := newTestStore()
	if _, err := Populate(store); err != nil {
		t.Fatalf("Failed to populate: %v", err)
	}

	now := store.Now()
	for _, rec := range store.List() {
		if rec.LastUpdateTime.After(now) {
			t.Errorf("%s: lastUpdateTime %v is ahead of the store clock", rec.NID, rec.LastUpdateTime)
		}
		if rec.LastUpdateTime.Equal(now) {
			t.Errorf("%s: expected seeded timestamps to trail the clock", rec.NID)
		}
	}
}
