package pipeline

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nainya/docsim/internal/logger"
	"github.com/nainya/docsim/internal/metrics"
	"github.com/nainya/docsim/pkg/document"
	"github.com/nainya/docsim/pkg/journal"
)

func setupDriver(t *testing.T, cfg Config) (*Driver, *document.RecordStore, *journal.Log) {
	t.Helper()

	store := document.NewRecordStoreWithClock(func() time.Time {
		return time.UnixMilli(1700000000000)
	})
	jnl := journal.NewLog()
	log := logger.NewLogger(logger.Config{Level: "error", Output: io.Discard})
	m := metrics.NewMetricsWithRegistry(prometheus.NewRegistry())

	return NewDriver(store, jnl, log, m, cfg), store, jnl
}

func insertRecord(t *testing.T, store *document.RecordStore, nid string, status document.Status) {
	t.Helper()

	slices := 0
	if status != document.StatusPending {
		slices = 4
	}

	now := store.Now()
	err := store.Insert(&document.DocumentRecord{
		NID:             nid,
		Name:            "Report " + nid,
		FileTypes:       []string{"PDF"},
		Status:          status,
		SliceCount:      slices,
		UpdateTime:      now.Add(-time.Hour),
		LastUpdateTime:  now.Add(-time.Hour),
		StatusChangedAt: now.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("Failed to insert %s: %v", nid, err)
	}
}

func TestStepStartsBoundedPendingRecords(t *testing.T) {
	driver, store, jnl := setupDriver(t, Config{Seed: 1, MaxStarts: 2})

	for _, nid := range []string{"DOC001", "DOC002", "DOC003", "DOC004", "DOC005"} {
		insertRecord(t, store, nid, document.StatusPending)
	}

	driver.Step()

	counts := store.CountByStatus()
	if counts[document.StatusProcessing] != 2 {
		t.Errorf("Expected 2 records started, got %d", counts[document.StatusProcessing])
	}
	if counts[document.StatusPending] != 3 {
		t.Errorf("Expected 3 records still pending, got %d", counts[document.StatusPending])
	}

	// Oldest pending records go first.
	for _, nid := range []string{"DOC001", "DOC002"} {
		rec, _ := store.Get(nid)
		if rec.Status != document.StatusProcessing {
			t.Errorf("%s: expected Processing, got %v", nid, rec.Status)
		}
		if rec.HandledBy == nil || *rec.HandledBy != document.PipelineActor {
			t.Errorf("%s: expected pipeline attribution, got %v", nid, rec.HandledBy)
		}
		if jnl.Len(nid) != 1 {
			t.Errorf("%s: expected 1 journal entry, got %d", nid, jnl.Len(nid))
		}
	}
}

func TestStepFinishesProcessingRecords(t *testing.T) {
	driver, store, jnl := setupDriver(t, Config{Seed: 1, MaxStarts: 2})
	insertRecord(t, store, "DOC001", document.StatusProcessing)

	driver.Step()

	rec, _ := store.Get("DOC001")
	switch rec.Status {
	case document.StatusCompleted:
		if rec.SliceCount < 3 || rec.SliceCount > 20 {
			t.Errorf("Expected computed slice count in [3,20], got %d", rec.SliceCount)
		}
		if rec.Remark != "" {
			t.Errorf("Expected remark cleared on completion, got %q", rec.Remark)
		}
	case document.StatusRejected:
		if rec.Remark == "" {
			t.Error("Expected a rejection reason in remark")
		}
	default:
		t.Fatalf("Expected a terminal status after the step, got %v", rec.Status)
	}

	if rec.HandledBy == nil || *rec.HandledBy != document.PipelineActor {
		t.Errorf("Expected pipeline attribution, got %v", rec.HandledBy)
	}
	if !rec.StatusChangedAt.Equal(store.Now()) {
		t.Errorf("Expected statusChangedAt stamped, got %v", rec.StatusChangedAt)
	}
	if jnl.Len("DOC001") != 1 {
		t.Errorf("Expected 1 journal entry, got %d", jnl.Len("DOC001"))
	}
}

func TestStepNeverFinishesAFreshStart(t *testing.T) {
	driver, store, _ := setupDriver(t, Config{Seed: 1, MaxStarts: 2})
	insertRecord(t, store, "DOC001", document.StatusPending)

	driver.Step()
	rec, _ := store.Get("DOC001")
	if rec.Status != document.StatusProcessing {
		t.Fatalf("Expected Processing after first step, got %v", rec.Status)
	}

	driver.Step()
	rec, _ = store.Get("DOC001")
	if rec.Status != document.StatusCompleted && rec.Status != document.StatusRejected {
		t.Errorf("Expected terminal status after second step, got %v", rec.Status)
	}
}

func TestStepProducesBothTerminalStates(t *testing.T) {
	driver, store, _ := setupDriver(t, Config{Seed: 7, MaxStarts: 2})

	// With 60 records in flight a seeded run lands some in each bucket.
	for i := 0; i < 60; i++ {
		insertRecord(t, store, fmt.Sprintf("DOC%03d", i+1), document.StatusProcessing)
	}

	driver.Step()

	counts := store.CountByStatus()
	if counts[document.StatusProcessing] != 0 {
		t.Errorf("Expected every record finished, %d still processing", counts[document.StatusProcessing])
	}
	if counts[document.StatusCompleted] == 0 {
		t.Error("Expected at least one completed record")
	}
	if counts[document.StatusRejected] == 0 {
		t.Error("Expected at least one rejected record")
	}
}

func TestSameSeedReplaysIdentically(t *testing.T) {
	run := func() map[string]document.Status {
		driver, store, _ := setupDriver(t, Config{Seed: 11, MaxStarts: 2})
		for i := 0; i < 20; i++ {
			insertRecord(t, store, fmt.Sprintf("DOC%03d", i+1), document.StatusProcessing)
		}
		driver.Step()

		result := make(map[string]document.Status)
		for _, rec := range store.List() {
			result[rec.NID] = rec.Status
		}
		return result
	}

	first := run()
	second := run()

	for nid, status := range first {
		if second[nid] != status {
			t.Errorf("%s: first run %v, second run %v", nid, status, second[nid])
		}
	}
}

func TestStartStopLifecycle(t *testing.T) {
	driver, store, _ := setupDriver(t, Config{Tick: 5 * time.Millisecond, Seed: 1, MaxStarts: 2})
	insertRecord(t, store, "DOC001", document.StatusPending)

	driver.Start()

	deadline := time.After(2 * time.Second)
	for {
		if store.CountByStatus()[document.StatusPending] == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Driver never started the pending record")
		case <-time.After(5 * time.Millisecond):
		}
	}

	driver.Stop()
	driver.Stop() // idempotent
}

func TestStopWithoutStart(t *testing.T) {
	driver, _, _ := setupDriver(t, Config{Seed: 1})
	driver.Stop()
}
