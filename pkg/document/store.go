// ABOUTME: Concurrent in-memory registry for document records
// ABOUTME: RWMutex-guarded index with one lock per record and stable ordering

package document

import (
	"fmt"
	"sync"
	"time"
)

// recordEntry pairs a record with its own mutex. The entry lock is the unit
// of atomicity: no record is ever read torn or mutated by two operations at
// once.
type recordEntry struct {
	mu  sync.Mutex
	rec DocumentRecord
}

// RecordStore holds all document records. The index (map plus insertion
// order) is guarded by mu; individual records are guarded by their entry
// lock. Records are never deleted.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]*recordEntry
	order   []string
	nowFn   func() time.Time
}

// NewRecordStore creates a store using the wall clock
func NewRecordStore() *RecordStore {
	return NewRecordStoreWithClock(time.Now)
}

// NewRecordStoreWithClock creates a store with an injected time source so
// tests and the pipeline simulator control timestamps deterministically
func NewRecordStoreWithClock(now func() time.Time) *RecordStore {
	return &RecordStore{
		records: make(map[string]*recordEntry),
		nowFn:   now,
	}
}

// Now returns the store's current time. Every component that stamps records
// shares this one source.
func (rs *RecordStore) Now() time.Time {
	return rs.nowFn()
}

// Insert registers a new record. The nid must be non-empty and unused, the
// status must be a valid lifecycle code, and Pending records must carry a
// zero slice count.
func (rs *RecordStore) Insert(rec *DocumentRecord) error {
	if rec == nil || rec.NID == "" {
		return fmt.Errorf("insert requires a non-empty nid: %w", ErrInvalidInput)
	}
	if err := checkInvariants(rec); err != nil {
		return fmt.Errorf("insert %s: %w", rec.NID, err)
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, ok := rs.records[rec.NID]; ok {
		return fmt.Errorf("insert %s: %w", rec.NID, ErrDuplicateID)
	}
	rs.records[rec.NID] = &recordEntry{rec: *rec.Clone()}
	rs.order = append(rs.order, rec.NID)
	return nil
}

// Get returns a copy of one record
func (rs *RecordStore) Get(nid string) (*DocumentRecord, error) {
	entry, err := rs.lookup(nid)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.rec.Clone(), nil
}

// List returns copies of all records in insertion order. The record set is
// snapshotted at call time; values are read per record, so a page fetched
// during a concurrent batch may mix before and after states across records.
func (rs *RecordStore) List() []*DocumentRecord {
	rs.mu.RLock()
	entries := make([]*recordEntry, 0, len(rs.order))
	for _, nid := range rs.order {
		entries = append(entries, rs.records[nid])
	}
	rs.mu.RUnlock()

	out := make([]*DocumentRecord, len(entries))
	for i, e := range entries {
		e.mu.Lock()
		out[i] = e.rec.Clone()
		e.mu.Unlock()
	}
	return out
}

// Len returns the number of registered records
func (rs *RecordStore) Len() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.order)
}

// CountByStatus tallies records per lifecycle code
func (rs *RecordStore) CountByStatus() map[Status]int {
	counts := make(map[Status]int, 4)
	for _, rec := range rs.List() {
		counts[rec.Status]++
	}
	return counts
}

// Mutate applies fn to exactly one record under its lock. fn receives a
// copy; if fn returns an error the stored record is left untouched and the
// error is returned unwrapped so callers can inspect it. The nid is
// immutable and the mutated record must still satisfy the store invariants.
// fn must not block on I/O; the entry lock is held for its whole run.
func (rs *RecordStore) Mutate(nid string, fn func(*DocumentRecord) error) (*DocumentRecord, error) {
	entry, err := rs.lookup(nid)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	next := entry.rec.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if next.NID != nid {
		return nil, fmt.Errorf("mutate %s: nid is immutable: %w", nid, ErrInvalidInput)
	}
	if err := checkInvariants(next); err != nil {
		return nil, fmt.Errorf("mutate %s: %w", nid, err)
	}
	entry.rec = *next
	return next.Clone(), nil
}

func (rs *RecordStore) lookup(nid string) (*recordEntry, error) {
	rs.mu.RLock()
	entry, ok := rs.records[nid]
	rs.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("record %s: %w", nid, ErrNotFound)
	}
	return entry, nil
}

func checkInvariants(rec *DocumentRecord) error {
	if !rec.Status.Valid() {
		return fmt.Errorf("status code %d: %w", int(rec.Status), ErrInvalidInput)
	}
	if rec.SliceCount < 0 {
		return fmt.Errorf("negative slice count: %w", ErrInvalidInput)
	}
	if rec.Status == StatusPending && rec.SliceCount != 0 {
		return fmt.Errorf("pending record must have zero slice count: %w", ErrInvalidInput)
	}
	return nil
}
