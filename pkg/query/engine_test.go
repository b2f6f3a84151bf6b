// ABOUTME: Tests for the record query engine
// ABOUTME: Verifies filter semantics, totals, and pagination windows

package query

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/nainya/docsim/pkg/document"
)

func fixedClock() func() time.Time {
	at := time.UnixMilli(1700000000000)
	return func() time.Time { return at }
}

func seedRecord(t *testing.T, store *document.RecordStore, nid string, status document.Status, types ...string) {
	t.Helper()

	slices := 4
	if status == document.StatusPending {
		slices = 0
	}
	if len(types) == 0 {
		types = []string{"PDF"}
	}

	now := store.Now()
	err := store.Insert(&document.DocumentRecord{
		NID:             nid,
		Name:            "Report " + nid,
		FileTypes:       types,
		Status:          status,
		SliceCount:      slices,
		UpdateTime:      now,
		LastUpdateTime:  now,
		StatusChangedAt: now,
	})
	if err != nil {
		t.Fatalf("Failed to insert %s: %v", nid, err)
	}
}

func setupTestEngine(t *testing.T) (*Engine, *document.RecordStore) {
	store := document.NewRecordStoreWithClock(fixedClock())
	return NewEngine(store), store
}

func TestListRejectsNonPositivePageSize(t *testing.T) {
	engine, _ := setupTestEngine(t)

	for _, size := range []int{0, -5} {
		_, err := engine.List(Filter{}, Page{Page: 1, PageSize: size})
		if !errors.Is(err, document.ErrInvalidInput) {
			t.Errorf("PageSize %d: expected ErrInvalidInput, got %v", size, err)
		}
	}
}

func TestListRejectsUnknownStatusCode(t *testing.T) {
	engine, store := setupTestEngine(t)
	seedRecord(t, store, "DOC001", document.StatusPending)

	_, err := engine.List(Filter{Statuses: []document.Status{document.Status(7)}}, Page{Page: 1, PageSize: 10})
	if !errors.Is(err, document.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for status 7, got %v", err)
	}
}

func TestListPageBelowOneTreatedAsFirst(t *testing.T) {
	engine, store := setupTestEngine(t)
	for i := 0; i < 5; i++ {
		seedRecord(t, store, fmt.Sprintf("DOC%03d", i+1), document.StatusPending)
	}

	result, err := engine.List(Filter{}, Page{Page: 0, PageSize: 3})
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}

	if result.Page != 1 {
		t.Errorf("Expected page echoed as 1, got %d", result.Page)
	}
	if len(result.Items) != 3 {
		t.Errorf("Expected 3 items on first page, got %d", len(result.Items))
	}
	if result.Items[0].NID != "DOC001" {
		t.Errorf("Expected DOC001 first, got %s", result.Items[0].NID)
	}
}

func TestListLastPartialPage(t *testing.T) {
	engine, store := setupTestEngine(t)

	// 25 pending records, page size 10: page 3 holds the trailing 5.
	for i := 0; i < 25; i++ {
		seedRecord(t, store, fmt.Sprintf("DOC%03d", i+1), document.StatusPending)
	}

	result, err := engine.List(Filter{}, Page{Page: 3, PageSize: 10})
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}

	if len(result.Items) != 5 {
		t.Errorf("Expected 5 items on page 3, got %d", len(result.Items))
	}
	if result.Total != 25 {
		t.Errorf("Expected total 25, got %d", result.Total)
	}
	if result.Items[0].NID != "DOC021" {
		t.Errorf("Expected page 3 to start at DOC021, got %s", result.Items[0].NID)
	}
}

func TestListPagePastEndIsEmpty(t *testing.T) {
	engine, store := setupTestEngine(t)
	for i := 0; i < 4; i++ {
		seedRecord(t, store, fmt.Sprintf("DOC%03d", i+1), document.StatusCompleted)
	}

	result, err := engine.List(Filter{}, Page{Page: 9, PageSize: 10})
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}

	if len(result.Items) != 0 {
		t.Errorf("Expected empty page, got %d items", len(result.Items))
	}
	if result.Total != 4 {
		t.Errorf("Expected total 4 even on an empty page, got %d", result.Total)
	}
}

func TestListNIDSubstringIsCaseInsensitive(t *testing.T) {
	engine, store := setupTestEngine(t)
	seedRecord(t, store, "DOC001", document.StatusPending)
	seedRecord(t, store, "DOC002", document.StatusPending)
	seedRecord(t, store, "RPT001", document.StatusPending)

	result, err := engine.List(Filter{NID: "doc"}, Page{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}

	if result.Total != 2 {
		t.Errorf("Expected 2 matches for substring doc, got %d", result.Total)
	}
	for _, rec := range result.Items {
		if rec.NID != "DOC001" && rec.NID != "DOC002" {
			t.Errorf("Unexpected record %s in substring match", rec.NID)
		}
	}
}

func TestListStatusSetMatchesAnyMember(t *testing.T) {
	engine, store := setupTestEngine(t)
	seedRecord(t, store, "DOC001", document.StatusPending)
	seedRecord(t, store, "DOC002", document.StatusProcessing)
	seedRecord(t, store, "DOC003", document.StatusCompleted)
	seedRecord(t, store, "DOC004", document.StatusRejected)

	result, err := engine.List(Filter{
		Statuses: []document.Status{document.StatusPending, document.StatusRejected},
	}, Page{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}

	if result.Total != 2 {
		t.Errorf("Expected 2 records in status set, got %d", result.Total)
	}
}

func TestListFileTypesMatchOnIntersection(t *testing.T) {
	engine, store := setupTestEngine(t)
	seedRecord(t, store, "DOC001", document.StatusPending, "PDF", "XLSX")
	seedRecord(t, store, "DOC002", document.StatusPending, "DOCX")
	seedRecord(t, store, "DOC003", document.StatusPending, "XLSX")

	result, err := engine.List(Filter{FileTypes: []string{"PDF", "DOCX"}}, Page{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}

	if result.Total != 2 {
		t.Errorf("Expected 2 records sharing a requested type, got %d", result.Total)
	}
	for _, rec := range result.Items {
		if rec.NID == "DOC003" {
			t.Error("DOC003 has no requested type and must not match")
		}
	}
}

func TestListFiltersCombineWithAND(t *testing.T) {
	engine, store := setupTestEngine(t)
	seedRecord(t, store, "DOC001", document.StatusPending, "PDF")
	seedRecord(t, store, "DOC002", document.StatusCompleted, "PDF")
	seedRecord(t, store, "RPT001", document.StatusPending, "PDF")
	seedRecord(t, store, "DOC003", document.StatusPending, "DOCX")

	result, err := engine.List(Filter{
		NID:       "DOC",
		Statuses:  []document.Status{document.StatusPending},
		FileTypes: []string{"PDF"},
	}, Page{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}

	if result.Total != 1 {
		t.Fatalf("Expected exactly 1 record passing all filters, got %d", result.Total)
	}
	if result.Items[0].NID != "DOC001" {
		t.Errorf("Expected DOC001, got %s", result.Items[0].NID)
	}
}

func TestListEmptyFilterMatchesEverything(t *testing.T) {
	engine, store := setupTestEngine(t)
	seedRecord(t, store, "DOC001", document.StatusPending)
	seedRecord(t, store, "DOC002", document.StatusProcessing)

	result, err := engine.List(Filter{}, Page{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}

	if result.Total != 2 {
		t.Errorf("Expected all records, got %d", result.Total)
	}
}

func TestListPreservesInsertionOrder(t *testing.T) {
	engine, store := setupTestEngine(t)
	nids := []string{"DOC005", "DOC001", "DOC009", "DOC003"}
	for _, nid := range nids {
		seedRecord(t, store, nid, document.StatusPending)
	}

	result, err := engine.List(Filter{}, Page{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}

	for i, rec := range result.Items {
		if rec.NID != nids[i] {
			t.Errorf("Position %d: expected %s, got %s", i, nids[i], rec.NID)
		}
	}
}

func TestListWindowArithmetic(t *testing.T) {
	engine, store := setupTestEngine(t)
	total := 13
	for i := 0; i < total; i++ {
		seedRecord(t, store, fmt.Sprintf("DOC%03d", i+1), document.StatusPending)
	}

	cases := []struct {
		page, size, want int
	}{
		{1, 5, 5},
		{2, 5, 5},
		{3, 5, 3},
		{4, 5, 0},
		{1, 13, 13},
		{1, 50, 13},
		{math.MaxInt, 5, 0},
		{1, math.MaxInt, 13},
	}

	for _, tc := range cases {
		result, err := engine.List(Filter{}, Page{Page: tc.page, PageSize: tc.size})
		if err != nil {
			t.Fatalf("page=%d size=%d: %v", tc.page, tc.size, err)
		}
		if len(result.Items) != tc.want {
			t.Errorf("page=%d size=%d: expected %d items, got %d", tc.page, tc.size, tc.want, len(result.Items))
		}
		if result.Total != total {
			t.Errorf("page=%d size=%d: expected total %d, got %d", tc.page, tc.size, total, result.Total)
		}
	}
}

func TestCountMatchesListTotal(t *testing.T) {
	engine, store := setupTestEngine(t)
	seedRecord(t, store, "DOC001", document.StatusPending, "PDF")
	seedRecord(t, store, "DOC002", document.StatusPending, "DOCX")
	seedRecord(t, store, "DOC003", document.StatusCompleted, "PDF")

	f := Filter{FileTypes: []string{"PDF"}}

	n, err := engine.Count(f)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}

	result, err := engine.List(f, Page{Page: 1, PageSize: 1})
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}

	if n != result.Total {
		t.Errorf("Count %d disagrees with List total %d", n, result.Total)
	}
	if n != 2 {
		t.Errorf("Expected 2 PDF records, got %d", n)
	}
}

func TestPaginateClampsDefensively(t *testing.T) {
	items := []int{1, 2, 3}

	if got := Paginate(items, 0, 2); len(got) != 2 {
		t.Errorf("page 0: expected first window, got %v", got)
	}
	if got := Paginate(items, 1, 0); len(got) != 0 {
		t.Errorf("size 0: expected empty, got %v", got)
	}
	if got := Paginate(items, 5, 2); len(got) != 0 {
		t.Errorf("page past end: expected empty, got %v", got)
	}
	if got := Paginate(items, 2, 2); len(got) != 1 || got[0] != 3 {
		t.Errorf("trailing window: expected [3], got %v", got)
	}

	// Extreme page and size values must clamp like any other past-the-end
	// window, not wrap the start index negative.
	if got := Paginate(items, math.MaxInt, 10); len(got) != 0 {
		t.Errorf("max page: expected empty, got %v", got)
	}
	if got := Paginate(items, math.MaxInt, math.MaxInt); len(got) != 0 {
		t.Errorf("max page and size: expected empty, got %v", got)
	}
	if got := Paginate(items, 1, math.MaxInt); len(got) != 3 {
		t.Errorf("max size on first page: expected all items, got %v", got)
	}
}
