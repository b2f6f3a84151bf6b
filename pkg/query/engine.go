// ABOUTME: Read-only query engine over the document record registry
// ABOUTME: Applies AND-combined filters, counts the total, then pages

package query

import (
	"fmt"
	"strings"

	"github.com/nainya/docsim/pkg/document"
)

// RecordLister is the read surface the engine needs from the record store.
type RecordLister interface {
	List() []*document.DocumentRecord
}

// Engine answers filtered, paginated queries. It never mutates records.
type Engine struct {
	store RecordLister
}

// NewEngine creates a query engine over a record source
func NewEngine(store RecordLister) *Engine {
	return &Engine{store: store}
}

// List applies the filter to every record, counts the matches, and returns
// the requested page. Total always reflects the full match set, not the
// page. PageSize must be positive and the filter's status codes must be
// known; both checks run before the store is touched.
func (e *Engine) List(f Filter, p Page) (*Result, error) {
	if p.PageSize <= 0 {
		return nil, fmt.Errorf("pageSize must be positive, got %d: %w", p.PageSize, document.ErrInvalidInput)
	}
	if err := validStatuses(f.Statuses); err != nil {
		return nil, err
	}
	if p.Page < 1 {
		p.Page = 1
	}

	var matched []*document.DocumentRecord
	for _, rec := range e.store.List() {
		if matches(rec, f) {
			matched = append(matched, rec)
		}
	}

	return &Result{
		Items:    Paginate(matched, p.Page, p.PageSize),
		Total:    len(matched),
		Page:     p.Page,
		PageSize: p.PageSize,
	}, nil
}

// Count returns how many records satisfy the filter
func (e *Engine) Count(f Filter) (int, error) {
	if err := validStatuses(f.Statuses); err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range e.store.List() {
		if matches(rec, f) {
			n++
		}
	}
	return n, nil
}

// Helper functions

func validStatuses(set []document.Status) error {
	for _, s := range set {
		if !s.Valid() {
			return fmt.Errorf("unknown status code %d in filter: %w", int(s), document.ErrInvalidInput)
		}
	}
	return nil
}

func matches(rec *document.DocumentRecord, f Filter) bool {
	if f.NID != "" && !strings.Contains(strings.ToLower(rec.NID), strings.ToLower(f.NID)) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, rec.Status) {
		return false
	}
	if len(f.FileTypes) > 0 && !rec.HasAnyType(f.FileTypes) {
		return false
	}
	return true
}

func containsStatus(set []document.Status, s document.Status) bool {
	for _, member := range set {
		if member == s {
			return true
		}
	}
	return false
}

// Paginate returns the window [(page-1)*size, page*size) clamped to the
// available range. A page past the end yields an empty slice, never an
// error. The fragment index pages with the same helper so both list
// surfaces behave identically.
func Paginate[T any](items []T, page, size int) []T {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		return []T{}
	}

	// The past-the-end check uses division; (page-1)*size overflows int
	// for huge page values.
	pages := len(items) / size
	if len(items)%size != 0 {
		pages++
	}
	if page > pages {
		return []T{}
	}

	start := (page - 1) * size
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
