// ABOUTME: Read-only index of detail fragments derived from records
// ABOUTME: Generates, keyword-filters, and pages per-record fragments

package fragment

import (
	"fmt"
	"strings"

	"github.com/nainya/docsim/pkg/document"
	"github.com/nainya/docsim/pkg/query"
)

// Fragment is one derived sub-record of a document. Fragments are not
// stored; they are generated deterministically from the record, so the same
// record always yields the same fragments.
type Fragment struct {
	ID      string `json:"id"`
	NID     string `json:"nid"`
	Seq     int    `json:"seq"`
	Content string `json:"content"`
}

// Result is one page of fragments plus the pre-paging total
type Result struct {
	Items    []Fragment
	Total    int
	Page     int
	PageSize int
}

// RecordGetter is the store surface the index reads records through.
type RecordGetter interface {
	Get(nid string) (*document.DocumentRecord, error)
}

// Index serves fragment listings for single records
type Index struct {
	store RecordGetter
}

// NewIndex creates a fragment index over a record source
func NewIndex(store RecordGetter) *Index {
	return &Index{store: store}
}

// List returns one page of a record's fragments, optionally filtered by a
// case-insensitive keyword over the content. A record with zero slices
// yields an empty result, not an error. Pagination follows the same rules
// as the record query engine.
func (ix *Index) List(nid, keyword string, page, pageSize int) (*Result, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("pageSize must be positive, got %d: %w", pageSize, document.ErrInvalidInput)
	}
	if page < 1 {
		page = 1
	}

	rec, err := ix.store.Get(nid)
	if err != nil {
		return nil, err
	}

	fragments := generate(rec)
	if keyword != "" {
		needle := strings.ToLower(keyword)
		kept := fragments[:0]
		for _, f := range fragments {
			if strings.Contains(strings.ToLower(f.Content), needle) {
				kept = append(kept, f)
			}
		}
		fragments = kept
	}

	return &Result{
		Items:    query.Paginate(fragments, page, pageSize),
		Total:    len(fragments),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// generate derives a record's fragments: one per slice, ids numbered from
// zero in the form <nid>_chunk_<i>.
func generate(rec *document.DocumentRecord) []Fragment {
	fragments := make([]Fragment, 0, rec.SliceCount)
	types := strings.Join(rec.FileTypes, ", ")
	for i := 0; i < rec.SliceCount; i++ {
		fragments = append(fragments, Fragment{
			ID:      fmt.Sprintf("%s_chunk_%d", rec.NID, i),
			NID:     rec.NID,
			Seq:     i,
			Content: fmt.Sprintf("%s (%s) segment %d of %d", rec.Name, types, i+1, rec.SliceCount),
		})
	}
	return fragments
}
