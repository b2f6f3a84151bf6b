// ABOUTME: Query types for filtering and paginating document records
// ABOUTME: Filter dimensions, page parameters, and the result envelope

package query

import "github.com/nainya/docsim/pkg/document"

// Filter narrows the record set. Dimensions combine with AND; an empty
// dimension matches everything.
type Filter struct {
	NID       string            // case-insensitive substring of the record nid
	Statuses  []document.Status // membership, OR within the set
	FileTypes []string          // non-empty intersection with the record's types
}

// Page selects one window of the filtered result
type Page struct {
	Page     int // 1-based; values below 1 are treated as 1
	PageSize int // must be positive
}

// Result is one page of records plus the pre-paging total
type Result struct {
	Items    []*document.DocumentRecord
	Total    int
	Page     int
	PageSize int
}
