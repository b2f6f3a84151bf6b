// Package document defines the record model and the concurrent record store
package document

import "errors"

var (
	// ErrNotFound indicates the referenced nid does not exist in the store
	ErrNotFound = errors.New("document: record not found")

	// ErrDuplicateID indicates an insert reusing an already-registered nid
	ErrDuplicateID = errors.New("document: duplicate nid")

	// ErrInvalidInput indicates malformed input, rejected before any mutation
	ErrInvalidInput = errors.New("document: invalid input")

	// ErrCurrentlyProcessing indicates a forced transition attempted on a
	// record that is mid-pipeline
	ErrCurrentlyProcessing = errors.New("document: currently processing")
)
