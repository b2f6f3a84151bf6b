// ABOUTME: Document record model for the simulated processing backend
// ABOUTME: Defines DocumentRecord and the closed lifecycle status enum

package document

import (
	"fmt"
	"time"
)

// Status is the lifecycle code of a document record
type Status int

const (
	StatusPending    Status = 0 // waiting for the pipeline
	StatusProcessing Status = 1 // mid-pipeline
	StatusCompleted  Status = 2 // processed successfully
	StatusRejected   Status = 3 // processing failed
)

// SystemActor is written to HandledBy when retry or reset forces a transition
const SystemActor = "system"

// PipelineActor is written to HandledBy by the pipeline simulator
const PipelineActor = "pipeline"

// Valid reports whether s is one of the four lifecycle codes
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// String maps each lifecycle code to its display name
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusProcessing:
		return "Processing"
	case StatusCompleted:
		return "Completed"
	case StatusRejected:
		return "Rejected"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus converts a wire-level integer code into a Status. Codes outside
// the closed enum are rejected rather than mapped to an "unknown" placeholder.
func ParseStatus(code int) (Status, error) {
	s := Status(code)
	if !s.Valid() {
		return 0, fmt.Errorf("status code %d: %w", code, ErrInvalidInput)
	}
	return s, nil
}

// AllStatuses lists the lifecycle codes in display order
func AllStatuses() []Status {
	return []Status{StatusPending, StatusProcessing, StatusCompleted, StatusRejected}
}

// DocumentRecord is one document moving through the simulated pipeline
type DocumentRecord struct {
	NID             string    // Business identifier, unique and immutable
	Name            string    // Display name
	FileTypes       []string  // Uppercase type tokens, e.g. "PDF"
	Status          Status    // Lifecycle code
	SliceCount      int       // Processed sub-units; 0 while Pending
	UpdateTime      time.Time // Content update timestamp
	LastUpdateTime  time.Time // Most recent touch of any kind
	StatusChangedAt time.Time // When Status last changed
	HandledBy       *string   // Attribution, nil until someone touches the record
	Remark          string    // Free-text annotation
}

// Clone returns a deep copy so callers never share store-owned state
func (r *DocumentRecord) Clone() *DocumentRecord {
	cp := *r
	cp.FileTypes = append([]string(nil), r.FileTypes...)
	if r.HandledBy != nil {
		h := *r.HandledBy
		cp.HandledBy = &h
	}
	return &cp
}

// HasAnyType reports whether the record's type set intersects types
func (r *DocumentRecord) HasAnyType(types []string) bool {
	for _, want := range types {
		for _, have := range r.FileTypes {
			if have == want {
				return true
			}
		}
	}
	return false
}
