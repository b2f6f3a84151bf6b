// ABOUTME: Status transition controller for forced requeue operations
// ABOUTME: Applies the Pending transition per record under a reset policy

package transition

import (
	"errors"
	"fmt"
	"time"

	"github.com/nainya/docsim/pkg/document"
)

// ResetPolicy selects how already-Pending records are treated by a forced
// transition.
type ResetPolicy int

const (
	// PolicyUnconditional re-forces already-Pending records; they count as applied.
	PolicyUnconditional ResetPolicy = iota
	// PolicySkipIfPending leaves already-Pending records untouched.
	PolicySkipIfPending
)

// Valid reports whether the policy is one of the defined values
func (p ResetPolicy) Valid() bool {
	switch p {
	case PolicyUnconditional, PolicySkipIfPending:
		return true
	}
	return false
}

func (p ResetPolicy) String() string {
	switch p {
	case PolicyUnconditional:
		return "unconditional"
	case PolicySkipIfPending:
		return "skipIfPending"
	}
	return fmt.Sprintf("ResetPolicy(%d)", int(p))
}

// ParsePolicy maps the wire names onto policies. The empty string selects
// the default, PolicyUnconditional.
func ParsePolicy(s string) (ResetPolicy, error) {
	switch s {
	case "", "unconditional":
		return PolicyUnconditional, nil
	case "skipIfPending":
		return PolicySkipIfPending, nil
	}
	return 0, fmt.Errorf("unknown reset policy %q: %w", s, document.ErrInvalidInput)
}

// Outcome classifies the effect of one forced transition.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeSkippedProcessing
	OutcomeSkippedPending
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeSkippedProcessing:
		return "skipped_processing"
	case OutcomeSkippedPending:
		return "skipped_pending"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// RecordMutator is the store surface a forced transition mutates through.
// *document.RecordStore satisfies it.
type RecordMutator interface {
	Mutate(nid string, fn func(*document.DocumentRecord) error) (*document.DocumentRecord, error)
	Now() time.Time
}

// Controller forces records back to Pending. Retry and reset share the same
// mechanics; only the policy and the reporting around them differ.
type Controller struct {
	store RecordMutator
}

// NewController creates a transition controller over a record store
func NewController(store RecordMutator) *Controller {
	return &Controller{store: store}
}

// errAlreadyPending aborts the mutation without treating the skip as a
// failure. Never escapes Apply.
var errAlreadyPending = errors.New("record already pending")

// Apply forces one record back to Pending: status Pending, slice count
// zeroed, attribution set to the system marker, status-change and
// last-update times stamped from the store clock. A Processing record is
// never changed; it reports OutcomeSkippedProcessing along with
// ErrCurrentlyProcessing so single-record callers see the conflict while
// batch callers classify it as a skip. Under PolicySkipIfPending an
// already-Pending record reports OutcomeSkippedPending with no error.
func (c *Controller) Apply(nid string, policy ResetPolicy) (Outcome, error) {
	if !policy.Valid() {
		return 0, fmt.Errorf("reset policy %d: %w", int(policy), document.ErrInvalidInput)
	}

	_, err := c.store.Mutate(nid, func(rec *document.DocumentRecord) error {
		if rec.Status == document.StatusProcessing {
			return fmt.Errorf("%s: %w", rec.NID, document.ErrCurrentlyProcessing)
		}
		if rec.Status == document.StatusPending && policy == PolicySkipIfPending {
			return errAlreadyPending
		}

		now := c.store.Now()
		actor := document.SystemActor
		rec.Status = document.StatusPending
		rec.SliceCount = 0
		rec.HandledBy = &actor
		rec.StatusChangedAt = now
		rec.LastUpdateTime = now
		return nil
	})

	switch {
	case err == nil:
		return OutcomeApplied, nil
	case errors.Is(err, errAlreadyPending):
		return OutcomeSkippedPending, nil
	case errors.Is(err, document.ErrCurrentlyProcessing):
		return OutcomeSkippedProcessing, err
	default:
		return 0, err
	}
}
