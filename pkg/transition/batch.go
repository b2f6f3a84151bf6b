// ABOUTME: Batch operation coordinator for retry, reset, and reset-all
// ABOUTME: Resolves selections, fans out transitions, and reports buckets

package transition

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nainya/docsim/pkg/document"
	"github.com/nainya/docsim/pkg/journal"
)

// typeToken matches the short uppercase tokens file types are encoded as.
var typeToken = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

// defaultConcurrency bounds the transition fan-out per batch run.
const defaultConcurrency = 8

// Selection names the records a batch operation targets. FileTypes takes
// precedence: when present, NIDs are ignored entirely.
type Selection struct {
	NIDs      []string
	FileTypes []string
}

// BatchResult summarizes one batch run. AffectedCount is the number of
// records whose status was actually forced; the remaining counters break
// down the records that were not.
type BatchResult struct {
	TaskID        string
	Message       string
	AffectedCount int

	SkippedProcessing int
	SkippedPending    int
	NotFound          int
}

// RecordStore is the record surface the coordinator resolves selections
// against. *document.RecordStore satisfies it.
type RecordStore interface {
	RecordMutator
	List() []*document.DocumentRecord
}

// Coordinator resolves batch selections into per-record transitions and
// aggregates the outcomes into a result message. Runs are concurrent but
// never atomic across records.
type Coordinator struct {
	store       RecordStore
	ctrl        *Controller
	journal     *journal.Log
	newTaskID   func() string
	concurrency int
}

// NewCoordinator creates a coordinator with uuid task ids
func NewCoordinator(store RecordStore, log *journal.Log) *Coordinator {
	return NewCoordinatorWithIDGen(store, log, uuid.NewString)
}

// NewCoordinatorWithIDGen creates a coordinator with an injected task id
// generator. Task ids correlate journal entries and logs per batch run.
func NewCoordinatorWithIDGen(store RecordStore, log *journal.Log, newTaskID func() string) *Coordinator {
	return &Coordinator{
		store:       store,
		ctrl:        NewController(store),
		journal:     log,
		newTaskID:   newTaskID,
		concurrency: defaultConcurrency,
	}
}

// Retry requeues the selected records for processing. Already-Pending
// records are re-forced and count toward the affected total.
func (c *Coordinator) Retry(sel Selection) (*BatchResult, error) {
	return c.run(opRetry, sel, PolicyUnconditional)
}

// Reset forces the selected records back to Pending under the given policy
func (c *Coordinator) Reset(sel Selection, policy ResetPolicy) (*BatchResult, error) {
	return c.run(opReset, sel, policy)
}

// ResetAll forces every record in the store back to Pending under the given
// policy. Processing records still skip.
func (c *Coordinator) ResetAll(policy ResetPolicy) (*BatchResult, error) {
	if !policy.Valid() {
		return nil, fmt.Errorf("reset policy %d: %w", int(policy), document.ErrInvalidInput)
	}

	taskID := c.newTaskID()
	records := c.store.List()
	if len(records) == 0 {
		return &BatchResult{TaskID: taskID, Message: "no documents to reset"}, nil
	}

	t, err := c.applyCandidates(opResetAll, taskID, recordNIDs(records), policy)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("reset %d of %d file(s); skipped %d in progress; distribution: %s",
		t.applied, len(records), len(t.inProgress), formatHistogram(histogram(records)))
	if t.alreadyPending > 0 {
		msg += fmt.Sprintf("; left %d already pending", t.alreadyPending)
	}

	return t.result(taskID, msg), nil
}

func (c *Coordinator) run(op batchOp, sel Selection, policy ResetPolicy) (*BatchResult, error) {
	if !policy.Valid() {
		return nil, fmt.Errorf("reset policy %d: %w", int(policy), document.ErrInvalidInput)
	}

	switch {
	case len(sel.FileTypes) > 0:
		return c.runTypeMode(op, sel.FileTypes, policy)
	case len(sel.NIDs) > 0:
		return c.runIDMode(op, sel.NIDs, policy)
	}
	return nil, fmt.Errorf("selection requires nids or fileTypes: %w", document.ErrInvalidInput)
}

// runTypeMode targets every record whose type set intersects the requested
// tokens. The status distribution of all candidates is captured before any
// transition so the message describes what the batch found, not what it
// left behind.
func (c *Coordinator) runTypeMode(op batchOp, types []string, policy ResetPolicy) (*BatchResult, error) {
	for _, tok := range types {
		if !typeToken.MatchString(tok) {
			return nil, fmt.Errorf("file type %q: %w", tok, document.ErrInvalidInput)
		}
	}

	taskID := c.newTaskID()

	var candidates []*document.DocumentRecord
	for _, rec := range c.store.List() {
		if rec.HasAnyType(types) {
			candidates = append(candidates, rec)
		}
	}
	if len(candidates) == 0 {
		return &BatchResult{
			TaskID:  taskID,
			Message: fmt.Sprintf("no documents matched types %s", strings.Join(types, ", ")),
		}, nil
	}

	hist := histogram(candidates)

	t, err := c.applyCandidates(op, taskID, recordNIDs(candidates), policy)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("%s %d of %d matched file(s); skipped %d in progress; distribution: %s",
		op.verb(), t.applied, len(candidates), len(t.inProgress), formatHistogram(hist))
	if t.alreadyPending > 0 {
		msg += fmt.Sprintf("; left %d already pending", t.alreadyPending)
	}

	return t.result(taskID, msg), nil
}

// runIDMode targets explicitly requested ids. Duplicates are collapsed;
// unknown ids land in the not-found bucket without aborting the batch.
func (c *Coordinator) runIDMode(op batchOp, nids []string, policy ResetPolicy) (*BatchResult, error) {
	unique := dedupe(nids)
	taskID := c.newTaskID()

	t, err := c.applyCandidates(op, taskID, unique, policy)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("%s %d of %d requested file(s)", op.verb(), t.applied, len(unique))
	if len(t.inProgress) > 0 {
		msg += fmt.Sprintf("; skipped %d in progress: %s", len(t.inProgress), strings.Join(t.inProgress, ", "))
	}
	if t.alreadyPending > 0 {
		msg += fmt.Sprintf("; left %d already pending", t.alreadyPending)
	}
	if len(t.notFound) > 0 {
		msg += fmt.Sprintf("; not found: %s", strings.Join(t.notFound, ", "))
	}

	return t.result(taskID, msg), nil
}

// applyCandidates fans the transition out over the candidate ids, tallies
// the buckets, and journals every per-record outcome.
func (c *Coordinator) applyCandidates(op batchOp, taskID string, nids []string, policy ResetPolicy) (tally, error) {
	outcomes := c.applyAll(nids, policy)

	t, err := classify(outcomes)
	if err != nil {
		return t, err
	}

	c.journalOutcomes(op, taskID, outcomes)
	return t, nil
}

// applyAll runs the per-record transitions concurrently. Each worker writes
// its own slot, so outcomes keep request order and no lock is needed.
func (c *Coordinator) applyAll(nids []string, policy ResetPolicy) []recordOutcome {
	outcomes := make([]recordOutcome, len(nids))

	g := new(errgroup.Group)
	g.SetLimit(c.concurrency)
	for i, nid := range nids {
		g.Go(func() error {
			out, err := c.ctrl.Apply(nid, policy)
			outcomes[i] = recordOutcome{nid: nid, outcome: out, err: err}
			return nil
		})
	}
	// Workers never return errors; failures travel in the outcome slots.
	_ = g.Wait()

	return outcomes
}

func (c *Coordinator) journalOutcomes(op batchOp, taskID string, outcomes []recordOutcome) {
	if c.journal == nil {
		return
	}

	now := c.store.Now()
	for _, ro := range outcomes {
		e := journal.Entry{NID: ro.nid, Stage: op.stage(), TaskID: taskID, At: now}
		switch {
		case ro.err == nil && ro.outcome == OutcomeApplied:
			e.Level, e.Message = journal.LevelInfo, "status forced back to Pending"
		case ro.err == nil && ro.outcome == OutcomeSkippedPending:
			e.Level, e.Message = journal.LevelInfo, "skipped: already pending"
		case errors.Is(ro.err, document.ErrCurrentlyProcessing):
			e.Level, e.Message = journal.LevelWarn, "skipped: currently processing"
		default:
			// Unknown ids have no timeline to write to.
			continue
		}
		c.journal.Append(e)
	}
}

// recordOutcome is one record's result within a batch run
type recordOutcome struct {
	nid     string
	outcome Outcome
	err     error
}

// tally aggregates the per-record buckets of one batch run
type tally struct {
	applied        int
	inProgress     []string
	alreadyPending int
	notFound       []string
}

func (t tally) result(taskID, msg string) *BatchResult {
	return &BatchResult{
		TaskID:            taskID,
		Message:           msg,
		AffectedCount:     t.applied,
		SkippedProcessing: len(t.inProgress),
		SkippedPending:    t.alreadyPending,
		NotFound:          len(t.notFound),
	}
}

// classify sorts outcomes into buckets, preserving request order within
// each. Anything outside the taxonomy aborts the run.
func classify(outcomes []recordOutcome) (tally, error) {
	var t tally
	for _, ro := range outcomes {
		switch {
		case ro.err == nil && ro.outcome == OutcomeApplied:
			t.applied++
		case ro.err == nil && ro.outcome == OutcomeSkippedPending:
			t.alreadyPending++
		case errors.Is(ro.err, document.ErrCurrentlyProcessing):
			t.inProgress = append(t.inProgress, ro.nid)
		case errors.Is(ro.err, document.ErrNotFound):
			t.notFound = append(t.notFound, ro.nid)
		default:
			return t, ro.err
		}
	}
	return t, nil
}

// Helper functions

type batchOp int

const (
	opRetry batchOp = iota
	opReset
	opResetAll
)

// verb is the past-tense verb used in result messages
func (o batchOp) verb() string {
	if o == opRetry {
		return "requeued"
	}
	return "reset"
}

// stage tags the journal entries written by the operation
func (o batchOp) stage() string {
	switch o {
	case opRetry:
		return journal.StageRetry
	case opReset:
		return journal.StageReset
	default:
		return journal.StageResetAll
	}
}

func recordNIDs(recs []*document.DocumentRecord) []string {
	nids := make([]string, len(recs))
	for i, rec := range recs {
		nids[i] = rec.NID
	}
	return nids
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func histogram(recs []*document.DocumentRecord) map[document.Status]int {
	h := make(map[document.Status]int, 4)
	for _, rec := range recs {
		h[rec.Status]++
	}
	return h
}

// formatHistogram renders all four buckets in display order, zeros included
func formatHistogram(h map[document.Status]int) string {
	parts := make([]string, 0, 4)
	for _, s := range document.AllStatuses() {
		parts = append(parts, fmt.Sprintf("%s:%d", s, h[s]))
	}
	return strings.Join(parts, ", ")
}
