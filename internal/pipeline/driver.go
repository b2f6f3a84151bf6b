// Package pipeline simulates the document-processing pipeline that the
// real system runs out of process. On each tick it finishes records that
// are being processed and starts a bounded number of pending ones, so a
// front end developed against this backend sees records move.
package pipeline

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/nainya/docsim/internal/logger"
	"github.com/nainya/docsim/internal/metrics"
	"github.com/nainya/docsim/pkg/document"
	"github.com/nainya/docsim/pkg/journal"
)

// completeChance is the probability that a Processing record finishes
// Completed rather than Rejected.
const completeChance = 0.8

// rejectionReasons mirror the stages of the real pipeline: convert, chunk,
// vectorize, save.
var rejectionReasons = []string{
	"conversion failed: unsupported encoding",
	"chunking failed: empty document body",
	"vectorization failed: embedding service timeout",
	"save failed: vector dimension mismatch",
}

// errStale aborts a mutation when the record moved under us between the
// snapshot and the apply. The tick just skips it.
var errStale = errors.New("record state changed since snapshot")

// Config controls the simulator's pace and randomness
type Config struct {
	Tick      time.Duration // interval between steps
	Seed      int64         // rng seed; runs with the same seed replay identically
	MaxStarts int           // pending records started per step
}

// Driver advances records through the simulated pipeline. All mutation goes
// through the record store, so user-forced transitions and the driver stay
// linearizable per record.
type Driver struct {
	store   *document.RecordStore
	journal *journal.Log
	log     *logger.Logger
	metrics *metrics.Metrics

	cfg Config
	rng *rand.Rand

	started bool
	stop    chan struct{}
	done    chan struct{}
}

// NewDriver creates a pipeline driver. The rng is seeded from cfg so runs
// are reproducible.
func NewDriver(store *document.RecordStore, jnl *journal.Log, log *logger.Logger, m *metrics.Metrics, cfg Config) *Driver {
	if cfg.Tick <= 0 {
		cfg.Tick = 3 * time.Second
	}
	if cfg.MaxStarts <= 0 {
		cfg.MaxStarts = 2
	}

	return &Driver{
		store:   store,
		journal: jnl,
		log:     log.PipelineLogger(),
		metrics: m,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start runs the driver in the background until Stop is called
func (d *Driver) Start() {
	if d.started {
		return
	}
	d.started = true

	d.log.Info("pipeline simulator started").
		Dur("tick", d.cfg.Tick).
		Int64("seed", d.cfg.Seed).
		Int("max_starts", d.cfg.MaxStarts).
		Send()

	go d.run()
}

// Stop halts the driver and waits for the in-flight step to finish.
// Safe to call repeatedly and without a prior Start.
func (d *Driver) Stop() {
	if !d.started {
		return
	}

	select {
	case <-d.stop:
	default:
		close(d.stop)
	}
	<-d.done

	d.log.Info("pipeline simulator stopped").Send()
}

func (d *Driver) run() {
	defer close(d.done)

	ticker := time.NewTicker(d.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.Step()
		}
	}
}

// Step performs one simulation tick: finish first, then start, so a record
// started in this step survives at least one full tick in Processing.
func (d *Driver) Step() {
	d.metrics.PipelineTicksTotal.Inc()

	snapshot := d.store.List()

	for _, rec := range snapshot {
		if rec.Status == document.StatusProcessing {
			d.finish(rec.NID)
		}
	}

	starts := 0
	for _, rec := range snapshot {
		if starts >= d.cfg.MaxStarts {
			break
		}
		if rec.Status == document.StatusPending {
			if d.start(rec.NID) {
				starts++
			}
		}
	}
}

// start moves one Pending record to Processing
func (d *Driver) start(nid string) bool {
	_, err := d.store.Mutate(nid, func(rec *document.DocumentRecord) error {
		if rec.Status != document.StatusPending {
			return errStale
		}

		now := d.store.Now()
		actor := document.PipelineActor
		rec.Status = document.StatusProcessing
		rec.HandledBy = &actor
		rec.StatusChangedAt = now
		rec.LastUpdateTime = now
		return nil
	})
	if err != nil {
		return false
	}

	d.metrics.RecordPipelineTransition("started")
	d.journal.Append(journal.Entry{
		NID:     nid,
		Stage:   journal.StagePipeline,
		Level:   journal.LevelInfo,
		Message: "processing started",
		At:      d.store.Now(),
	})
	d.log.Debug("record started").Str("nid", nid).Send()
	return true
}

// finish moves one Processing record to Completed or Rejected
func (d *Driver) finish(nid string) {
	completed := d.rng.Float64() < completeChance
	slices := 3 + d.rng.Intn(18)
	reason := rejectionReasons[d.rng.Intn(len(rejectionReasons))]

	_, err := d.store.Mutate(nid, func(rec *document.DocumentRecord) error {
		if rec.Status != document.StatusProcessing {
			return errStale
		}

		now := d.store.Now()
		actor := document.PipelineActor
		rec.HandledBy = &actor
		rec.StatusChangedAt = now
		rec.LastUpdateTime = now

		if completed {
			rec.Status = document.StatusCompleted
			rec.SliceCount = slices
			rec.Remark = ""
		} else {
			rec.Status = document.StatusRejected
			rec.Remark = reason
		}
		return nil
	})
	if err != nil {
		return
	}

	if completed {
		d.metrics.RecordPipelineTransition("completed")
		d.journal.Append(journal.Entry{
			NID:     nid,
			Stage:   journal.StagePipeline,
			Level:   journal.LevelInfo,
			Message: fmt.Sprintf("processing completed with %d slices", slices),
			At:      d.store.Now(),
		})
		d.log.Debug("record completed").Str("nid", nid).Int("slices", slices).Send()
		return
	}

	d.metrics.RecordPipelineTransition("rejected")
	d.journal.Append(journal.Entry{
		NID:     nid,
		Stage:   journal.StagePipeline,
		Level:   journal.LevelError,
		Message: "rejected: " + reason,
		At:      d.store.Now(),
	})
	d.log.Debug("record rejected").Str("nid", nid).Str("reason", reason).Send()
}
