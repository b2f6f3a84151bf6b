// Package journal keeps bounded per-record processing timelines.
package journal

import (
	"sync"
	"time"
)

// Stage names used by the writers. Plain strings keep the journal decoupled
// from the packages that write to it.
const (
	StageRetry      = "retry"
	StageReset      = "reset"
	StageResetAll   = "reset_all"
	StageSync       = "sync"
	StagePipeline   = "pipeline"
	StageTimestamps = "timestamps"
)

// Entry levels.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Entry is one event in a record's processing timeline.
type Entry struct {
	Seq     uint64    `json:"seq"`
	NID     string    `json:"nid"`
	Stage   string    `json:"stage"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	TaskID  string    `json:"taskId,omitempty"`
	At      time.Time `json:"-"`
}

const defaultCapacity = 256

// Log stores per-record timelines, bounded to the most recent entries.
// Sequence numbers are global so interleaved writers stay ordered.
type Log struct {
	mu      sync.Mutex
	nextSeq uint64
	entries map[string][]Entry
	limit   int
}

// NewLog creates a journal keeping up to 256 entries per record.
func NewLog() *Log {
	return NewLogWithCapacity(defaultCapacity)
}

// NewLogWithCapacity creates a journal keeping up to limit entries per record.
func NewLogWithCapacity(limit int) *Log {
	if limit < 1 {
		limit = 1
	}
	return &Log{
		entries: make(map[string][]Entry),
		limit:   limit,
	}
}

// Append records one entry and assigns its sequence number. At is stamped by
// the caller so every writer shares the store clock. The oldest entry is
// dropped once a record's timeline is full.
func (l *Log) Append(e Entry) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextSeq++
	e.Seq = l.nextSeq

	tl := append(l.entries[e.NID], e)
	if len(tl) > l.limit {
		copy(tl, tl[len(tl)-l.limit:])
		tl = tl[:l.limit]
	}
	l.entries[e.NID] = tl
	return e
}

// ForRecord returns a record's timeline newest-first, at most limit entries.
// limit <= 0 returns everything retained. Unknown records yield an empty
// timeline.
func (l *Log) ForRecord(nid string, limit int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	tl := l.entries[nid]
	n := len(tl)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Entry, 0, n)
	for i := len(tl) - 1; i >= len(tl)-n; i-- {
		out = append(out, tl[i])
	}
	return out
}

// Len returns the number of retained entries for a record.
func (l *Log) Len(nid string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries[nid])
}
