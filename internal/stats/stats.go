package stats

import (
	"sync"
	"time"

	"maskwatch/internal/model"
)

// ClassCounts is a per-class tally over some sequence of detections. All
// fields are non-negative. Unknown holds detections whose backend label fell
// outside the closed class set; it never inflates a known bucket.
type ClassCounts struct {
	WithMask      int `json:"with_mask"`
	WithoutMask   int `json:"without_mask"`
	IncorrectMask int `json:"mask_weared_incorrect"`
	Unknown       int `json:"unknown,omitempty"`
}

// Count partitions detections by class. The sum of the four buckets always
// equals len(dets).
func Count(dets []model.Detection) ClassCounts {
	var c ClassCounts
	for _, d := range dets {
		switch d.Class {
		case model.ClassWithMask:
			c.WithMask++
		case model.ClassWithoutMask:
			c.WithoutMask++
		case model.ClassIncorrectMask:
			c.IncorrectMask++
		default:
			c.Unknown++
		}
	}
	return c
}

// Add returns the elementwise sum of two counts.
func (c ClassCounts) Add(o ClassCounts) ClassCounts {
	return ClassCounts{
		WithMask:      c.WithMask + o.WithMask,
		WithoutMask:   c.WithoutMask + o.WithoutMask,
		IncorrectMask: c.IncorrectMask + o.IncorrectMask,
		Unknown:       c.Unknown + o.Unknown,
	}
}

// Total is the number of detections counted.
func (c ClassCounts) Total() int {
	return c.WithMask + c.WithoutMask + c.IncorrectMask + c.Unknown
}

// Alert reports whether this batch must raise a user-facing alert. The
// aggregator only computes the condition; emitting the alert is the caller's
// job.
func (c ClassCounts) Alert() bool {
	return c.WithoutMask > 0
}

// SessionStats is the cumulative tally for one running session. Counts only
// ever grow; there is no reset short of a process restart.
type SessionStats struct {
	ClassCounts
	Captures int `json:"capture_count"`
}

// Accumulate folds one batch into the session. Captures advances once per
// batch, not per detection.
func (s SessionStats) Accumulate(batch ClassCounts) SessionStats {
	return SessionStats{
		ClassCounts: s.ClassCounts.Add(batch),
		Captures:    s.Captures + 1,
	}
}

// Tracker owns the mutable session aggregate. Batches from concurrent
// uploads may land in any order; each Apply is atomic.
type Tracker struct {
	mu      sync.Mutex
	session SessionStats
	started time.Time
}

func NewTracker() *Tracker {
	return &Tracker{started: time.Now()}
}

// Apply folds one batch of detections into the session and returns the batch
// counts plus the updated session snapshot.
func (t *Tracker) Apply(dets []model.Detection) (ClassCounts, SessionStats) {
	batch := Count(dets)

	t.mu.Lock()
	t.session = t.session.Accumulate(batch)
	snapshot := t.session
	t.mu.Unlock()

	return batch, snapshot
}

// Session returns the current cumulative stats.
func (t *Tracker) Session() SessionStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

// StartedAt reports when this session began.
func (t *Tracker) StartedAt() time.Time {
	return t.started
}
