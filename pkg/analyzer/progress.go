package analyzer

import (
	"context"
	"sync/atomic"
)

// ProgressFunc receives the number of completed items, the expected total
// and the item that just completed.
type ProgressFunc func(done, total int, item string)

// Tracker counts completed work items and forwards every completion to a
// callback. It is safe for concurrent use.
type Tracker struct {
	expected atomic.Int64
	done     atomic.Int64
	notify   ProgressFunc
}

// NewTracker creates a tracker. fn may be nil.
func NewTracker(fn ProgressFunc) *Tracker {
	return &Tracker{notify: fn}
}

// Expect raises the expected total by n. Analyzers call it once they know how
// many files (or types) a stage will visit.
func (t *Tracker) Expect(n int) {
	t.expected.Add(int64(n))
}

// Done marks item as completed.
func (t *Tracker) Done(item string) {
	done := t.done.Add(1)
	if t.notify != nil {
		t.notify(int(done), int(t.expected.Load()), item)
	}
}

// Completed returns the number of items marked done.
func (t *Tracker) Completed() int {
	return int(t.done.Load())
}

// Expected returns the expected total.
func (t *Tracker) Expected() int {
	return int(t.expected.Load())
}

type trackerKey struct{}

// WithTracker attaches t to ctx.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext returns the tracker attached to ctx, or nil.
func TrackerFromContext(ctx context.Context) *Tracker {
	t, _ := ctx.Value(trackerKey{}).(*Tracker)
	return t
}
