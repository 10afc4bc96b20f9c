// Package timeline keeps a bounded in-memory log of classified gesture
// records, queryable as one timestamp-descending merged sequence.
package timeline

import (
	"sort"
	"sync"

	"github.com/nixlim/touchtop/internal/gesture"
)

// DefaultMaxEntries is the per-kind capacity used when none is configured.
const DefaultMaxEntries = 100

// stamped pairs a record with its insertion sequence number, which breaks
// ordering ties between records carrying the same millisecond timestamp.
type stamped struct {
	rec gesture.Record
	seq uint64
}

// bucket is a fixed-capacity ring holding records of one kind. The oldest
// record is overwritten when the bucket is full. Not locked itself; the Log
// serializes access.
type bucket struct {
	items []stamped
	cap   int
	head  int // index of the oldest element
	count int // number of elements currently stored
}

func newBucket(capacity int) *bucket {
	if capacity < 1 {
		capacity = 1
	}
	return &bucket{
		items: make([]stamped, capacity),
		cap:   capacity,
	}
}

func (b *bucket) add(s stamped) {
	writePos := (b.head + b.count) % b.cap
	if b.count == b.cap {
		// Full: overwrite the oldest and advance head. The newest entry
		// is never the one evicted.
		b.items[b.head] = s
		b.head = (b.head + 1) % b.cap
	} else {
		b.items[writePos] = s
		b.count++
	}
}

// appendTo copies the bucket's contents, oldest first, onto dst.
func (b *bucket) appendTo(dst []stamped) []stamped {
	for i := 0; i < b.count; i++ {
		dst = append(dst, b.items[(b.head+i)%b.cap])
	}
	return dst
}

func (b *bucket) reset() {
	for i := range b.items {
		b.items[i] = stamped{}
	}
	b.head = 0
	b.count = 0
}

// Log is the bounded gesture history: at most maxEntries touch events and,
// independently, at most maxEntries swipe events. Eviction is strict FIFO
// within each kind. One mutex guards both buckets as a unit, so a snapshot
// never observes a half-applied clear. All methods are safe for concurrent
// use.
type Log struct {
	mu      sync.RWMutex
	touches *bucket
	swipes  *bucket
	seq     uint64
}

// NewLog creates a Log retaining up to maxEntries records per kind.
// Capacities below 1 are clamped to 1.
func NewLog(maxEntries int) *Log {
	return &Log{
		touches: newBucket(maxEntries),
		swipes:  newBucket(maxEntries),
	}
}

// Append inserts a record into its kind bucket, evicting that bucket's
// oldest record if it is full. Nil records are ignored.
func (l *Log) Append(rec gesture.Record) {
	if rec == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	s := stamped{rec: rec, seq: l.seq}

	switch rec.(type) {
	case gesture.TouchEvent:
		l.touches.add(s)
	case gesture.SwipeEvent:
		l.swipes.add(s)
	}
}

// Clear empties both buckets in one critical section.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.touches.reset()
	l.swipes.reset()
}

// Snapshot returns the merged contents of both buckets ordered by timestamp
// descending; records with equal timestamps order most-recently-inserted
// first. The merge is computed fresh from the buckets at call time and the
// returned slice is the caller's to keep.
func (l *Log) Snapshot() []gesture.Record {
	l.mu.RLock()
	merged := make([]stamped, 0, l.touches.count+l.swipes.count)
	merged = l.touches.appendTo(merged)
	merged = l.swipes.appendTo(merged)
	l.mu.RUnlock()

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].rec.Time() != merged[j].rec.Time() {
			return merged[i].rec.Time() > merged[j].rec.Time()
		}
		return merged[i].seq > merged[j].seq
	})

	out := make([]gesture.Record, len(merged))
	for i, s := range merged {
		out[i] = s.rec
	}
	return out
}

// Len returns the total number of records currently retained.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.touches.count + l.swipes.count
}

// Cap returns the per-kind capacity.
func (l *Log) Cap() int {
	return l.touches.cap
}
