package content

import (
	"sync"
	"time"
)

// IDGenerator produces record identifiers.
type IDGenerator interface {
	Next() int64
}

// ClockIDs derives identifiers from the current time in milliseconds.
// Two calls within the same millisecond still get distinct, increasing ids.
type ClockIDs struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewClockIDs creates a clock-based generator.
func NewClockIDs() *ClockIDs {
	return &ClockIDs{now: time.Now}
}

func (g *ClockIDs) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// SequenceIDs hands out consecutive identifiers starting at a fixed value.
type SequenceIDs struct {
	mu   sync.Mutex
	next int64
}

// NewSequenceIDs creates a generator whose first id is start.
func NewSequenceIDs(start int64) *SequenceIDs {
	return &SequenceIDs{next: start}
}

func (g *SequenceIDs) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.next
	g.next++
	return id
}
