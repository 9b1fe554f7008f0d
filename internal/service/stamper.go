package service

import (
	"sync"
	"time"
)

// Clock abstracts time.Now for tests
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RealClock returns the wall clock
func RealClock() Clock { return realClock{} }

// StampLayout is RFC 3339 with a fixed nine-digit fraction so stamps sort
// lexically in time order.
const StampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Stamper hands out strictly increasing UTC timestamps, even when the
// clock stalls or steps backwards.
type Stamper struct {
	clock Clock

	mu   sync.Mutex
	last time.Time
}

// NewStamper creates a Stamper over clock
func NewStamper(clock Clock) *Stamper {
	if clock == nil {
		clock = RealClock()
	}
	return &Stamper{clock: clock}
}

// Next returns a timestamp later than every one returned before
func (s *Stamper) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now().UTC()
	if !now.After(s.last) {
		now = s.last.Add(time.Nanosecond)
	}
	s.last = now
	return now
}
