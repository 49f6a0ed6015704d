package sequence

import "sync/atomic"

// Sequence issues monotonically increasing int64 identifiers.
// Instances are injected into their owners; identifiers are unique per
// instance, never process-global.
type Sequence struct {
	last int64
}

// New returns a sequence whose first Next call yields start+1.
func New(start int64) *Sequence {
	return &Sequence{last: start}
}

// Next reserves and returns the next identifier.
func (s *Sequence) Next() int64 {
	return atomic.AddInt64(&s.last, 1)
}

// Current returns the most recently issued identifier.
func (s *Sequence) Current() int64 {
	return atomic.LoadInt64(&s.last)
}

// Seed raises the sequence floor so subsequent identifiers exceed min.
// Used when restoring a working set that already contains identifiers.
func (s *Sequence) Seed(min int64) {
	for {
		cur := atomic.LoadInt64(&s.last)
		if cur >= min {
			return
		}
		if atomic.CompareAndSwapInt64(&s.last, cur, min) {
			return
		}
	}
}
