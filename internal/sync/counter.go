package sync

import "sync/atomic"

// Sequence hands out increasing ids starting at 1. Safe for concurrent use.
type Sequence interface {
	// Last returns the most recent id, 0 before the first Next.
	Last() int64
	Next() int64
}

func NewSequence() Sequence {
	return new(sequence)
}

type sequence struct {
	n atomic.Int64
}

func (s *sequence) Last() int64 { return s.n.Load() }

func (s *sequence) Next() int64 { return s.n.Add(1) }
