// Package session provides last-request-wins sequencing for async recomputation.
package session

import "sync/atomic"

// Ticket tags one request. Only the most recently issued ticket is current.
type Ticket uint64

type Sequencer struct {
	last atomic.Uint64
}

func (s *Sequencer) Next() Ticket {
	return Ticket(s.last.Add(1))
}

func (s *Sequencer) IsCurrent(t Ticket) bool {
	return t != 0 && uint64(t) == s.last.Load()
}

func (s *Sequencer) Latest() Ticket {
	return Ticket(s.last.Load())
}
