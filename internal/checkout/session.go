package checkout

import (
	"context"
	"sync"

	"github.com/phenrril/storefront/internal/session"
)

// Session holds the live cart state for one shopper. Collaborator responses
// are applied only if no newer change happened since the request was issued.
type Session struct {
	mu    sync.Mutex
	state State
	seq   session.Sequencer
}

type Outcome struct {
	State   State
	Applied bool
	Err     error
}

func NewSession(initial State) *Session {
	return &Session{state: initial}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies a synchronous change. It supersedes every in-flight request.
func (s *Session) Dispatch(a Action) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq.Next()
	next, err := Reduce(s.state, a)
	if err != nil {
		return s.state, err
	}
	s.state = next
	return next, nil
}

// Begin issues a ticket for an async request made against the current state.
func (s *Session) Begin() (session.Ticket, State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq.Next(), s.state
}

// Commit applies a only when t is still the latest ticket.
func (s *Session) Commit(t session.Ticket, a Action) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seq.IsCurrent(t) {
		return Outcome{State: s.state}
	}
	next, err := Reduce(s.state, a)
	if err != nil {
		return Outcome{State: s.state, Err: err}
	}
	s.state = next
	return Outcome{State: next, Applied: true}
}

// Go runs fetch in the background against a snapshot and commits its action if still current.
func (s *Session) Go(ctx context.Context, fetch func(ctx context.Context, snap State) (Action, error)) <-chan Outcome {
	t, snap := s.Begin()
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		a, err := fetch(ctx, snap)
		if err != nil {
			out <- Outcome{State: s.State(), Err: err}
			return
		}
		out <- s.Commit(t, a)
	}()
	return out
}
