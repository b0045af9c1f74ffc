package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// State is the position of a Machine in one authorization run.
type State int

const (
	StateIdle State = iota
	StateStarting
	StatePolling
	StateCompleted
	StateFailed
	StateCancelled
	StateTimedOut
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StatePolling:
		return "polling"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the run is over.
func (s State) IsTerminal() bool {
	return s >= StateCompleted
}

// Service is the remote side of the handshake. *Client implements it.
type Service interface {
	StatusChecker
	Start(ctx context.Context, version string) (*Session, error)
}

// ErrWrongState is returned when a Machine method is called out of order.
var ErrWrongState = errors.New("authorization run in wrong state")

// Machine tracks one authorization run. It is single-use: a new run
// needs a new Machine. It is not safe for concurrent use.
type Machine struct {
	svc     Service
	poller  *Poller
	state   State
	session *Session
}

// NewMachine creates an idle machine. Options configure its poller.
func NewMachine(svc Service, opts ...PollOption) *Machine {
	return &Machine{
		svc:    svc,
		poller: NewPoller(svc, opts...),
		state:  StateIdle,
	}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Session returns a copy of the run's session, or nil before Start succeeds.
func (m *Machine) Session() *Session {
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

// Start creates the remote session. The caller routes the user to
// VerificationURL for the returned session.
func (m *Machine) Start(ctx context.Context, version string) (*Session, error) {
	if m.state != StateIdle {
		return nil, fmt.Errorf("%w: start from %s", ErrWrongState, m.state)
	}
	m.state = StateStarting

	session, err := m.svc.Start(ctx, version)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.Canceled):
			m.state = StateCancelled
			return nil, ErrCancelled
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			m.state = StateTimedOut
			return nil, ErrTimedOut
		}
		m.state = StateFailed
		return nil, err
	}

	m.session = session
	m.state = StatePolling
	return m.Session(), nil
}

// Resolve polls until the session reaches a terminal state and returns
// the download URL. maxWait, when positive, overrides the poller's
// attempt budget.
func (m *Machine) Resolve(ctx context.Context, maxWait time.Duration) (string, error) {
	if m.state != StatePolling {
		return "", fmt.Errorf("%w: resolve from %s", ErrWrongState, m.state)
	}

	url, err := m.poller.RunUntilResolved(ctx, m.session, maxWait)
	m.state = stateFor(m.session.Status)
	return url, err
}

func stateFor(s Status) State {
	switch s {
	case StatusCompleted:
		return StateCompleted
	case StatusFailed:
		return StateFailed
	case StatusCancelled:
		return StateCancelled
	case StatusTimedOut:
		return StateTimedOut
	default:
		return StatePolling
	}
}
