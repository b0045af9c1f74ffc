package auth

import (
	"errors"
	"fmt"
	"time"
)

// Status is the server-side state of a session.
type Status int

const (
	StatusPending Status = iota
	StatusCompleted
	StatusFailed
	StatusCancelled
	StatusTimedOut
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s != StatusPending
}

// parseStatus maps the wire status. Anything the service does not call
// completed or failed is still pending.
func parseStatus(raw string) Status {
	switch raw {
	case "completed":
		return StatusCompleted
	case "failed":
		return StatusFailed
	default:
		return StatusPending
	}
}

// ErrInvalidTransition is returned when a session is asked to leave a
// terminal state or to return to pending.
var ErrInvalidTransition = errors.New("invalid session transition")

// Session is a server-tracked authorization handshake. It lives only in
// memory for the duration of one run.
type Session struct {
	ID          string
	CreatedAt   time.Time
	Status      Status
	DownloadURL string
	ErrorCode   string
}

// NewSession returns a pending session.
func NewSession(id string, createdAt time.Time) *Session {
	return &Session{ID: id, CreatedAt: createdAt, Status: StatusPending}
}

// transition moves the session forward. Status only ever leaves Pending once.
func (s *Session) transition(to Status) error {
	if s.Status.IsTerminal() || to == StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
	}
	s.Status = to
	return nil
}
