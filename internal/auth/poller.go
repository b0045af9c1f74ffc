package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZebulonRouseFrantzich/prokit/internal/config"
)

const (
	// DefaultPollInterval is the wait between two status checks.
	DefaultPollInterval = 2 * time.Second
	// DefaultPollAttempts bounds the number of status checks (five minutes at the default interval).
	DefaultPollAttempts = 150
)

// StatusChecker performs one status check. *Client implements it.
type StatusChecker interface {
	Poll(ctx context.Context, sessionID string) (*PollResult, error)
}

// Poller drives a session to a terminal state by repeated status checks.
type Poller struct {
	checker     StatusChecker
	clock       Clock
	interval    time.Duration
	maxAttempts int
	log         config.Logger
}

// PollOption configures a Poller.
type PollOption func(*Poller)

// WithInterval sets the wait between status checks.
func WithInterval(d time.Duration) PollOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithMaxAttempts sets the default attempt budget.
func WithMaxAttempts(n int) PollOption {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithClock replaces the real clock.
func WithClock(c Clock) PollOption {
	return func(p *Poller) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l config.Logger) PollOption {
	return func(p *Poller) {
		p.log = config.LoggerOrNop(l)
	}
}

// NewPoller creates a poller with the default interval and budget.
func NewPoller(checker StatusChecker, opts ...PollOption) *Poller {
	p := &Poller{
		checker:     checker,
		clock:       RealClock{},
		interval:    DefaultPollInterval,
		maxAttempts: DefaultPollAttempts,
		log:         config.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// attempts returns the budget for one run. A positive maxWait overrides
// the configured attempt count.
func (p *Poller) attempts(maxWait time.Duration) int {
	if maxWait <= 0 {
		return p.maxAttempts
	}
	n := int((maxWait + p.interval - 1) / p.interval)
	return max(n, 1)
}

// RunUntilResolved polls session until it completes, fails, is
// cancelled through ctx, or the attempt budget runs out. It returns the
// download URL on success and leaves the session in its terminal state
// either way.
//
// Cancellation is checked before every status check, so a cancelled
// context never causes another request. The wait happens only between
// checks. A context deadline is reported as ErrTimedOut.
func (p *Poller) RunUntilResolved(ctx context.Context, session *Session, maxWait time.Duration) (string, error) {
	if session.Status.IsTerminal() {
		return "", fmt.Errorf("%w: session %s already %s", ErrInvalidTransition, session.ID, session.Status)
	}

	attempts := p.attempts(maxWait)
	log := p.log

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := p.clock.Sleep(ctx, p.interval); err != nil {
				return "", p.interrupted(session, err)
			}
		}

		if err := ctx.Err(); err != nil {
			return "", p.interrupted(session, err)
		}

		res, err := p.checker.Poll(ctx, session.ID)
		if err != nil {
			var rejected *RejectedError
			if errors.As(err, &rejected) {
				return "", p.reject(session, rejected)
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", p.interrupted(session, ctxErr)
			}

			if attempt == attempts-1 {
				_ = session.transition(StatusTimedOut)
				return "", fmt.Errorf("%w: last status check failed: %v", ErrTimedOut, err)
			}
			log.Warn("status check failed, will retry", "session", session.ID, "attempt", attempt+1, "error", err)
			continue
		}

		switch res.Status {
		case StatusCompleted:
			if res.DownloadURL == "" {
				session.ErrorCode = "empty_download_url"
				_ = session.transition(StatusFailed)
				return "", fmt.Errorf("%w: session completed without a download URL", ErrMalformedResponse)
			}
			session.DownloadURL = res.DownloadURL
			_ = session.transition(StatusCompleted)
			log.Info("session completed", "session", session.ID, "attempts", attempt+1)
			return res.DownloadURL, nil

		case StatusFailed:
			return "", p.reject(session, newRejectedError(res.ErrorCode))

		default:
			log.Debug("session pending", "session", session.ID, "attempt", attempt+1, "of", attempts)
		}
	}

	_ = session.transition(StatusTimedOut)
	log.Warn("session did not resolve in time", "session", session.ID, "attempts", attempts)
	return "", ErrTimedOut
}

func (p *Poller) reject(session *Session, err *RejectedError) error {
	session.ErrorCode = err.Code
	_ = session.transition(StatusFailed)
	p.log.Warn("session rejected", "session", session.ID, "code", err.Code, "reason", err.Reason.String())
	return err
}

// interrupted finishes a session whose context ended.
func (p *Poller) interrupted(session *Session, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		_ = session.transition(StatusTimedOut)
		return ErrTimedOut
	}
	_ = session.transition(StatusCancelled)
	p.log.Info("authorization cancelled", "session", session.ID)
	return ErrCancelled
}
