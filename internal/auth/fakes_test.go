package auth

import (
	"context"
	"errors"
	"time"
)

// scriptedChecker returns one scripted response per call. Calls past
// the end of the script repeat the last entry.
type scriptedChecker struct {
	script []pollStep
	calls  int
	ids    []string
}

type pollStep struct {
	result *PollResult
	err    error
}

func pending() pollStep { return pollStep{result: &PollResult{Status: StatusPending}} }

func completed(url string) pollStep {
	return pollStep{result: &PollResult{Status: StatusCompleted, DownloadURL: url}}
}

func failed(code string) pollStep {
	return pollStep{result: &PollResult{Status: StatusFailed, ErrorCode: code}}
}

func transient() pollStep {
	return pollStep{err: &NetworkError{StatusCode: 502, Err: errors.New("bad gateway")}}
}

func (c *scriptedChecker) Poll(_ context.Context, sessionID string) (*PollResult, error) {
	c.ids = append(c.ids, sessionID)
	step := c.script[min(c.calls, len(c.script)-1)]
	c.calls++
	return step.result, step.err
}

// fakeClock records sleeps without waiting. onSleep, when set, runs
// before each sleep returns and receives the 1-based sleep number.
type fakeClock struct {
	now     time.Time
	sleeps  []time.Duration
	onSleep func(n int)
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	if c.onSleep != nil {
		c.onSleep(len(c.sleeps))
	}
	return ctx.Err()
}

// fakeService combines a scripted start with a scripted checker.
type fakeService struct {
	scriptedChecker
	session  *Session
	startErr error
	started  int
	version  string
}

func (s *fakeService) Start(_ context.Context, version string) (*Session, error) {
	s.started++
	s.version = version
	if s.startErr != nil {
		return nil, s.startErr
	}
	return s.session, nil
}
