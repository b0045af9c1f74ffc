package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ZebulonRouseFrantzich/prokit/internal/config"
)

const (
	startPath = "/startUnityAuth"
	checkPath = "/checkUnityAuth"

	// DefaultRequestTimeout bounds a single control call.
	DefaultRequestTimeout = 30 * time.Second
)

// Callable function envelope: requests wrap their payload in "data",
// successes wrap theirs in "result", failures carry "error".
type callableRequest[T any] struct {
	Data T `json:"data"`
}

type callableResponse[T any] struct {
	Result *T `json:"result"`
}

type callableError struct {
	Error *struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

type startRequest struct {
	Version string `json:"version"`
}

type startResult struct {
	SessionID string `json:"sessionId"`
}

type checkRequest struct {
	SessionID string `json:"sessionId"`
}

type checkResult struct {
	Status      string `json:"status"`
	DownloadURL string `json:"downloadUrl"`
	Error       string `json:"error"`
}

// PollResult is the outcome of a single status check.
type PollResult struct {
	Status      Status
	DownloadURL string
	ErrorCode   string
}

// Client talks to the authorization service. Each method performs
// exactly one request; retry policy belongs to the Poller.
type Client struct {
	http  *resty.Client
	clock Clock
	log   config.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.http.SetHeader("User-Agent", ua)
		}
	}
}

// WithRequestTimeout bounds each request.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithClientClock sets the clock used to stamp new sessions.
func WithClientClock(clock Clock) ClientOption {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(l config.Logger) ClientOption {
	return func(c *Client) {
		c.log = config.LoggerOrNop(l)
	}
}

// NewClient creates a client for the service rooted at apiBase.
func NewClient(apiBase string, opts ...ClientOption) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(apiBase, "/")).
			SetTimeout(DefaultRequestTimeout).
			SetHeader("Content-Type", "application/json"),
		clock: RealClock{},
		log:   config.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start creates a session for the requested package version.
func (c *Client) Start(ctx context.Context, version string) (*Session, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(callableRequest[startRequest]{Data: startRequest{Version: version}}).
		Post(startPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	if !resp.IsSuccess() {
		c.log.Error("session start rejected", "status", resp.StatusCode(), "body", string(resp.Body()))
		return nil, fmt.Errorf("%w: HTTP %d%s", ErrServiceUnavailable, resp.StatusCode(), errorDetail(resp.Body()))
	}

	var wrapper callableResponse[startResult]
	if err := json.Unmarshal(resp.Body(), &wrapper); err != nil {
		return nil, fmt.Errorf("%w: decode session: %v", ErrMalformedResponse, err)
	}
	if wrapper.Result == nil || wrapper.Result.SessionID == "" {
		return nil, fmt.Errorf("%w: no session id", ErrMalformedResponse)
	}

	session := NewSession(wrapper.Result.SessionID, c.clock.Now())
	c.log.Debug("session created", "session", session.ID, "version", version)

	return session, nil
}

// Poll checks a session once.
//
// A non-2xx answer carrying a decodable error body is a terminal
// *RejectedError. Every other failure (transport, non-2xx without an
// error body, an undecodable success body) is a *NetworkError.
func (c *Client) Poll(ctx context.Context, sessionID string) (*PollResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(callableRequest[checkRequest]{Data: checkRequest{SessionID: sessionID}}).
		Post(checkPath)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if !resp.IsSuccess() {
		var ce callableError
		if json.Unmarshal(resp.Body(), &ce) == nil && ce.Error != nil {
			return nil, newRejectedError(ce.Error.Message)
		}
		return nil, &NetworkError{
			StatusCode: resp.StatusCode(),
			Err:        errors.New("unexpected response from status endpoint"),
		}
	}

	var wrapper callableResponse[checkResult]
	if err := json.Unmarshal(resp.Body(), &wrapper); err != nil {
		return nil, &NetworkError{StatusCode: resp.StatusCode(), Err: fmt.Errorf("decode status: %w", err)}
	}
	if wrapper.Result == nil {
		return nil, &NetworkError{StatusCode: resp.StatusCode(), Err: errors.New("status response has no result")}
	}

	return &PollResult{
		Status:      parseStatus(wrapper.Result.Status),
		DownloadURL: wrapper.Result.DownloadURL,
		ErrorCode:   wrapper.Result.Error,
	}, nil
}

// errorDetail extracts the service's error message for inclusion in a
// wrapped error, or returns "".
func errorDetail(body []byte) string {
	var ce callableError
	if json.Unmarshal(body, &ce) != nil || ce.Error == nil {
		return ""
	}
	if ce.Error.Status != "" {
		return fmt.Sprintf(": %s (%s)", ce.Error.Message, ce.Error.Status)
	}
	return ": " + ce.Error.Message
}
