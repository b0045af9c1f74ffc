package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	neturl "net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ZebulonRouseFrantzich/prokit/internal/config"
)

const (
	// DefaultTimeout bounds a whole transfer, headers and body included.
	DefaultTimeout = 300 * time.Second

	maxRedirects = 10
	partSuffix   = ".part"
)

// Result describes a completed download.
type Result struct {
	Path string
	Size uint64
}

// Fetcher streams a package from a URL to a local file.
// It never retries; the caller decides what a failure means.
type Fetcher struct {
	client  *resty.Client
	timeout time.Duration
	log     config.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the overall transfer budget.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.client.SetHeader("User-Agent", ua)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l config.Logger) Option {
	return func(f *Fetcher) {
		f.log = config.LoggerOrNop(l)
	}
}

// NewFetcher creates a fetcher with the default timeout.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  resty.New().SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects)),
		timeout: DefaultTimeout,
		log:     config.NopLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads url into destPath. The body is written to a ".part"
// file next to destPath and renamed into place only after the whole
// payload arrived. On any failure neither file is left behind.
//
// progress may be nil. It is called only when the server declares a
// content length.
func (f *Fetcher) Fetch(ctx context.Context, url, destPath string, progress ProgressFunc) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	f.log.Info("downloading package", "url", RedactURL(url), "dest", destPath)
	start := time.Now()

	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("request package: %w", err))
	}
	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		return nil, &HTTPError{StatusCode: resp.StatusCode(), URL: RedactURL(url)}
	}

	var total int64 = -1
	if resp.RawResponse != nil {
		total = resp.RawResponse.ContentLength
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	partPath := destPath + partSuffix
	part, err := os.Create(partPath)
	if err != nil {
		return nil, fmt.Errorf("create partial file: %w", err)
	}

	cleanupNeeded := true
	defer func() {
		part.Close()
		if cleanupNeeded {
			os.Remove(partPath)
			os.Remove(destPath)
		}
	}()

	pw := newProgressWriter(total, progress)
	written, err := io.Copy(io.MultiWriter(part, pw), body)
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("%w: %v", ErrIncomplete, err))
	}
	if total > 0 && written < total {
		return nil, fmt.Errorf("%w: received %d of %d bytes", ErrIncomplete, written, total)
	}
	if written == 0 {
		return nil, ErrEmptyPayload
	}

	if err := part.Close(); err != nil {
		return nil, fmt.Errorf("close partial file: %w", err)
	}
	if err := os.Rename(partPath, destPath); err != nil {
		return nil, fmt.Errorf("rename partial file: %w", err)
	}
	cleanupNeeded = false

	f.log.Info("download complete", "path", destPath, "bytes", written, "elapsed", time.Since(start).Round(time.Millisecond))

	return &Result{Path: destPath, Size: uint64(written)}, nil
}

// classify maps an exhausted transfer budget onto ErrTimeout and strips
// the signed query from transport errors.
func classify(ctx context.Context, err error) error {
	var urlErr *neturl.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = RedactURL(urlErr.URL)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
