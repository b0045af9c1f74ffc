package transfer

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyPayload reports a transfer that completed with zero bytes.
	ErrEmptyPayload = errors.New("downloaded package is empty")

	// ErrIncomplete reports a body that ended before its declared length
	// or was aborted mid-stream.
	ErrIncomplete = errors.New("download incomplete")

	// ErrTimeout reports that the overall transfer budget elapsed.
	ErrTimeout = errors.New("download timed out")
)

// HTTPError is returned when the server answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("download failed: HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
