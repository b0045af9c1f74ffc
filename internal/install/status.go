package install

import (
	"errors"
	"fmt"

	"github.com/ZebulonRouseFrantzich/prokit/internal/archive"
	"github.com/ZebulonRouseFrantzich/prokit/internal/auth"
	"github.com/ZebulonRouseFrantzich/prokit/internal/transfer"
)

// StatusMessage renders the outcome of a run as a single status line.
func StatusMessage(err error) string {
	if err == nil {
		return "Installation complete"
	}

	var rejected *auth.RejectedError
	var httpErr *transfer.HTTPError

	switch {
	case errors.As(err, &rejected):
		if msg := rejected.Reason.Message(); msg != "" {
			return "Error: " + msg
		}
		return "Error: " + rejected.Code
	case errors.Is(err, auth.ErrCancelled):
		return "Authentication cancelled"
	case errors.Is(err, auth.ErrTimedOut):
		return "Authentication timed out. Please try again."
	case errors.Is(err, auth.ErrMalformedResponse):
		return "Error: the authorization service sent an invalid response"
	case errors.Is(err, auth.ErrServiceUnavailable):
		return "Error: could not start authentication, the service is unavailable"
	case errors.As(err, &httpErr):
		return fmt.Sprintf("Error: download failed (HTTP %d)", httpErr.StatusCode)
	case errors.Is(err, transfer.ErrEmptyPayload):
		return "Error: downloaded package is empty"
	case errors.Is(err, transfer.ErrIncomplete):
		return "Error: download was interrupted"
	case errors.Is(err, transfer.ErrTimeout):
		return "Error: download timed out"
	case errors.Is(err, archive.ErrCorruptArchive):
		return "Error: package archive is corrupt"
	case errors.Is(err, ErrNoImporter):
		return "Error: package needs the native importer, but no import command is configured"
	default:
		return "Error: " + redactSensitiveInfo(err.Error())
	}
}

// Hint returns a follow-up URL for err, or "".
func Hint(err error) string {
	var rejected *auth.RejectedError
	if errors.As(err, &rejected) {
		return rejected.Reason.Hint()
	}
	return ""
}
