package install

import (
	"time"

	"github.com/ZebulonRouseFrantzich/prokit/internal/archive"
	"github.com/ZebulonRouseFrantzich/prokit/internal/transfer"
)

// Stage is a step of an install run reported through Hooks.
type Stage int

const (
	StageStarting Stage = iota
	StagePolling
	StageDownloading
	StageInstalling
	StageComplete
	StageFailed
	StageCancelled
)

// String returns the string representation of the stage
func (s Stage) String() string {
	switch s {
	case StageStarting:
		return "starting"
	case StagePolling:
		return "polling"
	case StageDownloading:
		return "downloading"
	case StageInstalling:
		return "installing"
	case StageComplete:
		return "complete"
	case StageFailed:
		return "failed"
	case StageCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the run is over.
func (s Stage) IsTerminal() bool {
	return s >= StageComplete
}

// Outcome tells the caller where the package contents went.
type Outcome int

const (
	// OutcomeNone means the run did not get as far as installing.
	OutcomeNone Outcome = iota
	// OutcomeExtracted means files were written into Result.Target.
	OutcomeExtracted
	// OutcomeFellBackToNativeImport means the package was handed to the
	// native Importer, so files live wherever it puts them.
	OutcomeFellBackToNativeImport
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeExtracted:
		return "extracted"
	case OutcomeFellBackToNativeImport:
		return "native_import"
	default:
		return "none"
	}
}

// Hooks receive status from a run. Every field is optional. Hooks are
// called on the goroutine running Install; hosts with a UI thread must
// marshal them.
type Hooks struct {
	// OnStage is called at every stage transition with a status line.
	OnStage func(stage Stage, message string)
	// OnProgress receives download progress in tens of percent.
	OnProgress transfer.ProgressFunc
	// OpenURL opens the verification link, typically in a browser.
	OpenURL func(url string) error
}

func (h Hooks) stage(s Stage, msg string) {
	if h.OnStage != nil {
		h.OnStage(s, msg)
	}
}

// Result describes a finished run. Install returns it even on failure
// with whatever the run learned before stopping.
type Result struct {
	RunID           string
	SessionID       string
	VerificationURL string
	Outcome         Outcome
	Target          *Target
	Format          archive.Format
	Files           int
	Bytes           uint64
	Duration        time.Duration
}
