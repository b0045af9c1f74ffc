package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ZebulonRouseFrantzich/prokit/internal/archive"
	"github.com/ZebulonRouseFrantzich/prokit/internal/auth"
	"github.com/ZebulonRouseFrantzich/prokit/internal/config"
	"github.com/ZebulonRouseFrantzich/prokit/internal/transfer"
)

// Fetcher downloads a package. *transfer.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url, destPath string, progress transfer.ProgressFunc) (*transfer.Result, error)
}

// Installer runs the install pipeline. One Installer can serve many
// runs, but runs must not overlap; callers serialize them (see the lock
// package).
type Installer struct {
	cfg      *config.Config
	svc      auth.Service
	fetcher  Fetcher
	importer Importer
	pollOpts []auth.PollOption
	log      config.Logger
	newRunID func() string
}

// Option configures an Installer.
type Option func(*Installer)

// WithLogger sets the logger.
func WithLogger(l config.Logger) Option {
	return func(i *Installer) {
		i.log = config.LoggerOrNop(l)
	}
}

// WithPollOptions adds options for the authorization poller of every run.
func WithPollOptions(opts ...auth.PollOption) Option {
	return func(i *Installer) {
		i.pollOpts = append(i.pollOpts, opts...)
	}
}

// WithRunID replaces the run identifier generator.
func WithRunID(fn func() string) Option {
	return func(i *Installer) {
		if fn != nil {
			i.newRunID = fn
		}
	}
}

// New creates an Installer. importer may be nil, in which case runs
// that need the native importer fail with ErrNoImporter.
func New(cfg *config.Config, svc auth.Service, fetcher Fetcher, importer Importer, opts ...Option) *Installer {
	i := &Installer{
		cfg:      cfg,
		svc:      svc,
		fetcher:  fetcher,
		importer: importer,
		log:      config.NopLogger(),
		newRunID: uuid.NewString,
	}
	i.pollOpts = []auth.PollOption{
		auth.WithInterval(cfg.Poll.Interval),
		auth.WithMaxAttempts(cfg.Poll.MaxAttempts),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.pollOpts = append(i.pollOpts, auth.WithLogger(i.log))
	return i
}

// Install authorizes, downloads and installs the package for version
// (the configured version when empty). Every call starts a new session.
//
// Stage changes and progress are reported through hooks. The returned
// Result is never nil; on failure it holds what the run learned before
// stopping and the error can be rendered with StatusMessage.
func (i *Installer) Install(ctx context.Context, version string, hooks Hooks) (*Result, error) {
	if version == "" {
		version = i.cfg.Version
	}

	result := &Result{RunID: i.newRunID()}
	started := time.Now()
	i.log.Info("install started", "run", result.RunID, "version", version)

	err := i.run(ctx, version, hooks, result)
	result.Duration = time.Since(started)

	switch {
	case err == nil:
		i.log.Info("install finished", "run", result.RunID, "outcome", result.Outcome.String(),
			"files", result.Files, "elapsed", result.Duration.Round(time.Millisecond))
		hooks.stage(StageComplete, completeMessage(result))
	case errors.Is(err, auth.ErrCancelled):
		i.log.Info("install cancelled", "run", result.RunID)
		hooks.stage(StageCancelled, StatusMessage(err))
	default:
		i.log.Error("install failed", "run", result.RunID, "error", err)
		hooks.stage(StageFailed, StatusMessage(err))
	}

	return result, err
}

func (i *Installer) run(ctx context.Context, version string, hooks Hooks, result *Result) error {
	machine := auth.NewMachine(i.svc, i.pollOpts...)

	hooks.stage(StageStarting, "Starting authentication...")
	session, err := machine.Start(ctx, version)
	if err != nil {
		return err
	}
	result.SessionID = session.ID
	result.VerificationURL = auth.VerificationURL(i.cfg.WebBase, session.ID, version)
	i.openVerification(hooks, result.VerificationURL)

	hooks.stage(StagePolling, "Waiting for authorization in your browser...")
	url, err := machine.Resolve(ctx, 0)
	if err != nil {
		return err
	}

	// Cancellation is honored only while waiting for authorization. Once
	// the download starts it runs to completion under its own timeout.
	work := context.WithoutCancel(ctx)

	hooks.stage(StageDownloading, "Downloading package... (this may take a few minutes)")
	dest := filepath.Join(i.cfg.DownloadDir, downloadPrefix+result.RunID+downloadExtension(url))
	defer i.removeDownload(dest)

	downloaded, err := i.fetcher.Fetch(work, url, dest, hooks.OnProgress)
	if err != nil {
		return err
	}
	if downloaded.Size == 0 {
		return transfer.ErrEmptyPayload
	}
	result.Bytes = downloaded.Size

	hooks.stage(StageInstalling, "Installing package...")
	return i.place(work, downloaded.Path, result)
}

// place decodes the package into the resolved target or hands it to
// the native importer.
func (i *Installer) place(ctx context.Context, path string, result *Result) error {
	format, err := archive.DetectFormat(path)
	if err != nil {
		return err
	}
	result.Format = format

	target, ok := ResolveTarget(i.cfg.ProjectDir, i.cfg.PackageNames)
	if !ok {
		i.log.Warn("package directory not found, using native import", "run", result.RunID, "project", i.cfg.ProjectDir)
		return i.nativeImport(ctx, path, result)
	}
	result.Target = target
	i.log.Info("installing to package directory", "run", result.RunID, "dir", target.Dir,
		"source", target.Source.String(), "format", format.String())

	switch format {
	case archive.FormatZip:
		stats, err := archive.ExtractZip(path, target.Dir, i.log)
		if err != nil {
			return err
		}
		i.extracted(result, stats)
		return nil

	case archive.FormatUnityPackage:
		stats, err := archive.ExtractUnityPackage(path, target.Dir, archive.UnityOptions{
			Grouping:   archive.PathnameGrouping{Root: i.cfg.AssetsPrefix},
			StagingDir: i.cfg.DownloadDir,
			Log:        i.log,
		})
		if err != nil {
			i.log.Warn("package extraction failed, using native import", "run", result.RunID, "error", err)
			return i.nativeImport(ctx, path, result)
		}
		i.extracted(result, stats)
		return nil

	default:
		i.log.Warn("unrecognized package format, using native import", "run", result.RunID)
		return i.nativeImport(ctx, path, result)
	}
}

func (i *Installer) extracted(result *Result, stats archive.Stats) {
	result.Outcome = OutcomeExtracted
	result.Files = stats.Files
}

func (i *Installer) nativeImport(ctx context.Context, path string, result *Result) error {
	if i.importer == nil {
		return ErrNoImporter
	}
	if err := i.importer.Import(ctx, path); err != nil {
		return err
	}
	result.Outcome = OutcomeFellBackToNativeImport
	return nil
}

func (i *Installer) openVerification(hooks Hooks, url string) {
	if hooks.OpenURL == nil {
		return
	}
	if err := hooks.OpenURL(url); err != nil {
		i.log.Warn("could not open verification link", "error", err)
	}
}

func (i *Installer) removeDownload(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		i.log.Warn("failed to remove downloaded package", "path", path, "error", err)
	}
}

// downloadExtension picks the local file extension from the download URL.
func downloadExtension(url string) string {
	if strings.Contains(strings.ToLower(url), ".zip") {
		return archive.FormatZip.Extension()
	}
	return archive.FormatUnityPackage.Extension()
}

func completeMessage(r *Result) string {
	switch r.Outcome {
	case OutcomeExtracted:
		return fmt.Sprintf("Installation complete: %d files installed to %s", r.Files, r.Target.Dir)
	case OutcomeFellBackToNativeImport:
		return "Installation complete: package imported with the native importer"
	default:
		return "Installation complete"
	}
}
