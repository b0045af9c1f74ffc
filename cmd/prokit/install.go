package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ZebulonRouseFrantzich/prokit/internal/auth"
	"github.com/ZebulonRouseFrantzich/prokit/internal/config"
	"github.com/ZebulonRouseFrantzich/prokit/internal/install"
	"github.com/ZebulonRouseFrantzich/prokit/internal/lock"
	"github.com/ZebulonRouseFrantzich/prokit/internal/platform"
	"github.com/ZebulonRouseFrantzich/prokit/internal/transfer"
)

const productName = "prokit"

type installOptions struct {
	version   string
	project   string
	noBrowser bool
}

// exitError carries a process exit code for a failure that has already
// been reported to the user.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func newInstallCmd() *cobra.Command {
	var opts installOptions

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Authorize, download and install the package",
		Long: `Start an authorization session, open the verification page in the
browser and wait for approval. Once approved the package is downloaded
and extracted into the project's package directory, or handed to the
configured import command when no package directory exists.

Press Ctrl+C while waiting for authorization to cancel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInstall(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.version, "version", "", "package version to install (default from config)")
	cmd.Flags().StringVar(&opts.project, "project", "", "Unity project directory (default from config)")
	cmd.Flags().BoolVar(&opts.noBrowser, "no-browser", false, "print the verification link instead of opening a browser")

	return cmd
}

func runInstall(cmd *cobra.Command, opts installOptions) error {
	ctx, stop := withInterrupt(cmd.Context())
	defer stop()

	if opts.project != "" {
		cfg.ProjectDir = opts.project
	}
	log := config.NewLogrusLogger(logrus.StandardLogger())

	lk, err := lock.Acquire(ctx, cfg.DownloadDir)
	if err != nil {
		if errors.Is(err, lock.ErrLockExists) {
			return fmt.Errorf("another install is already running in %s: %w", cfg.DownloadDir, err)
		}
		return fmt.Errorf("acquire install lock: %w", err)
	}
	lockPath := lk.Path()
	defer func() {
		if err := lk.Release(); err != nil {
			log.Warn("failed to release install lock", "path", lockPath, "error", err)
		}
	}()

	inst := newInstaller(cfg, userAgent(ctx, log), log)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("Installing Poiyomi Pro"))

	result, err := runWithRenderer(ctx, out, func(ctx context.Context, hooks install.Hooks) (*install.Result, error) {
		hooks.OpenURL = browserHook(opts.noBrowser, hooks.OpenURL)
		return inst.Install(ctx, opts.version, hooks)
	})

	if err != nil {
		if hint := install.Hint(err); hint != "" {
			fmt.Fprintln(out, warningStyle.Render("See "+hint))
		}
		if errors.Is(err, auth.ErrCancelled) {
			return &exitError{code: 130, err: err}
		}
		return &exitError{code: 1, err: err}
	}

	printSummary(out, result)
	return nil
}

// runWithRenderer runs fn on a worker goroutine and renders its hook
// events on the calling goroutine until fn returns.
func runWithRenderer(ctx context.Context, out io.Writer, fn func(context.Context, install.Hooks) (*install.Result, error)) (*install.Result, error) {
	events := make(chan event, 16)
	hooks := install.Hooks{
		OnStage: func(s install.Stage, msg string) {
			events <- event{stage: s, message: msg}
		},
		OnProgress: func(percent int) {
			events <- event{progress: true, percent: percent}
		},
		OpenURL: func(url string) error {
			events <- event{link: url}
			return nil
		},
	}

	var result *install.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(events)
		var err error
		result, err = fn(gctx, hooks)
		return err
	})

	r := newRenderer(out)
	for ev := range events {
		r.handle(ev)
	}
	r.endBar()

	return result, g.Wait()
}

// browserHook shows the link through show and, unless disabled, opens it.
func browserHook(noBrowser bool, show func(string) error) func(string) error {
	return func(url string) error {
		if show != nil {
			_ = show(url)
		}
		if noBrowser {
			return nil
		}
		return openBrowser(url)
	}
}

func printSummary(out io.Writer, r *install.Result) {
	if r == nil {
		return
	}
	if r.Target != nil && r.Outcome == install.OutcomeExtracted {
		fmt.Fprintf(out, "  target:   %s (%s)\n", r.Target.Dir, r.Target.Source)
	}
	fmt.Fprintf(out, "  format:   %s\n", r.Format)
	fmt.Fprintf(out, "  download: %s\n", formatBytes(r.Bytes))
	fmt.Fprintf(out, "  elapsed:  %s\n", r.Duration.Round(time.Second))
}

func newInstaller(cfg *config.Config, ua string, log config.Logger) *install.Installer {
	client := auth.NewClient(cfg.APIBase,
		auth.WithUserAgent(ua),
		auth.WithClientLogger(log),
	)
	fetcher := transfer.NewFetcher(
		transfer.WithTimeout(cfg.Transfer.Timeout),
		transfer.WithUserAgent(ua),
		transfer.WithLogger(log),
	)
	return install.New(cfg, client, fetcher, install.NewCommandImporter(cfg, log), install.WithLogger(log))
}

// userAgent describes this host to the service. Detection failures only
// shorten the string.
func userAgent(ctx context.Context, log config.Logger) string {
	info, err := platform.NewDetector().Detect(ctx)
	if err != nil {
		log.Debug("platform detection failed", "error", err)
		info = nil
	}
	return platform.UserAgent(productName, Version, info)
}
