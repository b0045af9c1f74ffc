package install

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/ZebulonRouseFrantzich/prokit/internal/auth"
	"github.com/ZebulonRouseFrantzich/prokit/internal/config"
	"github.com/ZebulonRouseFrantzich/prokit/internal/transfer"
)

// fakeService starts sessions with increasing ids and answers polls
// from a script; the last entry repeats.
type fakeService struct {
	startErr error
	polls    []*auth.PollResult
	pollErr  error
	started  int
	polled   int
}

func (s *fakeService) Start(_ context.Context, _ string) (*auth.Session, error) {
	s.started++
	if s.startErr != nil {
		return nil, s.startErr
	}
	return auth.NewSession(fmt.Sprintf("session-%d", s.started), time.Time{}), nil
}

func (s *fakeService) Poll(_ context.Context, _ string) (*auth.PollResult, error) {
	s.polled++
	if s.pollErr != nil {
		return nil, s.pollErr
	}
	return s.polls[min(s.polled-1, len(s.polls)-1)], nil
}

func completedWith(url string) []*auth.PollResult {
	return []*auth.PollResult{
		{Status: auth.StatusPending},
		{Status: auth.StatusCompleted, DownloadURL: url},
	}
}

type noSleep struct{}

func (noSleep) Now() time.Time { return time.Time{} }

func (noSleep) Sleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

// fakeFetcher writes payload to the destination like the real fetcher.
type fakeFetcher struct {
	payload []byte
	err     error
	urls    []string
	dests   []string
	ctxErrs []error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, dest string, progress transfer.ProgressFunc) (*transfer.Result, error) {
	f.urls = append(f.urls, url)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.dests = append(f.dests, dest)
	if f.err != nil {
		return nil, f.err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(dest, f.payload, 0644); err != nil {
		return nil, err
	}
	if progress != nil {
		progress(50)
		progress(100)
	}
	return &transfer.Result{Path: dest, Size: uint64(len(f.payload))}, nil
}

// fakeImporter records the package it was given and whether the file
// existed at that moment.
type fakeImporter struct {
	err     error
	paths   []string
	present bool
	ctxErrs []error
}

func (i *fakeImporter) Import(ctx context.Context, path string) error {
	i.paths = append(i.paths, path)
	i.ctxErrs = append(i.ctxErrs, ctx.Err())
	_, statErr := os.Stat(path)
	i.present = statErr == nil
	return i.err
}

type stageEvent struct {
	stage   Stage
	message string
}

type recorder struct {
	stages   []stageEvent
	progress []int
	opened   []string
	openErr  error
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnStage:    func(s Stage, msg string) { r.stages = append(r.stages, stageEvent{s, msg}) },
		OnProgress: func(p int) { r.progress = append(r.progress, p) },
		OpenURL: func(url string) error {
			r.opened = append(r.opened, url)
			return r.openErr
		},
	}
}

func (r *recorder) stageList() []Stage {
	out := make([]Stage, len(r.stages))
	for i, e := range r.stages {
		out[i] = e.stage
	}
	return out
}

func (r *recorder) last() stageEvent {
	return r.stages[len(r.stages)-1]
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.ProjectDir = t.TempDir()
	cfg.DownloadDir = t.TempDir()
	cfg.WebBase = "https://pro.example.test"
	return cfg
}

func newTestInstaller(cfg *config.Config, svc *fakeService, f *fakeFetcher, imp Importer) *Installer {
	return New(cfg, svc, f, imp,
		WithPollOptions(auth.WithClock(noSleep{})),
		WithRunID(func() string { return "run-1" }),
	)
}

func unityPackageBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var raw bytes.Buffer
	tw := tar.NewWriter(&raw)
	n := 0
	for logical, content := range files {
		n++
		group := fmt.Sprintf("guid%02d", n)
		for name, data := range map[string]string{"pathname": logical, "asset": content} {
			require.NoError(t, tw.WriteHeader(&tar.Header{
				Name:     group + "/" + name,
				Mode:     0644,
				Size:     int64(len(data)),
				Typeflag: tar.TypeReg,
				ModTime:  time.Unix(1700000000, 0),
				Format:   tar.FormatUSTAR,
			}))
			_, err := tw.Write([]byte(data))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())

	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	_, err := w.Write(raw.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return gz.Bytes()
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func mkdir(t *testing.T, parts ...string) string {
	t.Helper()

	dir := filepath.Join(parts...)
	require.NoError(t, os.MkdirAll(dir, 0755))
	return dir
}
