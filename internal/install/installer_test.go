package install

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZebulonRouseFrantzich/prokit/internal/archive"
	"github.com/ZebulonRouseFrantzich/prokit/internal/auth"
	"github.com/ZebulonRouseFrantzich/prokit/internal/transfer"
)

func TestInstall_ExtractsUnityPackage(t *testing.T) {
	cfg := testConfig(t)
	pkgDir := mkdir(t, cfg.ProjectDir, "Packages", "com.poiyomi.pro")

	svc := &fakeService{polls: completedWith("https://cdn.example.test/pro.unitypackage?sig=abc")}
	fetcher := &fakeFetcher{payload: unityPackageBytes(t, map[string]string{
		"Assets/_PoiyomiShaders/Toon.shader": "shader",
		"Assets/_PoiyomiShaders/README.txt":  "readme",
	})}
	importer := &fakeImporter{}
	rec := &recorder{}

	res, err := newTestInstaller(cfg, svc, fetcher, importer).Install(context.Background(), "9.2", rec.hooks())
	require.NoError(t, err)

	assert.Equal(t, OutcomeExtracted, res.Outcome)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, "session-1", res.SessionID)
	assert.Equal(t, archive.FormatUnityPackage, res.Format)
	assert.Equal(t, 2, res.Files)
	require.NotNil(t, res.Target)
	assert.Equal(t, SourceLocal, res.Target.Source)

	assert.Equal(t, "shader", readFile(t, filepath.Join(pkgDir, "_PoiyomiShaders", "Toon.shader")))
	assert.Equal(t, "readme", readFile(t, filepath.Join(pkgDir, "_PoiyomiShaders", "README.txt")))

	assert.Equal(t, []Stage{StageStarting, StagePolling, StageDownloading, StageInstalling, StageComplete}, rec.stageList())
	assert.Equal(t, []string{"https://pro.example.test/unity-auth?sessionId=session-1&version=9.2"}, rec.opened)
	assert.Equal(t, res.VerificationURL, rec.opened[0])
	assert.Equal(t, []int{50, 100}, rec.progress)

	require.Len(t, fetcher.dests, 1)
	assert.Equal(t, filepath.Join(cfg.DownloadDir, "package_run-1.unitypackage"), fetcher.dests[0])
	assert.NoFileExists(t, fetcher.dests[0], "download removed after extraction")
	assert.Empty(t, importer.paths)
}

func TestInstall_ExtractsZipIntoPackageCache(t *testing.T) {
	cfg := testConfig(t)
	cacheDir := mkdir(t, cfg.ProjectDir, "Library", "PackageCache", "com.poiyomi.pro@9.2.0")

	svc := &fakeService{polls: completedWith("https://cdn.example.test/pro.zip?sig=abc")}
	fetcher := &fakeFetcher{payload: zipBytes(t, map[string]string{
		"Editor/":        "",
		"Editor/Tool.cs": "class Tool {}",
		"package.json":   "{}",
	})}
	rec := &recorder{}

	res, err := newTestInstaller(cfg, svc, fetcher, nil).Install(context.Background(), "", rec.hooks())
	require.NoError(t, err)

	assert.Equal(t, OutcomeExtracted, res.Outcome)
	assert.Equal(t, archive.FormatZip, res.Format)
	assert.Equal(t, SourceCache, res.Target.Source)
	assert.Equal(t, 2, res.Files)
	assert.Equal(t, "class Tool {}", readFile(t, filepath.Join(cacheDir, "Editor", "Tool.cs")))
	assert.True(t, filepath.Ext(fetcher.dests[0]) == ".zip")
	assert.NoFileExists(t, fetcher.dests[0])
	assert.Contains(t, rec.opened[0], "version=latest", "configured version used when none given")
}

func TestInstall_FallsBackToNativeImport(t *testing.T) {
	tests := []struct {
		name       string
		payload    func(t *testing.T) []byte
		withTarget bool
	}{
		{
			name:    "no_package_directory",
			payload: func(t *testing.T) []byte { return unityPackageBytes(t, map[string]string{"Assets/a.txt": "a"}) },
		},
		{
			name:       "corrupt_unitypackage",
			payload:    func(t *testing.T) []byte { return []byte{0x1f, 0x8b, 0x08, 0x00, 'j', 'u', 'n', 'k'} },
			withTarget: true,
		},
		{
			name:       "no_assets_in_package",
			payload:    func(t *testing.T) []byte { return unityPackageBytes(t, map[string]string{"Packages/other/x.cs": "x"}) },
			withTarget: true,
		},
		{
			name:       "unrecognized_format",
			payload:    func(t *testing.T) []byte { return []byte("<html>not a package</html>") },
			withTarget: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			if tt.withTarget {
				mkdir(t, cfg.ProjectDir, "Packages", "com.poiyomi.pro.installer")
			}

			svc := &fakeService{polls: completedWith("https://cdn.example.test/pro.unitypackage")}
			fetcher := &fakeFetcher{payload: tt.payload(t)}
			importer := &fakeImporter{}
			rec := &recorder{}

			res, err := newTestInstaller(cfg, svc, fetcher, importer).Install(context.Background(), "1.0", rec.hooks())
			require.NoError(t, err)

			assert.Equal(t, OutcomeFellBackToNativeImport, res.Outcome)
			assert.Equal(t, []string{fetcher.dests[0]}, importer.paths)
			assert.True(t, importer.present, "package must exist while importing")
			assert.NoFileExists(t, fetcher.dests[0], "download removed after import")
			assert.Equal(t, StageComplete, rec.last().stage)
		})
	}
}

func TestInstall_Failures(t *testing.T) {
	tests := []struct {
		name        string
		svc         *fakeService
		fetcher     *fakeFetcher
		importer    Importer
		target      bool
		cancel      bool
		wantErr     error
		wantStage   Stage
		wantMessage string
		wantFetch   bool
	}{
		{
			name:        "rejected_insufficient_tier",
			svc:         &fakeService{polls: []*auth.PollResult{{Status: auth.StatusFailed, ErrorCode: "insufficient_tier"}}},
			fetcher:     &fakeFetcher{},
			wantStage:   StageFailed,
			wantMessage: "Error: Insufficient Patreon tier (requires $10+)",
		},
		{
			name:        "service_unavailable",
			svc:         &fakeService{startErr: auth.ErrServiceUnavailable},
			fetcher:     &fakeFetcher{},
			wantErr:     auth.ErrServiceUnavailable,
			wantStage:   StageFailed,
			wantMessage: "Error: could not start authentication, the service is unavailable",
		},
		{
			name:        "cancelled",
			svc:         &fakeService{polls: completedWith("https://cdn.example.test/p.unitypackage")},
			cancel:      true,
			fetcher:     &fakeFetcher{},
			wantErr:     auth.ErrCancelled,
			wantStage:   StageCancelled,
			wantMessage: "Authentication cancelled",
		},
		{
			name:        "download_http_error",
			svc:         &fakeService{polls: completedWith("https://cdn.example.test/p.unitypackage")},
			fetcher:     &fakeFetcher{err: &transfer.HTTPError{StatusCode: 403}},
			wantStage:   StageFailed,
			wantMessage: "Error: download failed (HTTP 403)",
			wantFetch:   true,
		},
		{
			name:        "empty_download",
			svc:         &fakeService{polls: completedWith("https://cdn.example.test/p.unitypackage")},
			fetcher:     &fakeFetcher{payload: []byte{}},
			importer:    &fakeImporter{},
			target:      true,
			wantErr:     transfer.ErrEmptyPayload,
			wantStage:   StageFailed,
			wantMessage: "Error: downloaded package is empty",
			wantFetch:   true,
		},
		{
			name:        "corrupt_zip_is_terminal",
			svc:         &fakeService{polls: completedWith("https://cdn.example.test/p.zip")},
			fetcher:     &fakeFetcher{payload: []byte("PK\x03\x04 broken")},
			importer:    &fakeImporter{},
			target:      true,
			wantErr:     archive.ErrCorruptArchive,
			wantStage:   StageFailed,
			wantMessage: "Error: package archive is corrupt",
			wantFetch:   true,
		},
		{
			name:        "no_importer_configured",
			svc:         &fakeService{polls: completedWith("https://cdn.example.test/p.unitypackage")},
			fetcher:     &fakeFetcher{payload: []byte("unknown bytes")},
			wantErr:     ErrNoImporter,
			wantStage:   StageFailed,
			wantFetch:   true,
			wantMessage: "Error: package needs the native importer, but no import command is configured",
		},
		{
			name:      "importer_fails",
			svc:       &fakeService{polls: completedWith("https://cdn.example.test/p.unitypackage")},
			fetcher:   &fakeFetcher{payload: []byte("unknown bytes")},
			importer:  &fakeImporter{err: ErrImportFailed},
			wantErr:   ErrImportFailed,
			wantStage: StageFailed,
			wantFetch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			if tt.target {
				mkdir(t, cfg.ProjectDir, "Packages", "com.poiyomi.pro")
			}
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				cancel()
			}
			rec := &recorder{}

			res, err := newTestInstaller(cfg, tt.svc, tt.fetcher, tt.importer).Install(ctx, "1.0", rec.hooks())
			require.Error(t, err)
			require.NotNil(t, res)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			assert.Equal(t, OutcomeNone, res.Outcome)
			assert.Equal(t, tt.wantStage, rec.last().stage)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, rec.last().message)
				assert.Equal(t, tt.wantMessage, StatusMessage(err))
			}

			assert.Equal(t, tt.wantFetch, len(tt.fetcher.urls) > 0)
			for _, dest := range tt.fetcher.dests {
				assert.NoFileExists(t, dest)
			}
			entries, err := os.ReadDir(cfg.DownloadDir)
			require.NoError(t, err)
			assert.Empty(t, entries, "nothing left in the download directory")
		})
	}
}

func TestInstall_OpenURLFailureIsNotFatal(t *testing.T) {
	cfg := testConfig(t)
	mkdir(t, cfg.ProjectDir, "Packages", "com.poiyomi.pro")

	svc := &fakeService{polls: completedWith("https://cdn.example.test/p.unitypackage")}
	fetcher := &fakeFetcher{payload: unityPackageBytes(t, map[string]string{"Assets/a.txt": "a"})}
	rec := &recorder{openErr: errors.New("no browser")}

	res, err := newTestInstaller(cfg, svc, fetcher, nil).Install(context.Background(), "1.0", rec.hooks())
	require.NoError(t, err)
	assert.Equal(t, OutcomeExtracted, res.Outcome)
	assert.Len(t, rec.opened, 1)
}

func TestInstall_EveryRunStartsNewSession(t *testing.T) {
	cfg := testConfig(t)
	mkdir(t, cfg.ProjectDir, "Packages", "com.poiyomi.pro")

	svc := &fakeService{polls: []*auth.PollResult{{Status: auth.StatusFailed, ErrorCode: "not_a_patron"}}}
	inst := New(cfg, svc, &fakeFetcher{}, nil, WithPollOptions(auth.WithClock(noSleep{})))

	first, err := inst.Install(context.Background(), "1.0", Hooks{})
	require.Error(t, err)
	second, err := inst.Install(context.Background(), "1.0", Hooks{})
	require.Error(t, err)

	assert.Equal(t, 2, svc.started)
	assert.Equal(t, "session-1", first.SessionID)
	assert.Equal(t, "session-2", second.SessionID)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, "https://www.patreon.com/poiyomi", Hint(err))
}

func TestInstall_CancelAfterAuthorizationDoesNotInterrupt(t *testing.T) {
	t.Run("download_and_extraction", func(t *testing.T) {
		cfg := testConfig(t)
		pkgDir := mkdir(t, cfg.ProjectDir, "Packages", "com.poiyomi.pro")

		svc := &fakeService{polls: completedWith("https://cdn.example.test/pro.zip")}
		fetcher := &fakeFetcher{payload: zipBytes(t, map[string]string{"Shaders/Toon.shader": "shader"})}
		rec := &recorder{}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		hooks := rec.hooks()
		hooks.OnStage = func(s Stage, msg string) {
			rec.stages = append(rec.stages, stageEvent{s, msg})
			if s == StageDownloading {
				cancel()
			}
		}

		res, err := newTestInstaller(cfg, svc, fetcher, nil).Install(ctx, "1.0", hooks)
		require.NoError(t, err)

		assert.Equal(t, OutcomeExtracted, res.Outcome)
		assert.Equal(t, []error{nil}, fetcher.ctxErrs)
		assert.Equal(t, "shader", readFile(t, filepath.Join(pkgDir, "Shaders", "Toon.shader")))
		assert.Equal(t, StageComplete, rec.last().stage)
	})

	t.Run("native_import", func(t *testing.T) {
		cfg := testConfig(t)

		svc := &fakeService{polls: completedWith("https://cdn.example.test/pro.unitypackage")}
		fetcher := &fakeFetcher{payload: unityPackageBytes(t, map[string]string{"Assets/a.txt": "a"})}
		importer := &fakeImporter{}
		rec := &recorder{}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		hooks := rec.hooks()
		hooks.OnStage = func(s Stage, msg string) {
			rec.stages = append(rec.stages, stageEvent{s, msg})
			if s == StageInstalling {
				cancel()
			}
		}

		res, err := newTestInstaller(cfg, svc, fetcher, importer).Install(ctx, "1.0", hooks)
		require.NoError(t, err)

		assert.Equal(t, OutcomeFellBackToNativeImport, res.Outcome)
		assert.Equal(t, []error{nil}, importer.ctxErrs)
	})

	t.Run("stalled_transfer", func(t *testing.T) {
		cfg := testConfig(t)
		pkgDir := mkdir(t, cfg.ProjectDir, "Packages", "com.poiyomi.pro")
		payload := zipBytes(t, map[string]string{"Shaders/Toon.shader": strings.Repeat("x", 900)})

		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
			_, _ = w.Write(payload[:100])
			w.(http.Flusher).Flush()
			select {
			case <-release:
			case <-time.After(5 * time.Second):
			}
			_, _ = w.Write(payload[100:])
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		var once sync.Once
		rec := &recorder{}
		hooks := rec.hooks()
		hooks.OnProgress = func(int) {
			once.Do(func() {
				cancel()
				close(release)
			})
		}

		svc := &fakeService{polls: completedWith(srv.URL + "/pro.zip")}
		inst := New(cfg, svc, transfer.NewFetcher(), nil,
			WithPollOptions(auth.WithClock(noSleep{})),
			WithRunID(func() string { return "run-1" }),
		)

		res, err := inst.Install(ctx, "1.0", hooks)
		require.NoError(t, err)

		assert.Equal(t, OutcomeExtracted, res.Outcome)
		assert.Equal(t, uint64(len(payload)), res.Bytes)
		assert.Len(t, readFile(t, filepath.Join(pkgDir, "Shaders", "Toon.shader")), 900)
		assert.Equal(t, StageComplete, rec.last().stage)
	})
}

func TestDownloadExtension(t *testing.T) {
	assert.Equal(t, ".zip", downloadExtension("https://cdn.example.test/a/Pro.ZIP?x=1"))
	assert.Equal(t, ".zip", downloadExtension("https://cdn.example.test/get?file=pro.zip"))
	assert.Equal(t, ".unitypackage", downloadExtension("https://cdn.example.test/a/pro.unitypackage"))
	assert.Equal(t, ".unitypackage", downloadExtension("https://cdn.example.test/download/123"))
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
