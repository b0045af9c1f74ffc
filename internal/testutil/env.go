// Package testutil isolates tests from the developer's own prokit setup.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Env holds the isolated directories created by SetupTestEnv.
type Env struct {
	Home      string
	Work      string
	Project   string
	Downloads string
}

// SetupTestEnv gives the test a private home, working directory, Unity
// project and download directory, and clears every PROKIT_* variable
// inherited from the parent process so a developer's .env or config file
// never leaks into a run. PROKIT_DOWNLOAD_DIR points at Env.Downloads.
//
// Everything is restored when the test ends. Tests using it cannot run
// in parallel.
func SetupTestEnv(t *testing.T) Env {
	t.Helper()

	tmpDir := t.TempDir()
	env := Env{
		Home:      filepath.Join(tmpDir, "home"),
		Work:      filepath.Join(tmpDir, "work"),
		Project:   filepath.Join(tmpDir, "project"),
		Downloads: filepath.Join(tmpDir, "downloads"),
	}

	for _, dir := range []string{env.Home, env.Work, env.Project, env.Downloads} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "PROKIT_") {
			// Setenv registers the restore; Unsetenv makes it absent.
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}

	t.Setenv("HOME", env.Home)
	t.Setenv("USERPROFILE", env.Home)
	t.Setenv("PROKIT_DOWNLOAD_DIR", env.Downloads)
	t.Chdir(env.Work)

	return env
}
