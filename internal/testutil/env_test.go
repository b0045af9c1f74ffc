package testutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZebulonRouseFrantzich/prokit/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	t.Setenv("PROKIT_API_BASE", "https://leaked.example")

	env := testutil.SetupTestEnv(t)

	_, set := os.LookupEnv("PROKIT_API_BASE")
	assert.False(t, set, "inherited PROKIT_ variables are cleared")
	assert.Equal(t, env.Downloads, os.Getenv("PROKIT_DOWNLOAD_DIR"))
	assert.Equal(t, env.Home, os.Getenv("HOME"))

	for _, dir := range []string{env.Home, env.Work, env.Project, env.Downloads} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir(), dir)
	}

	wd, err := os.Getwd()
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(env.Work)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(wd)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
