package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}

func TestEnsureParentDir_CreatesDirectory(t *testing.T) {
	tmp := t.TempDir()

	got, err := EnsureParentDir(filepath.Join(tmp, "data", "vault.db"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(tmp, "data", "vault.db"), got)

	fi, err := os.Stat(filepath.Join(tmp, "data"))
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}
}

func TestEnsureParentDir_RelativeAndIdempotent(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	first, err := EnsureParentDir("vault.db")
	require.NoError(t, err)

	second, err := EnsureParentDir("vault.db")
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.True(t, filepath.IsAbs(first))
	require.Equal(t, "vault.db", filepath.Base(first))
}

func TestEnsureParentDir_FailsIfFileBlocksTheDirectory(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	require.NoError(t, os.WriteFile("data", []byte("x"), 0o660))

	_, err := EnsureParentDir(filepath.Join("data", "vault.db"))
	require.Error(t, err, "should fail when a file exists where the directory should be")
}
