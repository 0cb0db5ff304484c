package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_FileRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", ".app_history")

	l := NewList()
	require.NoError(t, ReadFile(path, l), "missing file is not an error")
	assert.Equal(t, 0, l.Len())

	l.Add("first", "second")
	require.NoError(t, WriteFile(path, l))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(filePerm), info.Mode().Perm())

	require.NoError(t, AppendFile(path, "third"))

	loaded := NewList()
	require.NoError(t, ReadFile(path, loaded))
	if diff := cmp.Diff([]string{"first", "second", "third"}, loaded.Entries()); diff != "" {
		t.Fatal(diff)
	}
}

func Test_ReadFileStifled(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\r\nc\n"), 0o600))

	l := NewList()
	l.Stifle(2)
	require.NoError(t, ReadFile(path, l))
	if diff := cmp.Diff([]string{"b", "c"}, l.Entries()); diff != "" {
		t.Fatal(diff)
	}
}

func Test_TruncateFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "history")
	require.NoError(t, AppendFile(path, "1", "2", "3", "4", "5"))

	require.NoError(t, TruncateFile(path, 10), "nothing to truncate")
	require.NoError(t, TruncateFile(path, 2))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "4\n5\n", string(b))

	require.NoError(t, TruncateFile(filepath.Join(dir, "missing"), 1))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temporary files are cleaned up")
	}
}

func Test_AppendFileLocked(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history")

	other := flock.New(path + ".lock")
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)

	err = AppendFile(path, "blocked")
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, other.Unlock())
	require.NoError(t, AppendFile(path, "ok"))
}
