package upline

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initWithInput(t *testing.T, o Opts, input string) *bytes.Buffer {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = r.Close()
	})

	_, err = w.WriteString(input)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	errOut := &bytes.Buffer{}
	o.Input = r
	o.Output = io.Discard
	o.ErrOutput = errOut
	if o.HistoryPath == "" {
		o.HistoryPath = filepath.Join(t.TempDir(), "history")
	}

	require.NoError(t, Init(o))
	t.Cleanup(func() {
		_ = Close()
	})

	return errOut
}

func Test_NotInitialized(t *testing.T) {
	require.NoError(t, Close())

	_, err := Readline("> ")
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, AddHistory("x"), ErrNotInitialized)
	assert.Zero(t, HistoryLength())
	assert.Nil(t, Complete("x", 0, 1))
}

func Test_Readline(t *testing.T) {
	initWithInput(t, Opts{}, "first\nsecond\n")

	line, err := Readline("> ")
	require.NoError(t, err)
	assert.Equal(t, "first", line)

	line, err = Readline("> ")
	require.NoError(t, err)
	assert.Equal(t, "second", line)

	_, err = Readline("> ")
	assert.ErrorIs(t, err, io.EOF)
}

func Test_ReadlineExpandHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	require.NoError(t, os.WriteFile(path, []byte("echo hi\nls -l /tmp\n"), 0o600))

	errOut := initWithInput(t, Opts{
		Name:          "app",
		HistoryPath:   path,
		ExpandHistory: true,
	}, "!!\n!echo:p\nplain\n!nope\n")

	assert.Equal(t, 2, HistoryLength())

	line, err := Readline("> ")
	require.NoError(t, err)
	assert.Equal(t, "ls -l /tmp", line)

	line, err = Readline("> ")
	require.NoError(t, err)
	assert.Equal(t, "plain", line)
	assert.Equal(t, "app: echo hi\n", errOut.String())

	_, err = Readline("> ")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "history: "), err.Error())
	assert.False(t, errors.Is(err, ErrInterrupt))
}

func Test_AddHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "history")
	initWithInput(t, Opts{HistoryPath: path, MaxHistoryLen: 1}, "")

	require.NoError(t, AddHistory("a"))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\n", string(b))

	require.NoError(t, AddHistory("b"))
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(b))

	// stifled in memory
	assert.Equal(t, 1, HistoryLength())
}

func Test_AddHistoryTruncates(t *testing.T) {
	old := truncateThreshold
	truncateThreshold = 4
	t.Cleanup(func() { truncateThreshold = old })

	path := filepath.Join(t.TempDir(), "history")
	initWithInput(t, Opts{HistoryPath: path, MaxHistoryLen: 1}, "")

	for _, l := range []string{"a", "b", "c"} {
		require.NoError(t, AddHistory(l))
	}
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc\n", string(b))

	require.NoError(t, AddHistory("d"))
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "d\n", string(b))

	require.NoError(t, AddHistory("e"))
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "d\ne\n", string(b))
}

func Test_DefaultHistoryPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	p, err := DefaultHistoryPath("myapp")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".myapp_history"), p)

	p, err = DefaultHistoryPath("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".history"), p)
}

func Test_Complete(t *testing.T) {
	var got []any
	initWithInput(t, Opts{
		Completer: func(line string, start, end int) []string {
			got = []any{line, start, end}
			return []string{"alpha", "alps"}
		},
	}, "")

	assert.Equal(t, []string{"alpha", "alps"}, Complete("say al", 4, 6))
	assert.Equal(t, []any{"say al", 4, 6}, got)
}

func Test_GetScreenSizeNotTerminal(t *testing.T) {
	initWithInput(t, Opts{}, "")

	rows, cols := GetScreenSize()
	assert.LessOrEqual(t, rows, 0)
	assert.LessOrEqual(t, cols, 0)
}

func Test_InitBadInitFile(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	err = Init(Opts{
		Input:       r,
		Output:      io.Discard,
		HistoryPath: filepath.Join(t.TempDir(), "history"),
		InitPath:    filepath.Join(t.TempDir(), "missing"),
	})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
