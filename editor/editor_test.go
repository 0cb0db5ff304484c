package editor

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/creack/pty"
	"github.com/owenthereal/upline/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	line     string
	eof      bool
	done     bool
	consumed int
}

func newTTYEditor(t *testing.T, cfg Config) (*Editor, *bytes.Buffer) {
	t.Helper()
	t.Setenv("TERM", "xterm")

	ptmx, tty, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = tty.Close()
		_ = ptmx.Close()
	})

	out := bytes.NewBuffer(nil)
	cfg.Input = tty
	cfg.Output = out

	e := New(cfg)
	require.False(t, e.Dumb())
	t.Cleanup(func() { _ = e.Close() })

	return e, out
}

func readLine(t *testing.T, e *Editor, prompt string, chunks ...string) result {
	t.Helper()

	var res result
	require.NoError(t, e.Install(prompt, func(line string, eof bool) {
		res.line, res.eof, res.done = line, eof, true
		require.NoError(t, e.Remove())
	}))

	for _, c := range chunks {
		var p []byte
		if c != "" {
			p = []byte(c)
		}
		res.consumed += e.Step(p)
		if res.done {
			break
		}
	}
	require.True(t, res.done, "line was not finished")

	return res
}

func Test_EditorKeys(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "hello\r", want: "hello"},
		{name: "newline accepts", input: "hello\n", want: "hello"},
		{name: "empty line", input: "\r", want: ""},
		{name: "unicode", input: "héllo 日本\r", want: "héllo 日本"},
		{name: "backspace", input: "helo\x7flo\r", want: "hello"},
		{name: "home and end", input: "bc\x01a\x05d\r", want: "abcd"},
		{name: "arrows", input: "ac\x1b[Db\x1b[Cd\r", want: "abcd"},
		{name: "ss3 arrows", input: "ac\x1bODb\r", want: "abc"},
		{name: "delete", input: "abxc\x1b[D\x1b[D\x1b[3~\r", want: "abc"},
		{name: "ctrl-d deletes", input: "abxc\x02\x02\x04\r", want: "abc"},
		{name: "word motion", input: "one two\x1bbX\x1bfY\r", want: "one XtwoY"},
		{name: "kill line", input: "keep drop\x1bb\x0b\r", want: "keep "},
		{name: "line discard", input: "drop keep\x1bb\x15\r", want: "keep"},
		{name: "word rubout", input: "foo bar baz\x17\r", want: "foo bar "},
		{name: "kill word", input: "foo bar\x01\x1bd\r", want: " bar"},
		{name: "backward kill word", input: "foo bar\x1b\x7f\r", want: "foo "},
		{name: "kills accumulate", input: "foo bar\x17\x17\x19\x19\r", want: "foo barfoo bar"},
		{name: "transpose", input: "ab\x14\r", want: "ba"},
		{name: "transpose middle", input: "abc\x02\x14\r", want: "acb"},
		{name: "unbound escape rings", input: "a\x1b[15~b\r", want: "ab"},
		{name: "control chars are not inserted", input: "a\x00\x1fb\r", want: "ab"},
		{name: "literal ctrl-c is only a key", input: "ab\x03c\r", want: "abc"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e, _ := newTTYEditor(t, Config{})
			res := readLine(t, e, "> ", c.input)
			assert.False(t, res.eof)
			assert.Equal(t, c.want, res.line)
		})
	}
}

func Test_EditorStepStopsAfterLine(t *testing.T) {
	e, _ := newTTYEditor(t, Config{})

	res := readLine(t, e, "> ", "ab\rcd\r")
	assert.Equal(t, "ab", res.line)
	assert.Equal(t, 3, res.consumed, "bytes after the line are left to the caller")

	assert.Equal(t, 0, e.Step([]byte("x")), "nothing is consumed without a handler")
	require.NoError(t, e.Remove(), "remove is idempotent")
}

func Test_EditorSplitSequences(t *testing.T) {
	e, _ := newTTYEditor(t, Config{})

	res := readLine(t, e, "> ", "ac\x1b", "[", "Db", "\xe6\x97", "\xa5\r")
	assert.Equal(t, "ab日c", res.line)
}

func Test_EditorEndOfInput(t *testing.T) {
	t.Run("empty buffer", func(t *testing.T) {
		e, _ := newTTYEditor(t, Config{})
		res := readLine(t, e, "> ", "")
		assert.True(t, res.eof)
		assert.Equal(t, "", res.line)
	})

	t.Run("ctrl-d on empty line", func(t *testing.T) {
		e, _ := newTTYEditor(t, Config{})
		res := readLine(t, e, "> ", "\x04")
		assert.True(t, res.eof)
	})

	t.Run("pending text is accepted", func(t *testing.T) {
		e, _ := newTTYEditor(t, Config{})
		res := readLine(t, e, "> ", "partial", "")
		assert.False(t, res.eof)
		assert.Equal(t, "partial", res.line)
	})
}

func Test_EditorHistory(t *testing.T) {
	h := history.NewList()
	h.Add("one", "two")

	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "previous", input: "\x1b[A\r", want: "two"},
		{name: "previous twice", input: "\x1b[A\x10\r", want: "one"},
		{name: "past the oldest", input: "\x1b[A\x1b[A\x1b[A\r", want: "one"},
		{name: "back down", input: "\x1b[A\x1b[A\x1b[B\r", want: "two"},
		{name: "edit is kept", input: "new\x1b[A\x0e\r", want: "new"},
		{name: "beginning of history", input: "\x1b<\r", want: "one"},
		{name: "end of history", input: "x\x1b<\x1b>\r", want: "x"},
		{name: "edit entry", input: "\x1b[A!\r", want: "two!"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e, _ := newTTYEditor(t, Config{History: h})
			res := readLine(t, e, "> ", c.input)
			assert.Equal(t, c.want, res.line)
			assert.Equal(t, 2, e.HistoryLength(), "navigation does not change history")
		})
	}
}

func Test_EditorAbort(t *testing.T) {
	h := history.NewList()
	h.Add("old")

	e, out := newTTYEditor(t, Config{History: h})

	var got string
	require.NoError(t, e.Install("> ", func(line string, eof bool) {
		got = line
		require.NoError(t, e.Remove())
	}))

	e.Step([]byte("\x1b[Aedited\x1b[B"))
	e.Step([]byte("\x1b"))
	e.Abort()
	assert.Contains(t, out.String(), "^C\r\n")

	e.Step([]byte("\x1b[A\r"))
	assert.Equal(t, "old", got, "abort drops the buffer, pending keys and history edits")
}

func Test_EditorComplete(t *testing.T) {
	var gotLine string
	var gotStart, gotEnd int
	words := []string{"hello", "help", "world"}
	completer := func(line string, start, end int) []string {
		gotLine, gotStart, gotEnd = line, start, end
		var out []string
		for _, w := range words {
			if strings.HasPrefix(w, line[start:end]) {
				out = append(out, w)
			}
		}
		return out
	}

	t.Run("single candidate", func(t *testing.T) {
		e, _ := newTTYEditor(t, Config{Completer: completer})
		res := readLine(t, e, "> ", "say wo\t\r")
		assert.Equal(t, "say world ", res.line)
		assert.Equal(t, "say wo", gotLine)
		assert.Equal(t, 4, gotStart)
		assert.Equal(t, 6, gotEnd)
	})

	t.Run("common prefix", func(t *testing.T) {
		e, _ := newTTYEditor(t, Config{Completer: completer})
		res := readLine(t, e, "> ", "h\t\r")
		assert.Equal(t, "hel", res.line)
	})

	t.Run("no candidates", func(t *testing.T) {
		e, out := newTTYEditor(t, Config{Completer: completer})
		res := readLine(t, e, "> ", "zz\t\r")
		assert.Equal(t, "zz", res.line)
		assert.Contains(t, out.String(), "\a")
	})

	t.Run("word in the middle", func(t *testing.T) {
		e, _ := newTTYEditor(t, Config{Completer: completer})
		res := readLine(t, e, "> ", "(wo) x\x01\x1b[C\x1b[C\x1b[C\t\r")
		assert.Equal(t, "(world ) x", res.line)
		assert.Equal(t, 1, gotStart)
		assert.Equal(t, 3, gotEnd)
	})
}

func Test_EditorListCandidates(t *testing.T) {
	completer := func(line string, start, end int) []string {
		return []string{"alpha", "alps"}
	}

	e, out := newTTYEditor(t, Config{Completer: completer})
	require.NoError(t, e.Install("> ", func(string, bool) { _ = e.Remove() }))

	e.Step([]byte("alp\t"))
	assert.NotContains(t, out.String(), "alpha", "first tab without progress only rings the bell")
	assert.Contains(t, out.String(), "\a")

	e.Step([]byte("\t"))
	assert.Contains(t, out.String(), "alpha  alps\r\n")
	assert.Equal(t, "alp", e.buf.String())
}

func Test_EditorScroll(t *testing.T) {
	e, out := newTTYEditor(t, Config{})
	require.NoError(t, e.Install("> ", func(string, bool) { _ = e.Remove() }))
	e.cols.Store(20)

	e.Step([]byte(strings.Repeat("abcdefghij", 3)))
	assert.True(t, strings.HasSuffix(out.String(), "\r> efghijabcdefghij\x1b[K\r\x1b[18C"), "%q", out.String())

	out.Reset()
	e.Step([]byte("\x01"))
	assert.Equal(t, "\r> abcdefghijabcdefg\x1b[K\r\x1b[2C", out.String())
}

func Test_EditorDumb(t *testing.T) {
	t.Parallel()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	out := bytes.NewBuffer(nil)
	e := New(Config{Input: r, Output: out})
	require.True(t, e.Dumb())

	var got []result
	handler := func(line string, eof bool) {
		got = append(got, result{line: line, eof: eof, done: true})
		require.NoError(t, e.Remove())
	}

	require.NoError(t, e.Install("> ", handler))
	assert.Equal(t, "> ", out.String())
	n := e.Step([]byte("a\x1b[Db\r\nnext\n"))
	assert.Equal(t, 7, n)

	require.NoError(t, e.Install("> ", handler))
	e.Step([]byte("next"))
	e.Step(nil)

	require.NoError(t, e.Install("> ", handler))
	e.Step(nil)

	assert.Equal(t, []result{
		{line: "a\x1b[Db", done: true},
		{line: "next", done: true},
		{eof: true, done: true},
	}, got)
	assert.NotContains(t, out.String(), "next", "dumb mode does not echo")
}

func Test_EditorInstallTwice(t *testing.T) {
	e, _ := newTTYEditor(t, Config{})
	require.NoError(t, e.Install("> ", func(string, bool) {}))
	assert.ErrorIs(t, e.Install("> ", func(string, bool) {}), ErrInstalled)
}

func Test_SeqComplete(t *testing.T) {
	t.Parallel()

	cases := []struct {
		seq  string
		want bool
	}{
		{seq: "a", want: true},
		{seq: "\x01", want: true},
		{seq: "\xe6\x97", want: false},
		{seq: "\xe6\x97\xa5", want: true},
		{seq: "\x1b", want: false},
		{seq: "\x1b[", want: false},
		{seq: "\x1b[1", want: false},
		{seq: "\x1b[1;", want: false},
		{seq: "\x1b[1;5C", want: true},
		{seq: "\x1b[3~", want: true},
		{seq: "\x1bO", want: false},
		{seq: "\x1bOA", want: true},
		{seq: "\x1bb", want: true},
		{seq: "\x1b\x7f", want: true},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, seqComplete([]byte(c.seq)), "%q", c.seq)
	}
}

func Test_CommonPrefix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", commonPrefix(nil))
	assert.Equal(t, "abc", commonPrefix([]string{"abc"}))
	assert.Equal(t, "he", commonPrefix([]string{"hello", "help", "hex"}))
	assert.Equal(t, "", commonPrefix([]string{"日", "旦"}), "never split a rune")
}
