package session

import (
	"os"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/owenthereal/upline/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// typeWhenReady writes s to ptmx once the editor switched tty out of
// canonical mode. The returned channel is closed when the writer is done.
func typeWhenReady(t *testing.T, ptmx, tty *os.File, s string) <-chan struct{} {
	t.Helper()

	fd := int(tty.Fd())
	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
			if err == nil && termios.Lflag&unix.ICANON == 0 {
				_, _ = ptmx.Write([]byte(s))
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	return done
}

func Test_ReadLinePty(t *testing.T) {
	t.Setenv("TERM", "xterm")

	ptmx, tty, err := pty.Open()
	require.NoError(t, err)
	defer ptmx.Close()
	defer tty.Close()

	h := history.NewList()
	h.Add("previous")

	s := newSession(Options{Input: tty, Output: tty, History: h}, newFakeNotifier(false), newTestWake(t))
	defer s.Close()

	typed := typeWhenReady(t, ptmx, tty, "\x1b[A!\r")
	assert.Equal(t, Result{Status: Completed, Line: "previous!"}, s.ReadLine("$ "))
	<-typed

	termios, err := unix.IoctlGetTermios(int(tty.Fd()), unix.TCGETS)
	require.NoError(t, err)
	assert.NotZero(t, termios.Lflag&unix.ICANON, "terminal mode is restored")

	typed = typeWhenReady(t, ptmx, tty, "\x04")
	assert.Equal(t, Result{Status: EndOfInput}, s.ReadLine("$ "))
	<-typed
}
