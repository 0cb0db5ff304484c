//go:build unix

package editor

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

type termState struct {
	fd  int
	old unix.Termios
}

// enterCbreak turns off canonical mode and echo on fd but keeps signal
// generation, so that Ctrl-C still raises SIGINT.
func enterCbreak(fd int) (*termState, error) {
	termios, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return nil, err
	}

	st := &termState{fd: fd, old: *termios}

	termios.Iflag &^= unix.ICRNL | unix.INLCR | unix.IGNCR | unix.IXON | unix.ISTRIP
	termios.Lflag &^= unix.ICANON | unix.ECHO | unix.ECHONL | unix.IEXTEN
	termios.Lflag |= unix.ISIG
	termios.Cflag |= unix.CS8
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, ioctlWriteTermios, termios); err != nil {
		return nil, err
	}

	return st, nil
}

func (st *termState) restore() error {
	return unix.IoctlSetTermios(st.fd, ioctlWriteTermios, &st.old)
}

// DisableEcho turns off local echo on f, typically the controlling side of
// a pseudo terminal whose input is already echoed by the editor. f keeps
// its non-blocking mode, so read deadlines on it still work.
func DisableEcho(f *os.File) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return err
	}

	var opErr error
	err = rc.Control(func(fd uintptr) {
		termios, err := unix.IoctlGetTermios(int(fd), ioctlReadTermios)
		if err != nil {
			opErr = err
			return
		}
		termios.Lflag &^= unix.ECHO | unix.ECHONL
		opErr = unix.IoctlSetTermios(int(fd), ioctlWriteTermios, termios)
	})
	if err != nil {
		return err
	}
	return opErr
}

type winchWatcher struct {
	ch   chan os.Signal
	done chan struct{}
	once sync.Once
}

// watchWinch keeps cols up to date with the width of the terminal fd.
func watchWinch(fd int, cols *atomic.Int32) *winchWatcher {
	w := &winchWatcher{
		ch:   make(chan os.Signal, 1),
		done: make(chan struct{}),
	}
	signal.Notify(w.ch, unix.SIGWINCH)

	go func() {
		for {
			select {
			case <-w.done:
				return
			case <-w.ch:
				if c, _, err := term.GetSize(fd); err == nil && c > 0 {
					cols.Store(int32(c))
				}
			}
		}
	}()

	return w
}

func (w *winchWatcher) stop() {
	w.once.Do(func() {
		signal.Stop(w.ch)
		close(w.done)
	})
}
