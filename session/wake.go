package session

import (
	"errors"
	"sync"

	"golang.org/x/sys/unix"
)

// wakeChannel is a non-blocking pipe used to wake a poll blocked on the
// terminal when SIGINT arrives. An invalid channel has both ends set to -1.
type wakeChannel struct {
	r, w int
}

var (
	wakeOnce sync.Once
	wake     *wakeChannel
	wakeErr  error
)

// processWake returns the process-wide wake channel, creating it on first
// use. It is never closed.
func processWake() (*wakeChannel, error) {
	wakeOnce.Do(func() {
		wake, wakeErr = newWakeChannel()
	})
	return wake, wakeErr
}

func newWakeChannel() (*wakeChannel, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return &wakeChannel{r: -1, w: -1}, err
	}

	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			_ = unix.Close(p[0])
			_ = unix.Close(p[1])
			return &wakeChannel{r: -1, w: -1}, err
		}
	}

	return &wakeChannel{r: p[0], w: p[1]}, nil
}

func (c *wakeChannel) valid() bool {
	return c != nil && c.r >= 0 && c.w >= 0
}

// notify writes the sentinel byte. A full pipe already guarantees a wakeup.
func (c *wakeChannel) notify() error {
	if !c.valid() {
		return nil
	}
	for {
		_, err := unix.Write(c.w, []byte{0})
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if errors.Is(err, unix.EAGAIN) {
			return nil
		}
		return err
	}
}

// drain empties the pipe and returns how many sentinel bytes it read.
func (c *wakeChannel) drain() (int, error) {
	if !c.valid() {
		return 0, nil
	}

	var (
		buf   [64]byte
		total int
	)
	for {
		n, err := unix.Read(c.r, buf[:])
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return total, nil
		case err != nil:
			return total, err
		case n == 0:
			return total, nil
		}
		total += n
	}
}
