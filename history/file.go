package history

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gofrs/flock"
)

const (
	lockAttempts = 20
	lockDelay    = 10 * time.Millisecond

	maxLineSize = 1 << 20
	filePerm    = 0o600
)

// ErrLocked is returned when another process holds the history file lock
// for longer than the retry budget.
var ErrLocked = errors.New("history file is locked")

// ReadFile appends the entries stored in path to l. A missing file is not an
// error.
func ReadFile(path string, l *List) error {
	lines, err := readLines(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	l.Add(lines...)
	return nil
}

// WriteFile replaces the content of path with the entries of l.
func WriteFile(path string, l *List) error {
	return withLock(path, func() error {
		return writeLines(path, l.Entries())
	})
}

// AppendFile appends lines to path, creating it if needed.
func AppendFile(path string, lines ...string) error {
	return withLock(path, func() error {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePerm)
		if err != nil {
			return err
		}

		w := bufio.NewWriter(f)
		for _, line := range lines {
			if _, err := w.WriteString(line + "\n"); err != nil {
				_ = f.Close()
				return err
			}
		}
		if err := w.Flush(); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	})
}

// TruncateFile keeps only the n most recent entries of path.
func TruncateFile(path string, n int) error {
	if n < 0 {
		n = 0
	}

	return withLock(path, func() error {
		lines, err := readLines(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if len(lines) <= n {
			return nil
		}
		return writeLines(path, lines[len(lines)-n:])
	})
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 4096), maxLineSize)
	for s.Scan() {
		lines = append(lines, strings.TrimSuffix(s.Text(), "\r"))
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("error reading history file %s: %w", path, err)
	}
	return lines, nil
}

// writeLines atomically replaces path. The caller holds the lock.
func writeLines(path string, lines []string) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			_ = tmp.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// withLock runs fn while holding an advisory lock on path + ".lock".
func withLock(path string, fn func() error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	fl := flock.New(path + ".lock")
	err = retry.Do(
		func() error {
			locked, err := fl.TryLock()
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if !locked {
				return ErrLocked
			}
			return nil
		},
		retry.Attempts(lockAttempts),
		retry.Delay(lockDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("error locking history file %s: %w", path, err)
	}
	defer func() {
		if uerr := fl.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}()

	return fn()
}
