package io

import (
	"errors"
	"io"
	"sync"
)

var ErrNoWriters = errors.New("all writers failed")

// MultiWriter duplicates writes to a set of writers that may change while
// writing. A writer that fails is dropped from the set and reported to the
// error handler. Write only fails once no writer is left.
type MultiWriter struct {
	mu      sync.Mutex
	writers []io.Writer
	onError func(w io.Writer, err error)
}

func NewMultiWriter(writers ...io.Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// OnError sets the function called with every writer dropped after an error.
func (t *MultiWriter) OnError(fn func(w io.Writer, err error)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.onError = fn
}

func (t *MultiWriter) Append(writers ...io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.writers = append(t.writers, writers...)
}

func (t *MultiWriter) Remove(writers ...io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.writers = removeWriters(t.writers, writers...)
}

func (t *MultiWriter) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.writers)
}

func (t *MultiWriter) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.writers) == 0 {
		return 0, ErrNoWriters
	}

	var failed []io.Writer
	for _, w := range t.writers {
		n, err := w.Write(p)
		if err == nil && n != len(p) {
			err = io.ErrShortWrite
		}
		if err != nil {
			failed = append(failed, w)
			if t.onError != nil {
				t.onError(w, err)
			}
		}
	}
	t.writers = removeWriters(t.writers, failed...)

	if len(t.writers) == 0 {
		return 0, ErrNoWriters
	}
	return len(p), nil
}

func removeWriters(writers []io.Writer, remove ...io.Writer) []io.Writer {
	if len(remove) == 0 {
		return writers
	}

	kept := writers[:0]
	for _, w := range writers {
		drop := false
		for _, r := range remove {
			if w == r {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, w)
		}
	}
	return kept
}
