package io

import (
	"context"
	"errors"
	"io"
	"os"
	"time"
)

type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// NewContextReader returns a reader whose Read returns ctx.Err() once ctx is
// done. Readers with read deadlines, such as pollable files, are unblocked
// through the deadline; other readers are read from a goroutine that is
// abandoned on cancellation.
func NewContextReader(ctx context.Context, r io.Reader) io.Reader {
	if d, ok := r.(deadliner); ok {
		// files that are not pollable reject deadlines
		if err := d.SetReadDeadline(time.Time{}); err == nil {
			return &deadlineReader{r: r, d: d, ctx: ctx}
		}
	}
	return &contextReader{r: r, ctx: ctx}
}

type deadlineReader struct {
	r   io.Reader
	d   deadliner
	ctx context.Context
}

func (r *deadlineReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}

	stop := context.AfterFunc(r.ctx, func() {
		_ = r.d.SetReadDeadline(time.Now())
	})
	defer stop()

	n, err := r.r.Read(p)
	if err != nil && errors.Is(err, os.ErrDeadlineExceeded) && r.ctx.Err() != nil {
		return n, r.ctx.Err()
	}
	return n, err
}

type contextReader struct {
	r   io.Reader
	ctx context.Context
}

type readResult struct {
	n   int
	err error
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}

	// p must not be touched after an abandoned read, so read into a copy
	buf := make([]byte, len(p))
	c := make(chan readResult, 1)
	go func() {
		n, err := r.r.Read(buf)
		c <- readResult{n, err}
	}()

	select {
	case rr := <-c:
		copy(p, buf[:rr.n])
		return rr.n, rr.err
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	}
}
