// Package session reads lines from a terminal through a line editor while
// staying responsive to SIGINT.
//
// The editor is driven incrementally: ReadLine waits with poll(2) on both the
// terminal and a wake pipe, and feeds whatever the terminal delivers to the
// editor one read at a time. SIGINT is routed to the wake pipe for the
// duration of the call, so an interrupt aborts the read without running any
// editor code from signal context.
package session

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/provider"
	"github.com/olebedev/emitter"
	"github.com/owenthereal/upline/editor"
	"github.com/owenthereal/upline/history"
	libmetrics "github.com/owenthereal/upline/metrics"
	"github.com/owenthereal/upline/upline"
	"github.com/rs/xid"
	"golang.org/x/sys/unix"
)

const readBufferSize = 4096

// LineEditor is an incrementally driven line editing engine.
type LineEditor interface {
	// Install shows prompt and starts a line. handler is called from Step
	// once the line is complete or input ended.
	Install(prompt string, handler func(line string, eof bool)) error
	// Step feeds input and returns how many bytes were consumed. Empty
	// input signals end of input.
	Step(p []byte) int
	// Remove uninstalls the handler. It must be idempotent.
	Remove() error
	// Abort discards the line being edited.
	Abort()
	SetCompleter(fn func(line string, start, end int) []string)
	History() *history.List
	HistoryLength() int
}

type Options struct {
	// Input defaults to os.Stdin.
	Input *os.File
	// Output defaults to os.Stdout. It is only used to create the default
	// editor.
	Output io.Writer
	// Editor defaults to an editor.Editor on Input and Output.
	Editor LineEditor
	// History is used by the default editor.
	History *history.List
	// Completer is called by the editor to complete the word between the
	// byte offsets start and end of line. It may be nil.
	Completer func(line string, start, end int) []string
	// AutoHistory adds every non-empty completed line to the history.
	AutoHistory bool

	Logger          *slog.Logger
	MetricsProvider provider.Provider
	// EventEmitter receives upline.EventLineRead, upline.EventInterrupted
	// and upline.EventEndOfInput with the session ID and the Result.
	EventEmitter *emitter.Emitter
}

type instruments struct {
	reads        metrics.Counter
	interrupts   metrics.Counter
	readDuration metrics.Histogram
	pending      metrics.Gauge
}

func newInstruments(p provider.Provider) *instruments {
	return &instruments{
		reads:        p.NewCounter("session_reads_count"),
		interrupts:   p.NewCounter("session_interrupts_count"),
		readDuration: p.NewHistogram("session_read_duration_ms", 50),
		pending:      p.NewGauge("session_pending_input_bytes"),
	}
}

// Session reads lines from one terminal. Only one ReadLine may run at a time
// in the whole process, since SIGINT handling is process-wide.
type Session struct {
	id        string
	fd        int
	ed        LineEditor
	completer func(line string, start, end int) []string
	autoHist  bool
	logger    *slog.Logger
	inst      *instruments
	events    *emitter.Emitter
	notifier  notifier
	wake      *wakeChannel

	// pending holds input read past the end of the last line.
	pending []byte
	buf     []byte
}

// New returns a Session. If the wake pipe cannot be created the session
// still works, but SIGINT no longer interrupts a read in progress.
func New(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	wake, err := processWake()
	if err != nil {
		opts.Logger.Warn("interrupts will not abort reads", "error", err)
	}

	return newSession(opts, osNotifier{}, wake)
}

func newSession(opts Options, n notifier, wake *wakeChannel) *Session {
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.MetricsProvider == nil {
		opts.MetricsProvider = provider.NewDiscardProvider()
	}

	id := xid.New().String()
	logger := opts.Logger.With("session", id)

	if opts.Editor == nil {
		opts.Editor = editor.New(editor.Config{
			Input:   opts.Input,
			Output:  opts.Output,
			History: opts.History,
			Logger:  logger.With("component", "editor"),
		})
	}

	s := &Session{
		id:        id,
		fd:        int(opts.Input.Fd()),
		ed:        opts.Editor,
		completer: opts.Completer,
		autoHist:  opts.AutoHistory,
		logger:    logger,
		inst:      newInstruments(opts.MetricsProvider),
		events:    opts.EventEmitter,
		notifier:  n,
		wake:      wake,
		buf:       make([]byte, readBufferSize),
	}
	s.ed.SetCompleter(s.Complete)

	return s
}

// ID returns the unique ID of the session.
func (s *Session) ID() string { return s.id }

// Editor returns the line editor of the session.
func (s *Session) Editor() LineEditor { return s.ed }

// ReadLine shows prompt and reads one line. It returns when a line is
// complete, input ends, or SIGINT arrives. SIGINT handling in effect before
// the call is in effect again when it returns.
func (s *Session) ReadLine(prompt string) (res Result) {
	defer libmetrics.MeasureSince(s.inst.readDuration, time.Now())
	defer func() { s.finish(res) }()

	g := acquireGuard(s.notifier, s.wake, s.logger)
	defer g.release()

	st := &readState{prompt: prompt}
	err := s.ed.Install(prompt, func(line string, eof bool) {
		st.line, st.eof, st.done = line, eof, true
		if err := s.ed.Remove(); err != nil {
			s.logger.Debug("error removing line handler", "error", err)
		}
	})
	if err != nil {
		s.logger.Error("unable to start line", "error", err)
		return Result{Status: Interrupted}
	}
	// runs before g.release
	defer func() {
		if err := s.ed.Remove(); err != nil {
			s.logger.Debug("error removing line handler", "error", err)
		}
	}()

	if len(s.pending) > 0 {
		p := s.pending
		s.pending = nil
		s.feed(st, p)
	}

	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
	if s.wake.valid() {
		fds = append(fds, unix.PollFd{Fd: int32(s.wake.r), Events: unix.POLLIN})
	}

	for !st.done {
		for i := range fds {
			fds[i].Revents = 0
		}

		_, err := unix.Poll(fds, -1)
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
			continue
		}
		if err != nil {
			s.logger.Debug("error polling input", "error", err)
			return s.interrupt()
		}

		if len(fds) > 1 && fds[1].Revents != 0 {
			if _, err := s.wake.drain(); err != nil {
				s.logger.Debug("error draining wake channel", "error", err)
			}
			return s.interrupt()
		}

		ev := fds[0].Revents
		if ev&(unix.POLLERR|unix.POLLNVAL) != 0 {
			s.logger.Debug("input error condition", "revents", ev)
			return s.interrupt()
		}
		if ev&(unix.POLLIN|unix.POLLHUP) == 0 {
			continue
		}

		n, err := unix.Read(s.fd, s.buf)
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
			continue
		}
		if err != nil {
			s.logger.Debug("error reading input", "error", err)
			return s.interrupt()
		}
		if n == 0 {
			s.ed.Step(nil)
			if !st.done {
				st.eof, st.done = true, true
			}
			break
		}

		s.feed(st, s.buf[:n])
	}

	res = st.result()
	if s.autoHist && res.Status == Completed && res.Line != "" {
		s.ed.History().Add(res.Line)
	}

	return res
}

// feed steps the editor and keeps what it did not consume for the next
// line.
func (s *Session) feed(st *readState, p []byte) {
	n := s.ed.Step(p)
	if st.done && n < len(p) {
		s.pending = append([]byte(nil), p[n:]...)
	}
}

func (s *Session) interrupt() Result {
	s.ed.Abort()
	s.pending = nil
	return Result{Status: Interrupted}
}

func (s *Session) finish(res Result) {
	s.inst.reads.Add(1)
	s.inst.pending.Set(float64(len(s.pending)))

	var topic string
	switch res.Status {
	case Completed:
		topic = upline.EventLineRead
	case Interrupted:
		s.inst.interrupts.Add(1)
		topic = upline.EventInterrupted
	case EndOfInput:
		topic = upline.EventEndOfInput
	}

	s.logger.Debug("read finished", "status", res.Status, "bytes", len(res.Line))
	if s.events != nil {
		s.events.Emit(topic, s.id, res)
	}
}

// Interrupt wakes a ReadLine in progress in this process, which then
// returns Interrupted. A wakeup sent while no read is in progress is
// discarded by the next ReadLine, so callers racing with ReadLine should
// retry until it returns.
func (s *Session) Interrupt() {
	if err := s.wake.notify(); err != nil {
		s.logger.Debug("error writing to wake channel", "error", err)
	}
}

// Complete returns the completions of the configured completer, unmodified.
func (s *Session) Complete(line string, start, end int) []string {
	if s.completer == nil {
		return nil
	}
	return s.completer(line, start, end)
}

// HistoryLength returns the number of history entries, 0 if there are none.
func (s *Session) HistoryLength() int {
	return s.ed.HistoryLength()
}

// AddHistory appends line to the history.
func (s *Session) AddHistory(line string) {
	s.ed.History().Add(line)
}

// Close uninstalls any editor handler left behind. The wake pipe is shared
// by all sessions and stays open.
func (s *Session) Close() error {
	s.pending = nil
	return s.ed.Remove()
}
