// Package editor implements an interactive, incrementally driven line
// editor with history, completion and emacs-style key bindings.
//
// The editor never reads input itself. A caller installs a line handler
// with a prompt, feeds whatever bytes arrive on the terminal through Step
// and gets the finished line, or end of input, through the handler. This
// lets the caller multiplex terminal input with other event sources.
//
// If the input is not a terminal, or TERM is unset, dumb or cons25, the
// editor falls back to a dumb mode where the prompt is printed and each
// newline-terminated chunk of input is returned unedited.
package editor

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
	"github.com/hashicorp/go-multierror"
	"github.com/owenthereal/upline/history"
	"golang.org/x/term"
)

const (
	defaultColumns = 80

	// DefaultWordBreakChars are the characters that delimit the word being
	// completed.
	DefaultWordBreakChars = " \t\n\"\\'`@$><=;|&{("
)

// ErrInstalled is returned by Install when a handler is already installed.
var ErrInstalled = errors.New("editor: line handler already installed")

// LineHandler receives the result of an installed read: the finished line
// without its terminator, or eof set when input ended on an empty line.
type LineHandler = func(line string, eof bool)

// Config configures an Editor. Zero values select the defaults.
type Config struct {
	// Input is the terminal whose mode is changed while a handler is
	// installed. Defaults to os.Stdin.
	Input *os.File
	// Output receives the prompt and the rendered line. Defaults to
	// os.Stdout.
	Output io.Writer
	// History is the list navigated with the history commands. A new list
	// is created when nil.
	History *history.List
	// Keymap defaults to DefaultKeymap().
	Keymap Keymap
	// Completer returns the candidates for the word spanning the byte
	// offsets [start, end) of line. It may be nil.
	Completer func(line string, start, end int) []string
	// WordBreakChars defaults to DefaultWordBreakChars.
	WordBreakChars string
	Logger         *slog.Logger
}

type cmdKind int

const (
	kindOther cmdKind = iota
	kindKill
	kindComplete
)

// Editor is a line editor. It is not safe for concurrent use and, since it
// changes the terminal mode of its input, at most one Editor per terminal
// should have a handler installed at a time.
type Editor struct {
	in         *os.File
	fd         int
	w          *bufio.Writer
	out        io.Writer
	logger     *slog.Logger
	dumb       bool
	km         Keymap
	hist       *history.List
	completer  func(line string, start, end int) []string
	breakChars string
	bell       bellStyle

	term  *termState
	winch *winchWatcher
	cols  atomic.Int32

	installed bool
	handler   LineHandler
	prompt    string
	promptW   int

	buf     Text
	pos     Position
	seq     []byte
	lastKey string
	dumbBuf []byte

	kill     Text
	prevKind cmdKind
	kind     cmdKind

	histTmp []string
	histIdx int
}

// New returns an Editor configured by cfg.
func New(cfg Config) *Editor {
	if cfg.Input == nil {
		cfg.Input = os.Stdin
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.History == nil {
		cfg.History = history.NewList()
	}
	if cfg.Keymap == nil {
		cfg.Keymap = DefaultKeymap()
	}
	if cfg.WordBreakChars == "" {
		cfg.WordBreakChars = DefaultWordBreakChars
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	e := &Editor{
		in:         cfg.Input,
		fd:         int(cfg.Input.Fd()),
		out:        cfg.Output,
		w:          bufio.NewWriter(cfg.Output),
		logger:     cfg.Logger,
		km:         cfg.Keymap,
		hist:       cfg.History,
		completer:  cfg.Completer,
		breakChars: cfg.WordBreakChars,
		bell:       bellAudible,
	}
	e.dumb = isDumb(e.fd)
	e.cols.Store(defaultColumns)

	return e
}

func isDumb(fd int) bool {
	if !term.IsTerminal(fd) {
		return true
	}
	t := os.Getenv("TERM")
	return t == "" || t == "dumb" || t == "cons25"
}

// Dumb reports whether the editor runs without line editing.
func (e *Editor) Dumb() bool { return e.dumb }

// History returns the history list used by the editor.
func (e *Editor) History() *history.List { return e.hist }

// HistoryLength returns the number of history entries.
func (e *Editor) HistoryLength() int { return e.hist.Len() }

// Keymap returns the keymap used by the editor. Bindings may be changed
// while no handler is installed.
func (e *Editor) Keymap() Keymap { return e.km }

// SetCompleter replaces the completion function.
func (e *Editor) SetCompleter(fn func(line string, start, end int) []string) {
	e.completer = fn
}

// ScreenSize returns the number of rows and columns of the output terminal.
// Both are zero when the output is not a terminal.
func (e *Editor) ScreenSize() (rows, cols int) {
	f, ok := e.out.(*os.File)
	if !ok {
		return 0, 0
	}
	w, h, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0, 0
	}
	return h, w
}

// Install displays prompt and starts reading a line. handler is called
// once, from within Step, when the line is finished.
func (e *Editor) Install(prompt string, handler LineHandler) error {
	if e.installed {
		return ErrInstalled
	}

	e.prompt = prompt
	e.promptW = ansi.StringWidth(prompt)
	e.resetLine()

	if !e.dumb {
		st, err := enterCbreak(e.fd)
		if err != nil {
			return err
		}
		e.term = st
		if w, _, err := term.GetSize(e.fd); err == nil && w > 0 {
			e.cols.Store(int32(w))
		}
		e.winch = watchWinch(e.fd, &e.cols)
	}

	e.histTmp = append(e.hist.Entries(), "")
	e.histIdx = len(e.histTmp) - 1
	e.handler = handler
	e.installed = true

	if e.dumb {
		e.writeString(prompt)
	} else {
		e.refresh()
	}
	e.flush()

	return nil
}

// Step feeds input bytes to the editor and returns how many were consumed.
// Consumption stops right after the byte that finished the line; the rest
// belongs to the next read. An empty p signals end of input.
func (e *Editor) Step(p []byte) int {
	if !e.installed {
		return 0
	}
	defer e.flush()

	if len(p) == 0 {
		e.endOfInput()
		return 0
	}

	for i, b := range p {
		if !e.installed {
			return i
		}
		if e.dumb {
			e.feedDumb(b)
		} else {
			e.feed(b)
		}
	}
	return len(p)
}

// Remove uninstalls the line handler and restores the terminal. It is safe
// to call when no handler is installed.
func (e *Editor) Remove() error {
	if !e.installed {
		return nil
	}
	e.installed = false
	e.handler = nil
	e.histTmp = nil

	var result error
	if err := e.w.Flush(); err != nil {
		result = multierror.Append(result, err)
	}
	if e.winch != nil {
		e.winch.stop()
		e.winch = nil
	}
	if e.term != nil {
		if err := e.term.restore(); err != nil {
			result = multierror.Append(result, err)
		}
		e.term = nil
	}

	return result
}

// Abort discards the line being edited after an interrupt and moves the
// cursor to a fresh line. The handler stays installed until Remove.
func (e *Editor) Abort() {
	if !e.installed {
		return
	}

	e.resetLine()
	e.histTmp = append(e.hist.Entries(), "")
	e.histIdx = len(e.histTmp) - 1
	if !e.dumb {
		e.writeString("^C\r\n")
	}
	e.flush()
}

// Close uninstalls any handler.
func (e *Editor) Close() error {
	return e.Remove()
}

func (e *Editor) resetLine() {
	e.buf = Text{}
	e.pos = Position{}
	e.seq = nil
	e.dumbBuf = nil
	e.prevKind = kindOther
	e.kind = kindOther
}

func (e *Editor) feedDumb(b byte) {
	if b != '\n' {
		e.dumbBuf = append(e.dumbBuf, b)
		return
	}
	line := strings.TrimSuffix(string(e.dumbBuf), "\r")
	e.dumbBuf = nil
	e.finish(line, false)
}

func (e *Editor) feed(b byte) {
	e.seq = append(e.seq, b)
	if !seqComplete(e.seq) {
		return
	}

	key := string(e.seq)
	if cmd, ok := e.km[key]; ok {
		e.seq = nil
		e.run(key, cmd)
		return
	}
	if e.km.isPrefix(key) {
		return
	}
	e.seq = nil

	r, size := utf8.DecodeRuneInString(key)
	if size == len(key) && r != utf8.RuneError && unicode.IsPrint(r) {
		e.run(key, (*Editor).selfInsert)
		return
	}

	e.logger.Debug("unbound key sequence", "seq", key)
	e.run(key, (*Editor).ringBell)
}

// seqComplete reports whether seq is a full rune, a full escape sequence or
// a meta-prefixed rune.
func seqComplete(seq []byte) bool {
	if string(seq[:1]) != keyEscape {
		return utf8.FullRune(seq)
	}
	if len(seq) == 1 {
		return false
	}

	switch seq[1] {
	case '[':
		if len(seq) == 2 {
			return false
		}
		last := seq[len(seq)-1]
		return last >= 0x40 && last <= 0x7e
	case 'O':
		return len(seq) >= 3
	default:
		return utf8.FullRune(seq[1:])
	}
}

func (e *Editor) run(key string, cmd Command) {
	e.lastKey = key
	e.prevKind = e.kind
	e.kind = kindOther
	cmd(e)
}

func (e *Editor) endOfInput() {
	if e.dumb {
		if len(e.dumbBuf) > 0 {
			line := strings.TrimSuffix(string(e.dumbBuf), "\r")
			e.dumbBuf = nil
			e.finish(line, false)
			return
		}
		e.finish("", true)
		return
	}

	if e.buf.Len() > 0 {
		e.acceptLine()
		return
	}
	e.writeString("\r\n")
	e.finish("", true)
}

// finish hands the result to the handler, which normally calls Remove.
func (e *Editor) finish(line string, eof bool) {
	h := e.handler
	e.flush()
	if h != nil {
		h(line, eof)
	}
}

func (e *Editor) columns() int {
	if c := int(e.cols.Load()); c > 0 {
		return c
	}
	return defaultColumns
}

func (e *Editor) writeString(s string) {
	if _, err := e.w.WriteString(s); err != nil {
		e.logger.Debug("error writing to terminal", "error", err)
	}
}

func (e *Editor) flush() {
	if err := e.w.Flush(); err != nil {
		e.logger.Debug("error flushing terminal output", "error", err)
	}
}
