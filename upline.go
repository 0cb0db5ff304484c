// Package upline is a readline-style convenience wrapper around the session
// and history packages.
//
// Example:
//
//	if err := upline.Init(upline.Opts{Name: "myapp"}); err != nil {
//		return err
//	}
//	defer upline.Close()
//	for {
//		line, err := upline.Readline("> ")
//		if errors.Is(err, upline.ErrInterrupt) {
//			continue
//		}
//		if err != nil {
//			break
//		}
//		process(line)
//		_ = upline.AddHistory(line)
//	}
//
// Readline intercepts SIGINT while it waits for input. An interrupt aborts
// the line being edited and Readline returns ErrInterrupt.
//
// The package keeps process-global state and is not safe for concurrent use.
package upline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-kit/kit/metrics/provider"
	"github.com/olebedev/emitter"
	"github.com/owenthereal/upline/editor"
	"github.com/owenthereal/upline/history"
	"github.com/owenthereal/upline/session"
	consts "github.com/owenthereal/upline/upline"
	"golang.org/x/term"
)

var (
	// ErrInterrupt is returned by Readline on SIGINT.
	ErrInterrupt = errors.New("upline: interrupted")
	// ErrNotInitialized is returned when Init has not been called.
	ErrNotInitialized = errors.New("upline: Init not called")
)

// Opts configures the package.
type Opts struct {
	// Name is the name of the application. It selects the default history
	// file ~/.NAME_history and prefixes print-only expansions. It may be
	// empty.
	Name string
	// InitPath is an inputrc-style file with key bindings. It may be empty.
	InitPath string
	// HistoryPath is the history file. Defaults to ~/.NAME_history, or
	// ~/.history when Name is empty.
	HistoryPath string
	// MaxHistoryLen is the number of history entries kept. Defaults to 10000
	// when <= 0.
	MaxHistoryLen int
	// ExpandHistory enables bash-style history expansion such as !! and !tok.
	ExpandHistory bool
	// Completer returns the candidates for the word spanning the byte
	// offsets [start, end) of line. It may be nil.
	Completer func(line string, start, end int) []string

	// Input defaults to os.Stdin.
	Input *os.File
	// Output defaults to os.Stdout.
	Output io.Writer
	// ErrOutput receives print-only history expansions. Defaults to
	// os.Stderr.
	ErrOutput io.Writer

	Logger          *slog.Logger
	MetricsProvider provider.Provider
	EventEmitter    *emitter.Emitter
}

// truncateThreshold is the minimum number of lines appended to the history
// file before it is truncated to MaxHistoryLen.
var truncateThreshold = consts.DefaultHistoryMax

var (
	opts          Opts
	sess          *session.Session
	ed            *editor.Editor
	curHistoryLen int
)

// Init configures the package. It must be called before any other function
// and may be called again to reconfigure.
func Init(o Opts) error {
	if o.Input == nil {
		o.Input = os.Stdin
	}
	if o.Output == nil {
		o.Output = os.Stdout
	}
	if o.ErrOutput == nil {
		o.ErrOutput = os.Stderr
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.MaxHistoryLen <= 0 {
		o.MaxHistoryLen = consts.DefaultHistoryMax
	}
	if o.HistoryPath == "" {
		p, err := DefaultHistoryPath(o.Name)
		if err != nil {
			return err
		}
		o.HistoryPath = p
	}

	hist := history.NewList()
	if err := history.ReadFile(o.HistoryPath, hist); err != nil {
		return fmt.Errorf("error reading history file %s: %w", o.HistoryPath, err)
	}
	hist.Stifle(o.MaxHistoryLen)

	e := editor.New(editor.Config{
		Input:   o.Input,
		Output:  o.Output,
		History: hist,
		Logger:  o.Logger.With("component", "editor"),
	})
	if o.InitPath != "" {
		if err := e.LoadInitFile(o.InitPath); err != nil {
			return err
		}
	}

	if sess != nil {
		if err := sess.Close(); err != nil {
			o.Logger.Debug("error closing previous session", "error", err)
		}
	}

	opts = o
	ed = e
	sess = session.New(session.Options{
		Input:           o.Input,
		Output:          o.Output,
		Editor:          e,
		Completer:       o.Completer,
		Logger:          o.Logger,
		MetricsProvider: o.MetricsProvider,
		EventEmitter:    o.EventEmitter,
	})
	curHistoryLen = hist.Len()

	return nil
}

// DefaultHistoryPath returns ~/.NAME_history, or ~/.history when name is
// empty.
func DefaultHistoryPath(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if name == "" {
		return filepath.Join(home, consts.DefaultHistoryFile), nil
	}
	return filepath.Join(home, "."+name+consts.HistoryFileSuffix), nil
}

// Readline shows prompt and reads one line. It returns ErrInterrupt on
// SIGINT and io.EOF when input ends on an empty line.
func Readline(prompt string) (string, error) {
	if sess == nil {
		return "", ErrNotInitialized
	}

	for {
		res := sess.ReadLine(prompt)
		switch res.Status {
		case session.Interrupted:
			return "", ErrInterrupt
		case session.EndOfInput:
			return "", io.EOF
		}

		if !opts.ExpandHistory {
			return res.Line, nil
		}

		line, exp, err := ed.History().Expand(res.Line)
		if err != nil {
			return "", fmt.Errorf("history: %w", err)
		}
		if exp == history.PrintOnly {
			if opts.Name != "" {
				fmt.Fprintf(opts.ErrOutput, "%s: %s\n", opts.Name, line)
			} else {
				fmt.Fprintln(opts.ErrOutput, line)
			}
			continue
		}
		return line, nil
	}
}

// AddHistory adds line to the history and to the history file. The file is
// written in full when it does not exist yet, otherwise the line is
// appended. It is truncated to MaxHistoryLen entries once enough lines have
// been appended.
func AddHistory(line string) error {
	if sess == nil {
		return ErrNotInitialized
	}

	sess.AddHistory(line)

	var err error
	if _, statErr := os.Stat(opts.HistoryPath); statErr != nil {
		err = history.WriteFile(opts.HistoryPath, ed.History())
	} else {
		err = history.AppendFile(opts.HistoryPath, line)
	}

	curHistoryLen++
	if curHistoryLen >= truncateThreshold && curHistoryLen >= opts.MaxHistoryLen*4 {
		if terr := history.TruncateFile(opts.HistoryPath, opts.MaxHistoryLen); terr != nil {
			opts.Logger.Warn("error truncating history file", "path", opts.HistoryPath, "error", terr)
		}
		curHistoryLen = opts.MaxHistoryLen
	}

	return err
}

// HistoryLength returns the number of history entries.
func HistoryLength() int {
	if sess == nil {
		return 0
	}
	return sess.HistoryLength()
}

// Interrupt makes a Readline in progress, possibly on another goroutine,
// return ErrInterrupt. A call made while no Readline is in progress has no
// effect.
func Interrupt() {
	if sess != nil {
		sess.Interrupt()
	}
}

// HistoryEntries returns a copy of the history, oldest first.
func HistoryEntries() []string {
	if ed == nil {
		return nil
	}
	return ed.History().Entries()
}

// Complete returns the candidates of the configured completer.
func Complete(line string, start, end int) []string {
	if sess == nil {
		return nil
	}
	return sess.Complete(line, start, end)
}

// GetScreenSize returns the number of rows and columns of the output
// terminal. Both are zero when the output is not a terminal.
func GetScreenSize() (rows, cols int) {
	if ed != nil {
		return ed.ScreenSize()
	}
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0, 0
	}
	return h, w
}

// HistoryPath returns the history file in use.
func HistoryPath() string { return opts.HistoryPath }

// Close releases the session. Init must be called again before further use.
func Close() error {
	if sess == nil {
		return nil
	}
	err := sess.Close()
	sess, ed = nil, nil
	opts = Opts{}
	curHistoryLen = 0
	return err
}
