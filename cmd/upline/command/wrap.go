package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/google/shlex"
	"github.com/oklog/run"
	"github.com/olebedev/emitter"
	"github.com/owenthereal/upline"
	"github.com/owenthereal/upline/editor"
	uplinectx "github.com/owenthereal/upline/internal/context"
	uio "github.com/owenthereal/upline/io"
	"github.com/pborman/ansi"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	ctrlC = "\x03"
	ctrlD = "\x04"

	interruptRetry = 50 * time.Millisecond
	outputDrain    = time.Second
)

func wrapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wrap [flags] -- COMMAND [ARGS...]",
		Short: "Add line editing to a command",
		Long: `Run a command on a pseudo terminal and read its input with line editing,
history and completion.

Each line is sent to the command once Enter is pressed. Ctrl-C is forwarded
as ^C and Ctrl-D on an empty line as ^D. The command's output is copied to
standard output and, with --transcript, to a file. Unless --history-file
is given, history is kept in ~/.COMMAND_history.

Without arguments the command configured with --command is run.`,
		Example: `  # Edit lines typed to cat:
  upline wrap -- cat

  # Keep a plain-text transcript of a session:
  upline wrap --transcript session.log -- python3 -i`,
		RunE: wrapRunE,
	}

	cmd.Flags().String("prompt", "", "Prompt to display.")
	cmd.Flags().String("command", "", "Command to run when none is given as arguments.")
	cmd.Flags().String("transcript", "", "Append the command's output to this file.")
	cmd.Flags().Bool("transcript-raw", false, "Keep escape sequences in the transcript.")

	return cmd
}

func wrapRunE(c *cobra.Command, args []string) error {
	cfg, err := configFrom(c)
	if err != nil {
		return err
	}
	logger := loggerFrom(c)

	if len(args) == 0 && cfg.Command != "" {
		args, err = shlex.Split(cfg.Command)
		if err != nil {
			return fmt.Errorf("error parsing command %s: %w", cfg.Command, err)
		}
	}
	if len(args) == 0 {
		return fmt.Errorf("no command is specified")
	}

	var transcript io.Writer
	if cfg.Transcript != "" {
		f, err := os.OpenFile(cfg.Transcript, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("error opening transcript: %w", err)
		}
		defer f.Close()

		transcript = f
		if !cfg.TranscriptRaw {
			transcript = &plainWriter{w: f}
		}
	}

	name := filepath.Base(args[0])
	w := &wrapper{
		args:       args,
		prompt:     cfg.Prompt,
		stdin:      os.Stdin,
		stdout:     c.OutOrStdout(),
		transcript: transcript,
		logger:     logger.With("command", name),
		opts: upline.Opts{
			Name:            name,
			InitPath:        cfg.Inputrc,
			HistoryPath:     cfg.HistoryFile,
			MaxHistoryLen:   cfg.HistorySize,
			ExpandHistory:   cfg.ExpandHistory,
			ErrOutput:       c.ErrOrStderr(),
			Logger:          logger.With("component", "session"),
			MetricsProvider: uplinectx.MetricsProvider(c.Context()),
		},
	}

	return w.Run(c.Context())
}

type wrapper struct {
	args       []string
	prompt     string
	stdin      *os.File
	stdout     io.Writer
	transcript io.Writer
	logger     *slog.Logger
	opts       upline.Opts
}

func (w *wrapper) Run(ctx context.Context) error {
	// SIGINT must never kill the wrapper, also between two reads
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, w.args[0], w.args[1:]...)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("unable to start pty: %w", err)
	}
	defer func() { _ = ptmx.Close() }()

	isTty := term.IsTerminal(int(w.stdin.Fd()))
	if isTty {
		if err := pty.InheritSize(w.stdin, ptmx); err != nil {
			w.logger.Debug("error setting pty size", "error", err)
		}
	}
	// the editor already echoes what is typed
	if err := editor.DisableEcho(ptmx); err != nil {
		w.logger.Debug("error disabling pty echo", "error", err)
	}

	em := emitter.New(1)
	opts := w.opts
	opts.Input = w.stdin
	opts.Output = w.stdout
	opts.EventEmitter = em
	if err := upline.Init(opts); err != nil {
		return err
	}
	defer upline.Close()

	screen := uio.NewQueryFilter(w.stdout)
	writers := uio.NewMultiWriter(screen)
	if w.transcript != nil {
		writers.Append(w.transcript)
	}
	writers.OnError(func(_ io.Writer, err error) {
		w.logger.Debug("dropping output writer", "error", err)
	})

	copied := make(chan struct{})
	retried := make(chan struct{})

	var g run.Group
	{
		g.Add(func() error {
			err := cmd.Wait()
			select {
			case <-copied:
			case <-time.After(outputDrain):
			}
			return err
		}, func(err error) {
			cancel()
		})
	}
	{
		// output
		ctx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			_, err := io.Copy(writers, uio.NewContextReader(ctx, ptmx))
			// output may end in the middle of a sequence
			if ferr := screen.Flush(); ferr != nil {
				w.logger.Debug("error flushing output", "error", ferr)
			}
			close(copied)
			if err != nil && !isClosedPty(err) && ctx.Err() == nil {
				w.logger.Debug("error copying output", "error", err)
			}
			<-ctx.Done()
			return nil
		}, func(err error) {
			cancel()
		})
	}
	{
		// input
		stop := make(chan struct{})
		done := make(chan struct{})
		defer func() { <-retried }()
		g.Add(func() error {
			defer close(done)
			return w.forwardInput(ptmx, isTty, stop)
		}, func(err error) {
			close(stop)
			go func() {
				defer close(retried)
				t := time.NewTicker(interruptRetry)
				defer t.Stop()
				for {
					upline.Interrupt()
					select {
					case <-done:
						return
					case <-t.C:
					}
				}
			}()
		})
	}
	if isTty {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGWINCH)
		ctx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ch:
					if err := pty.InheritSize(w.stdin, ptmx); err != nil {
						w.logger.Debug("error resizing pty", "error", err)
					}
				}
			}
		}, func(err error) {
			signal.Stop(ch)
			cancel()
		})
	}
	{
		g.Add(func() error {
			logEvents(em, w.logger)
			return nil
		}, func(err error) {
			em.Off("*")
		})
	}

	w.logger.Info("command started", "args", w.args)
	err = g.Run()
	w.logger.Info("command finished", "error", err)

	return err
}

// forwardInput reads lines until stop is closed and writes them to the
// command.
func (w *wrapper) forwardInput(ptmx io.Writer, isTty bool, stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		line, err := upline.Readline(w.prompt)
		var send string
		switch {
		case errors.Is(err, upline.ErrInterrupt):
			select {
			case <-stop:
				return nil
			default:
			}
			send = ctrlC
		case errors.Is(err, io.EOF):
			send = ctrlD
		case err != nil:
			fmt.Fprintln(w.opts.ErrOutput, err)
			continue
		default:
			send = line + "\n"
			if line != "" {
				if err := upline.AddHistory(line); err != nil {
					w.logger.Warn("error saving history", "path", upline.HistoryPath(), "error", err)
				}
			}
		}

		if _, err := io.WriteString(ptmx, send); err != nil {
			// the command is gone; its exit status is reported instead
			w.logger.Debug("error writing to command", "error", err)
			<-stop
			return nil
		}

		// a closed pipe keeps reporting end of input
		if send == ctrlD && !isTty {
			<-stop
			return nil
		}
	}
}

// isClosedPty reports whether err is how Linux reports a pty whose command
// exited.
func isClosedPty(err error) bool {
	return errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed)
}

// plainWriter writes p with ANSI escape sequences removed.
type plainWriter struct {
	w io.Writer
}

func (p *plainWriter) Write(b []byte) (int, error) {
	out, err := ansi.Strip(b)
	if err != nil {
		// a sequence split across writes
		out = b
	}
	if _, err := p.w.Write(out); err != nil {
		return 0, err
	}
	return len(b), nil
}
