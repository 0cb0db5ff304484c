package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/oklog/run"
	"github.com/olebedev/emitter"
	"github.com/owenthereal/upline"
	uplinectx "github.com/owenthereal/upline/internal/context"
	"github.com/spf13/cobra"
)

var builtinWords = []string{"exit", "help", "history", "quit"}

func replCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Run an interactive echo loop",
		Long: `Run an interactive loop that reads lines with history, completion and
history expansion, and prints them back.

Ctrl-C discards the line being edited, Ctrl-D on an empty line or "exit"
leaves the loop. "history" prints the history. Completion offers the
built-in words plus the words of the --words file.`,
		Example: `  # Complete from a word list:
  upline repl --words /usr/share/dict/words

  # Use a custom prompt and history file:
  upline repl --prompt 'sql> ' --history-file ~/.sql_history`,
		Args: cobra.NoArgs,
		RunE: replRunE,
	}

	cmd.Flags().String("prompt", "upline> ", "Prompt to display.")
	cmd.Flags().String("words", "", "File with completion words, one per line.")

	return cmd
}

func replRunE(c *cobra.Command, args []string) error {
	cfg, err := configFrom(c)
	if err != nil {
		return err
	}
	logger := loggerFrom(c)

	words, err := loadWords(cfg.Words)
	if err != nil {
		return err
	}

	r := &repl{
		prompt: stylePrompt(cfg.Prompt),
		out:    c.OutOrStdout(),
		errOut: c.ErrOrStderr(),
		logger: logger,
	}

	em := emitter.New(1)
	err = upline.Init(upline.Opts{
		Name:            cfg.Name,
		InitPath:        cfg.Inputrc,
		HistoryPath:     cfg.HistoryFile,
		MaxHistoryLen:   cfg.HistorySize,
		ExpandHistory:   cfg.ExpandHistory,
		Completer:       wordCompleter(words),
		Input:           os.Stdin,
		Output:          c.OutOrStdout(),
		ErrOutput:       c.ErrOrStderr(),
		Logger:          logger.With("component", "session"),
		MetricsProvider: uplinectx.MetricsProvider(c.Context()),
		EventEmitter:    em,
	})
	if err != nil {
		return err
	}
	defer upline.Close()

	return r.run(em)
}

type repl struct {
	prompt string
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

func (r *repl) run(em *emitter.Emitter) error {
	var g run.Group
	{
		g.Add(func() error {
			return r.loop()
		}, func(err error) {
			// Readline returns once input ends
		})
	}
	{
		g.Add(func() error {
			logEvents(em, r.logger)
			return nil
		}, func(err error) {
			em.Off("*")
		})
	}

	return g.Run()
}

func (r *repl) loop() error {
	for {
		line, err := upline.Readline(r.prompt)
		switch {
		case errors.Is(err, upline.ErrInterrupt):
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			fmt.Fprintln(r.errOut, err)
			continue
		}

		if line == "" {
			continue
		}
		if err := upline.AddHistory(line); err != nil {
			r.logger.Warn("error saving history", "path", upline.HistoryPath(), "error", err)
		}

		switch strings.TrimSpace(line) {
		case "exit", "quit":
			return nil
		case "help":
			fmt.Fprintln(r.out, "Commands: exit, help, history, quit. Anything else is echoed.")
		case "history":
			for i, h := range upline.HistoryEntries() {
				fmt.Fprintf(r.out, "%5d  %s\n", i+1, h)
			}
		default:
			fmt.Fprintln(r.out, line)
		}
	}
}

// logEvents logs session events until em.Off("*") is called.
func logEvents(em *emitter.Emitter, logger *slog.Logger) {
	for evt := range em.On("*") {
		args := evt.Args
		if len(args) == 0 {
			continue
		}
		id, _ := args[0].(string)
		logger.Debug("session event", "event", evt.OriginalTopic, "session", id)
	}
}

func stylePrompt(prompt string) string {
	if prompt == "" {
		return ""
	}
	// keep trailing spaces outside the styled region
	trimmed := strings.TrimRight(prompt, " ")
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Render(trimmed) + prompt[len(trimmed):]
}

func loadWords(path string) ([]string, error) {
	words := append([]string(nil), builtinWords...)
	if path == "" {
		return words, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error reading words file: %w", err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		if w := strings.TrimSpace(s.Text()); w != "" {
			words = append(words, w)
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("error reading words file: %w", err)
	}

	slices.Sort(words)
	return slices.Compact(words), nil
}

// wordCompleter completes the word [start, end) of line from words, which
// must be sorted.
func wordCompleter(words []string) func(line string, start, end int) []string {
	return func(line string, start, end int) []string {
		prefix := line[start:end]
		i := sort.SearchStrings(words, prefix)

		var out []string
		for ; i < len(words) && strings.HasPrefix(words[i], prefix); i++ {
			out = append(out, words[i])
		}
		return out
	}
}
