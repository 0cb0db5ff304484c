package command

import (
	"fmt"
	"strconv"

	"github.com/owenthereal/upline"
	"github.com/owenthereal/upline/history"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage the history file",
		Long: `Manage the history file.

The file is ~/.NAME_history unless --history-file is given.`,
	}

	cmd.AddCommand(historyListCmd())
	cmd.AddCommand(historyClearCmd())
	cmd.AddCommand(historyTruncateCmd())

	return cmd
}

func historyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the history, oldest first",
		Example: `  # Show the last entries:
  upline history list | tail`,
		Args: cobra.NoArgs,
		RunE: historyListRunE,
	}
}

func historyClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all history entries",
		Args:  cobra.NoArgs,
		RunE:  historyClearRunE,
	}
}

func historyTruncateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "truncate N",
		Short: "Keep only the N most recent entries",
		Example: `  # Keep the last 100 entries:
  upline history truncate 100`,
		Args: cobra.ExactArgs(1),
		RunE: historyTruncateRunE,
	}
}

func historyPath(c *cobra.Command) (string, error) {
	cfg, err := configFrom(c)
	if err != nil {
		return "", err
	}
	if cfg.HistoryFile != "" {
		return cfg.HistoryFile, nil
	}
	return upline.DefaultHistoryPath(cfg.Name)
}

func historyListRunE(c *cobra.Command, args []string) error {
	path, err := historyPath(c)
	if err != nil {
		return err
	}

	l := history.NewList()
	if err := history.ReadFile(path, l); err != nil {
		return err
	}

	for i, e := range l.Entries() {
		if _, err := fmt.Fprintf(c.OutOrStdout(), "%5d  %s\n", i+1, e); err != nil {
			return err
		}
	}
	return nil
}

func historyClearRunE(c *cobra.Command, args []string) error {
	path, err := historyPath(c)
	if err != nil {
		return err
	}

	if err := history.TruncateFile(path, 0); err != nil {
		return fmt.Errorf("error clearing history: %w", err)
	}
	loggerFrom(c).Info("history cleared", "path", path)
	return nil
}

func historyTruncateRunE(c *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return fmt.Errorf("invalid entry count %q", args[0])
	}

	path, err := historyPath(c)
	if err != nil {
		return err
	}

	if err := history.TruncateFile(path, n); err != nil {
		return fmt.Errorf("error truncating history: %w", err)
	}
	loggerFrom(c).Info("history truncated", "path", path, "entries", n)
	return nil
}
