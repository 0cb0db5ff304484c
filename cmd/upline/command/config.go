package command

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func configCmd() *cobra.Command {
	configPath := ConfigFilePath()
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage upline configuration",
		Long: fmt.Sprintf(`Manage upline configuration file.

Config file: %s

This follows the XDG Base Directory Specification.

Configuration priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (UPLINE_ prefix)
  3. Config file
  4. Default values`, configPath),
	}

	cmd.AddCommand(configPathCmd())
	cmd.AddCommand(configViewCmd())

	return cmd
}

func configPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show the path to the config file",
		Example: `  # Create config file directory:
  mkdir -p "$(dirname "$(upline config path)")"`,
		Args: cobra.NoArgs,
		RunE: configPathRunE,
	}
}

func configViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the effective settings",
		Long: `Show the settings in effect after merging flags, environment variables and
the config file, in the config file format.`,
		Example: `  # Start a config file from the current settings:
  upline config view > "$(upline config path)"`,
		Args: cobra.NoArgs,
		RunE: configViewRunE,
	}
}

func configPathRunE(c *cobra.Command, args []string) error {
	path, err := c.Flags().GetString("config")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.OutOrStdout(), path)
	return err
}

func configViewRunE(c *cobra.Command, args []string) error {
	cfg, err := configFrom(c)
	if err != nil {
		return err
	}

	path, err := c.Flags().GetString("config")
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(c.OutOrStdout(), "# %s does not exist, showing defaults\n", path)
	}

	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	_, err = c.OutOrStdout().Write(b)
	return err
}
