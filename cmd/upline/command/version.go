package command

import (
	"fmt"

	"github.com/owenthereal/upline/internal/version"
	"github.com/spf13/cobra"
)

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(c.OutOrStdout(), "upline version v%s\n", version.String())
			return err
		},
	}

	return cmd
}
