package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build [files...]",
		Short: "Incrementally compile the configured files",
		Long: "Build recompiles only the units whose content or dependencies " +
			"changed since the last run. Without arguments every configured " +
			"file is built.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Run(cmd.Context(), args)
		},
	}
}
