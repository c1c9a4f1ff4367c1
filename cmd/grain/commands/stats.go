package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache effectiveness and the most recompiled units",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, hot := c.app.Stats()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "entries:   %d\n", stats.Entries)
			fmt.Fprintf(out, "size:      %d bytes\n", stats.TotalBytes)
			fmt.Fprintf(out, "hits:      %d\n", stats.Hits)
			fmt.Fprintf(out, "misses:    %d\n", stats.Misses)
			fmt.Fprintf(out, "hit rate:  %.1f%%\n", stats.HitRate()*100)

			if len(hot) > 0 {
				fmt.Fprintln(out, "hot units:")
				for _, h := range hot {
					fmt.Fprintf(out, "  %s (%d accesses)\n", h.UnitID, h.AccessCount)
				}
			}

			history, _ := cmd.Flags().GetInt("history")
			if history > 0 {
				for _, ev := range c.app.History(history) {
					fmt.Fprintf(out, "%d %s %s\n", ev.Timestamp, ev.Action, ev.UnitID)
				}
			}
			return nil
		},
	}
	cmd.Flags().Int("history", 0, "Also print the last N compile/invalidate events")
	return cmd
}
