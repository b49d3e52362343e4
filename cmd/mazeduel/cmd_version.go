package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MJE43/maze-duel/internal/api"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Skips config loading.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			v := api.GetVersionInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "mazeduel %s (commit %s, built %s)\n", v.EngineVersion, v.GitCommit, v.BuildTime)
		},
	}
}
