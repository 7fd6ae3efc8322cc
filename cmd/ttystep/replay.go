package main

import (
	"os"

	"github.com/aretw0/ttystep/internal/cli"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay <recording>",
	Short: "Replay the output of a recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		speed, _ := cmd.Flags().GetFloat64("speed")
		follow, _ := cmd.Flags().GetBool("follow")

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		if follow {
			return cli.FollowReplay(sigCtx, os.Stdout, args[0])
		}
		return cli.HandleExecutionError(cli.Replay(sigCtx, os.Stdout, args[0], speed))
	},
}

func init() {
	replayCmd.Flags().Float64("speed", 1, "Playback speed multiplier (0 for no delays)")
	replayCmd.Flags().BoolP("follow", "f", false, "Keep printing records as they are appended")
	rootCmd.AddCommand(replayCmd)
}
