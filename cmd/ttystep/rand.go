package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aretw0/ttystep"
	"github.com/aretw0/ttystep/internal/cli"
	"github.com/aretw0/ttystep/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var randCmd = &cobra.Command{
	Use:   "rand",
	Short: "Play random episodes and report steps per second",
	Long: `Feeds uniformly random actions from the MORE-and-compass set, after the
"y", "y", newline prelude, for the given number of episodes. The session is
reset between episodes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applySessionFlags(cmd)
		opts, err := cfg.SessionOptions()
		if err != nil {
			return err
		}
		episodes, _ := cmd.Flags().GetInt("episodes")
		maxSteps, _ := cmd.Flags().GetInt("max-steps")
		seed, _ := cmd.Flags().GetUint64("seed")
		every, _ := cmd.Flags().GetDuration("report")
		quiet, _ := cmd.Flags().GetBool("quiet")

		if !quiet {
			tui.PrintBanner(os.Stderr, strings.TrimSpace(ttystep.Version))
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		stats, err := cli.RandomPlay(sigCtx, cli.RandomOptions{
			Episodes:    episodes,
			MaxSteps:    maxSteps,
			Seed:        seed,
			ReportEvery: every,
			Out:         os.Stderr,
			Session:     opts,
			Logger:      sessionLogger(),
		})
		fmt.Fprintln(os.Stderr, tui.Success(fmt.Sprintf("%d episodes, %d steps in %s (%.0f steps/s)",
			stats.Episodes, stats.Steps, stats.Elapsed.Round(time.Millisecond), stats.StepsPerSecond())))
		if stats.Session.ID != "" {
			cli.PrintSummary(os.Stderr, stats.Session)
		}
		return cli.HandleExecutionError(err)
	},
}

func init() {
	addSessionFlags(randCmd)
	randCmd.Flags().IntP("episodes", "n", 1, "Number of episodes")
	randCmd.Flags().Int("max-steps", 10000, "Step limit per episode (0 for none)")
	randCmd.Flags().Uint64("seed", 0, "Random seed")
	randCmd.Flags().Duration("report", 0, "Progress report interval (0 disables)")
	randCmd.Flags().BoolP("quiet", "q", false, "Skip the banner")
	rootCmd.AddCommand(randCmd)
}
