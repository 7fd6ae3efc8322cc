package main

import (
	"os"

	"github.com/aretw0/ttystep/internal/cli"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the wrapped program interactively",
	Long: `Reads keys from the terminal and feeds each one as an action, echoing every
observation to stdout. The session ends when the program exits or stdin closes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applySessionFlags(cmd)
		opts, err := cfg.SessionOptions()
		if err != nil {
			return err
		}

		fd := -1
		if term.IsTerminal(int(os.Stdin.Fd())) {
			fd = int(os.Stdin.Fd())
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		info, err := cli.Play(sigCtx, cli.PlayOptions{
			In:         os.Stdin,
			Out:        os.Stdout,
			TerminalFD: fd,
			Session:    opts,
			Logger:     sessionLogger(),
		})
		if info.ID != "" {
			cli.PrintSummary(os.Stderr, info)
		}
		return cli.HandleExecutionError(err)
	},
}

func init() {
	addSessionFlags(playCmd)
	rootCmd.AddCommand(playCmd)
}
