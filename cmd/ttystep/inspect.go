package main

import (
	"fmt"
	"os"

	"github.com/aretw0/ttystep/internal/cli"
	"github.com/aretw0/ttystep/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <recording>",
	Short: "Summarise a recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := cli.Inspect(args[0])
		if err != nil {
			return err
		}

		if md, _ := cmd.Flags().GetBool("markdown"); md {
			out, err := tui.NewRenderer()(report.Markdown())
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		}
		report.WriteText(os.Stdout)
		return nil
	},
}

func init() {
	inspectCmd.Flags().Bool("markdown", false, "Render the report as markdown")
	rootCmd.AddCommand(inspectCmd)
}
