package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/aretw0/ttystep"
	"github.com/spf13/cobra"
)

var programsCmd = &cobra.Command{
	Use:   "programs",
	Short: "List the built-in programs",
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tIN-PLACE RESET\tDESCRIPTION")
		for _, e := range ttystep.DefaultRegistry().List() {
			fmt.Fprintf(tw, "%s\t%t\t%s\n", e.Name, e.StackConfined(), e.Description)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(programsCmd)
}
