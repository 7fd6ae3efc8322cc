package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/ttystep"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of ttystep",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ttystep version %s\n", strings.TrimSpace(ttystep.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
