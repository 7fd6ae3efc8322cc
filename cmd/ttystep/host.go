package main

import (
	"os"

	"github.com/aretw0/ttystep"
	"github.com/aretw0/ttystep/pkg/adapters/process"
	"github.com/spf13/cobra"
)

// hostCmd turns this binary into an isolated program image. The parent
// session speaks the image wire over stdin and stdout.
var hostCmd = &cobra.Command{
	Use:    process.HostCommand + " <program>",
	Short:  "Serve a program over the image wire",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	// The parent owns configuration; the child must not read it.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := ttystep.DefaultRegistry().Lookup(args[0])
		if err != nil {
			return err
		}
		return process.Host(cmd.Context(), p, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(hostCmd)
}
