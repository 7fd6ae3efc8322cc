package main

import (
	"fmt"
	"os"

	"github.com/aretw0/ttystep/pkg/ttyrec"
	"github.com/spf13/cobra"
)

var packCmd = &cobra.Command{
	Use:   "pack <recording>...",
	Short: "Compress recordings into zstd archives",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remove, _ := cmd.Flags().GetBool("rm")
		for _, src := range args {
			dst, err := ttyrec.Pack(src)
			if err != nil {
				return err
			}
			fmt.Printf("%s -> %s\n", src, dst)
			if remove {
				if err := os.Remove(src); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

func init() {
	packCmd.Flags().Bool("rm", false, "Remove each recording after packing it")
	rootCmd.AddCommand(packCmd)
}
