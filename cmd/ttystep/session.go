package main

import (
	"fmt"
	"os"

	"github.com/aretw0/ttystep/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored sessions",
	Long:  `List, inspect, and remove sessions recorded by serve and mcp.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cli.OpenStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		return cli.ListSessions(cmd.Context(), os.Stdout, store)
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Inspect a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cli.OpenStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		return cli.InspectSession(cmd.Context(), os.Stdout, store, args[0])
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cli.OpenStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		var failed int
		for _, id := range args {
			if err := cli.RemoveSession(cmd.Context(), store, id); err != nil {
				fmt.Fprintf(os.Stderr, "Error removing '%s': %v\n", id, err)
				failed++
				continue
			}
			fmt.Printf("Removed session '%s'\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d sessions not removed", failed, len(args))
		}
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionLsCmd, sessionInspectCmd, sessionRmCmd)
	rootCmd.AddCommand(sessionCmd)
}
