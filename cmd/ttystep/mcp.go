package main

import (
	"context"
	"fmt"

	"github.com/aretw0/ttystep/internal/cli"
	"github.com/aretw0/ttystep/pkg/adapters/mcp"
	"github.com/aretw0/ttystep/pkg/observability"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes sessions as MCP tools (start_session, step, reset_session,
end_session, list_sessions) so agents can drive console programs.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applySessionFlags(cmd)
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")

		mgr, store, err := newManager(observability.LogHooks(logger))
		if err != nil {
			return err
		}
		defer store.Close()
		defer mgr.Close(context.Background())

		srv := mcp.NewServer(mgr, mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			logger.Info("Starting ttystep MCP Server (Stdio)")
			return srv.ServeStdio()
		case "sse":
			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()
			return srv.ServeSSE(sigCtx, addr)
		default:
			return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", transport)
		}
	},
}

func init() {
	addSessionFlags(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8081", "Listen address (only for SSE)")
	rootCmd.AddCommand(mcpCmd)
}
