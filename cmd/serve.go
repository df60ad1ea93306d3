package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/molscope/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing structure loading, search, styling and chat tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		a, err := newApp(cfg, logger, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		mcpserver.Version = Version

		var asker mcpserver.Asker
		if a.chat != nil {
			asker = a.chat
		}

		fmt.Fprintf(os.Stderr, "molscope MCP server started on stdio (chat %s)\n", chatStatus(a))

		srv := mcpserver.NewServer(a.coord, a.client, asker, a.examples,
			mcpserver.WithMinQueryLength(cfg.Search.MinQueryLength))
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
