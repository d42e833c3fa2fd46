package main

import (
	"fmt"

	"github.com/panbanda/asaclean/internal/mcpserver"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP (Model Context Protocol) server for LLM tool integration",
	Long: `Starts an MCP server over stdio transport that exposes the cleanup as
tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "asaclean": {
        "command": "asaclean",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - cleanup_config    Removal commands and pruned configuration
  - reference_graph   References between declared objects

Available prompts:
  - review-cleanup    Plan the cleanup of one configuration (path, match_mode, ref)
  - explain-object    Explain why one object is kept or removed (path, name, match_mode)`,
	RunE: runMCP,
}

var mcpManifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Print the MCP registry manifest (server.json)",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := mcpserver.GenerateManifest(version)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpManifestCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	server := mcpserver.NewServer(version, mcpserver.WithConfig(cfg))
	return server.Run(cmd.Context())
}
