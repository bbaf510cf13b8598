package main

import (
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/panbanda/lcom/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes lcom's analysis
as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "lcom": {
        "command": "lcom",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_lcom    LCOM for every type in files or directories
  - explain_lcom    Usage matrix behind one type's LCOM value`,
		Action: runMCPCmd,
		Subcommands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "Print the MCP registry manifest (server.json)",
				Action: runMCPManifestCmd,
			},
		},
	}
}

func runMCPCmd(c *cli.Context) error {
	loaded, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg := loaded.Config

	// Stdout carries the protocol; newLogger writes to stderr.
	logger := newLogger(c)
	defer func() { _ = logger.Sync() }()

	ch, err := openCache(c, cfg)
	if err != nil {
		logger.Warn("cache disabled", zap.Error(err))
	}

	server := mcpserver.NewServer(version,
		mcpserver.WithConfig(cfg),
		mcpserver.WithCache(ch),
		mcpserver.WithLogger(logger),
	)
	return server.Run(c.Context)
}

func runMCPManifestCmd(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(version)
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(append(data, '\n'))
	return err
}
