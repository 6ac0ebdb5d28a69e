package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vadimtrunov/movieexplorer/internal/config"
	mcpserver "github.com/vadimtrunov/movieexplorer/internal/mcp"
)

// newMCPCmd returns the "mcp" subcommand.
// It serves the listing tools over stdin/stdout, so logs go to stderr.
func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start an MCP server over stdio",
		Long:  "Expose list_movies, search_movies and get_movie_details as Model Context Protocol tools.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			logger := config.SetupLogger(cfg.App.LogLevel, os.Stderr)
			client := initTMDb(cfg, logger)

			srv := mcpserver.NewServer(mcpserver.Deps{
				Source:   client,
				Details:  client,
				Renderer: newRenderer(cfg),
			}, version, logger)
			return srv.ServeStdio(cmd.Context())
		},
	}
}
