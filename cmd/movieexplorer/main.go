package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styleError.Render(err.Error()))
		os.Exit(1)
	}
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "movieexplorer",
		Short: "Browse TMDb movie listings",
		Long: "Movie Explorer browses popular, top rated and now playing movies from TMDb\n" +
			"and searches by title, in the terminal, on the web or through Telegram.",
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/movieexplorer.yaml", "path to configuration file")

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(
		newVersionCmd(),
		newBrowseCmd(),
		newListCmd(),
		newSearchCmd(),
		newServeCmd(),
		newBotCmd(),
		newMCPCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Movie Explorer v%s\n", version)
		},
	}
}
