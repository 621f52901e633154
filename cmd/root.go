package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/royo00/music/server"
)

var rootCmd = &cobra.Command{
	Use:   "music_server",
	Short: "Moderated music catalog service.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
