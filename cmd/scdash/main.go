package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

// Global flags
var configPath string

var rootCmd = &cobra.Command{
	Use:   "scdash",
	Short: "scdash - Google Search Console dashboard",
	Long: `scdash serves a dashboard of Google Search Console analytics.

It fetches rows from an analytics backend on behalf of the signed-in browser
and renders the top queries, a device breakdown and a table of results.

Get started:
  SCDASH_BACKEND_URL=https://backend.example.com \
  SCDASH_SESSION_SECRET=... scdash serve`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the scdash version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "scdash %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
