package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "movies",
	Short: "Golden Raspberry producer award intervals",
	Long: `Movies CLI

Imports the award dataset (year;title;studios;producers;winner) and reports the
producers with the shortest and the longest gap between consecutive wins.

Usage:
  go run ./cmd/movies [command]

Examples:
  go run ./cmd/movies api
  go run ./cmd/movies load data/movielist.csv
  go run ./cmd/movies intervals --from-file data/movielist.csv
  go run ./cmd/movies test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
