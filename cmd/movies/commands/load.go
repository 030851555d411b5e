package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/movies/internal/loader"
)

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load [path|url]",
	Short: "Import a dataset into the configured store",
	Long: `Imports a movie dataset into the configured store and prints the counts.
Without an argument DATASET_PATH is used. The store is emptied first unless --append is set.

Example:
  STORAGE_DRIVER=sqlite SQLITE_PATH=movies.db go run ./cmd/movies load
  go run ./cmd/movies load https://example.com/movielist.csv --append`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLoad,
}

var (
	loadAppend bool
)

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().BoolVar(&loadAppend, "append", false, "keep existing movies")
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	source := cfg.Dataset.Path
	if len(args) == 1 {
		source = args[0]
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	var result *loader.Result
	if loadAppend {
		result, err = a.loader.LoadSource(ctx, source)
	} else {
		result, err = a.loader.Reload(ctx, source)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", source, err)
	}

	printLoadResult(cmd.OutOrStdout(), result)
	return nil
}
