package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wonny/movies/internal/contracts"
	"github.com/wonny/movies/internal/dataset"
	"github.com/wonny/movies/internal/intervals"
)

// intervalsCmd represents the intervals command
var intervalsCmd = &cobra.Command{
	Use:   "intervals [path]",
	Short: "Print the producer award interval report",
	Long: `Computes the producers with the minimum and maximum interval between
consecutive wins and prints the report as JSON.

Reads the configured store by default. With --from-file (or a path argument)
the dataset is parsed directly and no store is opened. DATASET_STRICT applies
in both modes.

Example:
  go run ./cmd/movies intervals --from-file data/movielist.csv
  go run ./cmd/movies intervals data/movielist.csv --workers 4`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIntervals,
}

var (
	intervalsFromFile string
	intervalsWorkers  int
)

func init() {
	rootCmd.AddCommand(intervalsCmd)

	intervalsCmd.Flags().StringVar(&intervalsFromFile, "from-file", "", "compute from a dataset file instead of the store")
	intervalsCmd.Flags().IntVar(&intervalsWorkers, "workers", 0, "engine workers (default INTERVALS_WORKERS)")
}

func runIntervals(cmd *cobra.Command, args []string) error {
	source := intervalsFromFile
	if len(args) == 1 {
		source = args[0]
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if intervalsWorkers > 0 {
		cfg.IntervalsWorkers = intervalsWorkers
	}

	ctx := context.Background()

	if source != "" {
		report, err := intervalsFromDataset(ctx, source, cfg.IntervalsWorkers,
			datasetPolicy(cfg.Dataset), newFetcher(cfg.Dataset, log))
		if err != nil {
			return err
		}
		return writeReport(cmd.OutOrStdout(), report)
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := warnIfEmpty(ctx, cmd.ErrOrStderr(), a.repo); err != nil {
		return err
	}

	report, err := a.service.ProducerIntervals(ctx)
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), *report)
}

// intervalsFromDataset parses a dataset with the given policy and runs the engine on it
func intervalsFromDataset(ctx context.Context, source string, workers int, policy dataset.Policy, fetcher dataset.Fetcher) (contracts.IntervalReport, error) {
	rc, err := dataset.Open(ctx, source, fetcher)
	if err != nil {
		return contracts.IntervalReport{}, err
	}
	defer rc.Close()

	parsed, err := dataset.Parse(rc, policy)
	if err != nil {
		return contracts.IntervalReport{}, fmt.Errorf("parse %s: %w", source, err)
	}

	return intervals.NewEngine(workers).Compute(dataset.WinningRecords(parsed.Rows)), nil
}

// warnIfEmpty tells the user when the store holds no movies.
// An in-memory sqlite store is always empty in a fresh process.
func warnIfEmpty(ctx context.Context, w io.Writer, repo contracts.MovieRepository) error {
	counts, err := repo.Counts(ctx)
	if err != nil {
		return fmt.Errorf("count catalog: %w", err)
	}
	if counts.Movies == 0 {
		fmt.Fprintln(w, "⚠️  The catalog is empty. Run 'movies load' against a persistent store or use --from-file.")
	}
	return nil
}

func writeReport(w io.Writer, report contracts.IntervalReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
