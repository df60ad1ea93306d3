package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/molscope/internal/progress"
	"github.com/ziadkadry99/molscope/internal/rcsb"
)

var (
	fetchDir         string
	fetchConcurrency int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <pdb-id>...",
	Short: "Download structure files for offline use",
	Long: `Downloads the coordinate files of the given PDB IDs into the data
directory (or --dir). Downloaded files can be offered as examples through the
examples.paths setting.`,
	Args: cobra.MinimumNArgs(1),
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

		dir := fetchDir
		if dir == "" {
			dir = cfg.StructuresDir()
		}
		client := newRCSBClient(cfg, logger)

		reporter := progress.NewReporter("Fetching structures")
		reporter.Start(len(args))
		done := 0
		results, err := client.Download(cmd.Context(), args, dir, fetchConcurrency, func(r rcsb.DownloadResult) {
			done++
			reporter.Update(done, r.ID)
		})
		reporter.Finish()
		if err != nil {
			return fmt.Errorf("fetching: %w", err)
		}

		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "  %s: %v\n", r.ID, r.Err)
				continue
			}
			fmt.Printf("%s -> %s\n", r.ID, r.Path)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d downloads failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchDir, "dir", "", "output directory (default <data_dir>/structures)")
	fetchCmd.Flags().IntVar(&fetchConcurrency, "concurrency", 4, "parallel downloads")
	rootCmd.AddCommand(fetchCmd)
}
