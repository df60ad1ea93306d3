package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/molscope/internal/db"
	"github.com/ziadkadry99/molscope/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently loaded structures",
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

		database, err := db.Open(cfg.DatabasePath())
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		entries, err := history.NewStore(database, logger).Recent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No loads recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tID\tPHASE\tCHAINS\tSTYLE\tTITLE")
		for _, e := range entries {
			id := e.StructureID
			if id == "" {
				id = "-"
			}
			title := e.Title
			if e.Error != "" {
				title = e.Error
			}
			if len(title) > 60 {
				title = title[:57] + "..."
			}
			phase := color.GreenString(e.Phase)
			if e.Error != "" {
				phase = color.RedString(e.Phase)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				e.LoadedAt.Local().Format("2006-01-02 15:04:05"), id, phase, e.ChainCount, e.Style, title)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to show")
	rootCmd.AddCommand(historyCmd)
}
