package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/molscope/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the Protein Data Bank",
	Args:  cobra.MinimumNArgs(1),
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

		query := strings.TrimSpace(strings.Join(args, " "))
		if len(query) < cfg.Search.MinQueryLength {
			return fmt.Errorf("query must be at least %d characters", cfg.Search.MinQueryLength)
		}

		results, err := search.Query(cmd.Context(), newRCSBClient(cfg, logger), query)
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}
		if len(results) == 0 {
			fmt.Println("No structures found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE")
		for _, r := range results {
			title := r.Title
			if len(title) > 80 {
				title = title[:77] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\n", r.ID, title)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
