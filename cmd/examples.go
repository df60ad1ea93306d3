package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/molscope/internal/examples"
)

var examplesCmd = &cobra.Command{
	Use:   "examples",
	Short: "List the example structures",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		wd, err := os.Getwd()
		if err != nil {
			return err
		}

		list, err := examples.New(wd, cfg.Examples.Paths).List()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSOURCE\tDESCRIPTION")
		for _, ex := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ex.ID, ex.Name, ex.Source, ex.Description)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(examplesCmd)
}
