package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "molscope",
	Short: "Interactive molecular structure viewer session",
	Long: `molscope loads protein structures from the Protein Data Bank or pasted
PDB text, colors them by chain, and serves a live browser view with a
debounced structure search and a chat assistant that knows what is on
screen. The same session is exposed to AI agents over MCP.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".molscope.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
