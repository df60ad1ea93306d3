package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/molscope/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize molscope configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the chat provider, default style, server port and example files, and writes a .molscope.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
