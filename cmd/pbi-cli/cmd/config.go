package cmd

import (
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Loads the configuration the same way the server does (.env file, then
the environment), validates it and prints it as JSON with secrets masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return printJSON(cmd, cfg.Redacted())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
