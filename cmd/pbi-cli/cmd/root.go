package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pbi-cli",
	Short: "User Owns Data operator tool",
	Long: `pbi-cli inspects the configuration of the User Owns Data server and
calls the Power BI REST API with the same client the server uses.

Available commands:
  audit        List recent report embeds from the audit trail
  cache evict  Evict a report from the Redis metadata cache
  config       Print the effective configuration with secrets masked
  report       Fetch a report and its embed token as a service principal
  version      Print the version number

Use "pbi-cli [command] --help" for more information about a specific command.`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
