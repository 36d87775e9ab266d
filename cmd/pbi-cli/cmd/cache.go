package cmd

import (
	"errors"
	"fmt"

	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/cache"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/config"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the Redis report metadata cache",
}

var cacheEvictCmd = &cobra.Command{
	Use:   "evict",
	Short: "Evict a report from the metadata cache",
	Long: `Removes the cached metadata of one report, so the next embed fetches it
from Power BI again. Use it after a report was renamed or moved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		workspaceID, reportID, err := parseIDs()
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is not set; the report cache is disabled")
		}

		c, err := cache.New(cmd.Context(), cfg.RedisURL, cfg.ReportCacheTTL)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.DeleteReport(cmd.Context(), workspaceID, reportID); err != nil {
			return fmt.Errorf("evict report: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Evicted report %s\n", reportID)
		return nil
	},
}

func init() {
	addIDFlags(cacheEvictCmd)
	cacheCmd.AddCommand(cacheEvictCmd)
	rootCmd.AddCommand(cacheCmd)
}
