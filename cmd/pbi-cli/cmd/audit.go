package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/audit"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/config"
	"github.com/spf13/cobra"
)

var auditLimitFlag int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List recent report embeds from the audit trail",
	Long: `Reads the audit trail written by the server (AUDIT_LOG_PATH) and prints
the most recent embeds, newest last.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, name, err := audit.OpenTrail(cfg.AuditLogPath)
		if err != nil {
			return err
		}
		events, err := audit.ReadEvents(cmd.Context(), store, name)
		if err != nil {
			return err
		}
		if auditLimitFlag > 0 && len(events) > auditLimitFlag {
			events = events[len(events)-auditLimitFlag:]
		}
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No embeds recorded.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tUSER\tREPORT\tTOKEN\tTRACE")
		for _, ev := range events {
			user := ev.UserName
			if user == "" {
				user = "(service principal)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				ev.Time.Format(time.RFC3339), user, ev.ReportName, ev.TokenType, ev.TraceID)
		}
		return w.Flush()
	},
}

func init() {
	auditCmd.Flags().IntVar(&auditLimitFlag, "limit", 20, "number of events to show, 0 for all")
	rootCmd.AddCommand(auditCmd)
}
