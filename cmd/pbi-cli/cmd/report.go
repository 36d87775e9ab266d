package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/app"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/auth"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/config"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/handlers"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/powerbi"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2/clientcredentials"
)

// powerBIDefaultScope requests every application permission granted to the
// service principal.
const powerBIDefaultScope = "https://analysis.windows.net/powerbi/api/.default"

var (
	workspaceFlag    string
	reportFlag       string
	metadataOnlyFlag bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Fetch a report and an access token for embedding it",
	Long: `Calls GetReport as the application's service principal (client
credentials flow) and prints the resulting view model as JSON. The service
principal must have access to the workspace.

Defaults to the workspace and report embedded by /Home/Embed. With
--metadata-only only the report resource is fetched and no token is issued.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		workspaceID, reportID, err := parseIDs()
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		client, err := newServicePrincipalClient(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		var out any
		if metadataOnlyFlag {
			out, err = client.Report(cmd.Context(), workspaceID, reportID)
		} else {
			out, err = client.GetReport(cmd.Context(), workspaceID, reportID)
		}
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	},
}

func parseIDs() (workspaceID, reportID uuid.UUID, err error) {
	if workspaceID, err = uuid.Parse(workspaceFlag); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid --workspace: %w", err)
	}
	if reportID, err = uuid.Parse(reportFlag); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid --report: %w", err)
	}
	return workspaceID, reportID, nil
}

// addIDFlags registers --workspace and --report on cmd.
func addIDFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&workspaceFlag, "workspace", handlers.WorkspaceID.String(), "workspace (group) id")
	cmd.Flags().StringVar(&reportFlag, "report", handlers.ReportID.String(), "report id")
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newServicePrincipalClient(ctx context.Context, cfg *config.Config) (*powerbi.Client, error) {
	provider := auth.NewProvider(app.ProviderConfig(cfg))
	creds := clientcredentials.Config{
		ClientID:     cfg.AzureClientID,
		ClientSecret: cfg.AzureClientSecret,
		TokenURL:     provider.TokenURL(),
		Scopes:       []string{powerBIDefaultScope},
	}
	return powerbi.NewClient(powerbi.Options{
		BaseURL:     cfg.PowerBIAPIURL,
		TokenType:   powerbi.TokenType(cfg.PowerBITokenType),
		Timeout:     cfg.PowerBITimeout,
		TokenSource: creds.TokenSource(ctx),
	})
}

func init() {
	addIDFlags(reportCmd)
	reportCmd.Flags().BoolVar(&metadataOnlyFlag, "metadata-only", false, "fetch the report resource without a token")
	rootCmd.AddCommand(reportCmd)
}
