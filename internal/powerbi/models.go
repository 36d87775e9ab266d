package powerbi

import "time"

// TokenType selects how the report is authorized in the browser.
type TokenType string

const (
	// TokenTypeEmbed requests a report scoped embed token via GenerateToken.
	TokenTypeEmbed TokenType = "Embed"
	// TokenTypeAad hands the signed-in user's Azure AD access token to the client.
	TokenTypeAad TokenType = "Aad"
)

// Report is the subset of the Power BI report resource used for embedding.
type Report struct {
	ID         string `json:"id" validate:"required"`
	Name       string `json:"name"`
	ReportType string `json:"reportType,omitempty"`
	WebURL     string `json:"webUrl,omitempty"`
	EmbedURL   string `json:"embedUrl" validate:"required,url"`
	DatasetID  string `json:"datasetId,omitempty"`
}

// EmbedToken is the response of the GenerateToken endpoint.
type EmbedToken struct {
	Token      string    `json:"token" validate:"required"`
	TokenID    string    `json:"tokenId"`
	Expiration time.Time `json:"expiration"`
}

type generateTokenRequest struct {
	AccessLevel string `json:"accessLevel"`
}

// ReportViewModel carries everything the embed view needs to render a report.
type ReportViewModel struct {
	ID          string
	Name        string
	EmbedURL    string
	Token       string
	TokenType   TokenType
	Expiration  time.Time
	WorkspaceID string
}
