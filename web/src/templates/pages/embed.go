package pages

import (
	"encoding/json"
	"time"

	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/powerbi"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

// EmbedConfig is read by /static/js/embed.js and handed to powerbi-client.
type EmbedConfig struct {
	Type        string            `json:"type"`
	ID          string            `json:"id"`
	EmbedURL    string            `json:"embedUrl"`
	AccessToken string            `json:"accessToken"`
	TokenType   powerbi.TokenType `json:"tokenType"`
	Expiration  time.Time         `json:"expiration"`
}

// NewEmbedConfig maps the view model to the client-side configuration.
func NewEmbedConfig(vm *powerbi.ReportViewModel) EmbedConfig {
	return EmbedConfig{
		Type:        "report",
		ID:          vm.ID,
		EmbedURL:    vm.EmbedURL,
		AccessToken: vm.Token,
		TokenType:   vm.TokenType,
		Expiration:  vm.Expiration,
	}
}

// EmbedContent renders the report container. The browser script does the
// actual embedding.
func EmbedContent(vm *powerbi.ReportViewModel) (g.Node, error) {
	cfg, err := json.Marshal(NewEmbedConfig(vm))
	if err != nil {
		return nil, err
	}

	return h.Div(h.Class("embed"),
		h.H2(g.Text(vm.Name)),
		h.Div(
			h.ID("embedContainer"),
			h.Class("embed-container"),
			h.Data("embed-config", string(cfg)),
		),
		h.P(h.Class("embed-meta"),
			g.Textf("Token expires %s", vm.Expiration.UTC().Format(time.RFC1123)),
		),
	), nil
}
