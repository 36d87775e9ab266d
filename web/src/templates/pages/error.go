package pages

import (
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/view/dto"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

// ErrorContent is shown for any request that failed.
func ErrorContent(data dto.ErrorData) g.Node {
	return h.Div(
		h.H1(h.Class("text-danger"), g.Text("Error.")),
		h.H2(h.Class("text-danger"), g.Text("An error occurred while processing your request.")),

		g.If(data.ShowRequestID(),
			h.P(
				h.Strong(g.Text("Request ID:")),
				g.Text(" "),
				h.Code(g.Text(data.RequestID)),
			),
		),

		g.If(data.Development,
			g.Group{
				h.H3(g.Text("Development Mode")),
				h.P(g.Text("The full error and its stack trace were written to the server log under the request ID above.")),
				h.P(
					h.Strong(g.Text("The development environment shouldn't be enabled for deployed applications.")),
					g.Text(" Set APP_ENV to production before deploying."),
				),
			},
		),
	)
}
