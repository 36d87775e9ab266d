package pages

import (
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

// IndexContent is the public landing page.
func IndexContent(signedIn bool) g.Node {
	return h.Div(h.Class("text-center"),
		h.H1(h.Class("display-4"), g.Text("Welcome")),
		h.P(g.Text("This application embeds a Power BI report using the signed-in user's own identity. "+
			"Reports are loaded with your permissions, so you only see data you are allowed to see.")),
		g.If(signedIn,
			h.P(h.A(h.Class("button"), h.Href("/Home/Embed"), g.Text("View the report"))),
		),
		g.If(!signedIn,
			h.P(h.A(h.Class("button"), h.Href("/auth/signin?redirect=%2FHome%2FEmbed"), g.Text("Sign in to view the report"))),
		),
	)
}
