package layouts

import (
	"context"
	"io"

	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/view"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/view/dto"
	"github.com/a-h/templ"
	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	h "maragu.dev/gomponents/html"
)

const (
	powerBIClientJS = "https://cdn.jsdelivr.net/npm/powerbi-client@2.23.1/dist/powerbi.min.js"
	htmxJS          = "https://unpkg.com/htmx.org@2.0.4"
)

// Base wraps page content in the site chrome: navigation, sign-in state and
// flash messages.
func Base(data dto.LayoutData, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return document(ctx, data, content).Render(w)
	})
}

func document(ctx context.Context, data dto.LayoutData, content templ.Component) g.Node {
	return h.Doctype(
		h.HTML(h.Lang("en"),
			h.Head(
				h.Meta(h.Charset("utf-8")),
				h.Meta(h.Name("viewport"), h.Content("width=device-width, initial-scale=1.0")),
				h.TitleEl(g.Text(CalculateTitle(data.Title))),
				h.Link(h.Rel("stylesheet"), h.Href("/static/css/site.css")),
				h.Script(h.Src(htmxJS), h.Defer()),
				h.Script(h.Src(powerBIClientJS), h.Defer()),
				h.Script(h.Src("/static/js/embed.js"), h.Defer()),
			),
			h.Body(
				navbar(data.UserName),
				h.Main(h.Class("container"), g.Attr("role", "main"),
					flashes(data.Flash),
					view.AdaptTemplToGomponent(ctx, content),
				),
				h.Footer(h.Class("footer"),
					g.Text("Power BI embedding with User Owns Data"),
				),
			),
		),
	)
}

func navbar(userName string) g.Node {
	return h.Nav(h.Class("navbar"), hx.Boost("true"),
		h.A(h.Class("brand"), h.Href("/"), g.Text("User Owns Data")),
		h.Ul(h.Class("nav"),
			h.Li(h.A(h.Href("/"), g.Text("Home"))),
			h.Li(h.A(h.Href("/Home/Embed"), hx.Boost("false"), g.Text("Embed Report"))),
		),
		h.Div(h.Class("account"),
			g.If(userName != "",
				g.Group{
					h.Span(h.Class("user"), g.Text("Hello, "+userName)),
					h.A(h.Href("/auth/signout"), hx.Boost("false"), g.Text("Sign out")),
				},
			),
			g.If(userName == "",
				h.A(h.Href("/auth/signin"), hx.Boost("false"), g.Text("Sign in")),
			),
		),
	)
}

func flashes(f view.FlashData) g.Node {
	if f.Empty() {
		return nil
	}
	return h.Div(h.Class("flashes"),
		g.Map(f.Success, func(msg string) g.Node {
			return h.Div(h.Class("flash flash-success"), g.Attr("role", "status"), g.Text(msg))
		}),
		g.Map(f.Error, func(msg string) g.Node {
			return h.Div(h.Class("flash flash-error"), g.Attr("role", "alert"), g.Text(msg))
		}),
	)
}
