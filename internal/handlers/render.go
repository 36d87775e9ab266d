package handlers

import (
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/middleware"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/view"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/view/dto"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/web/src/templates/layouts"
	"github.com/labstack/echo/v4"
	g "maragu.dev/gomponents"
)

// renderPage wraps gomponents content in the base layout and renders it
// through the echo renderer.
func renderPage(c echo.Context, status int, title string, content g.Node) error {
	data := dto.LayoutData{
		Title: title,
		Flash: view.GetFlashData(c),
	}
	if user := middleware.CurrentUser(c); user != nil {
		data.UserName = user.DisplayName()
	}

	page := layouts.Base(data, view.AdaptGomponentToTempl(content))
	return c.Render(status, "", page)
}
