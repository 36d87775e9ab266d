package handlers

import (
	"context"
	"net/http"

	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/auth"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/middleware"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/powerbi"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/view"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/view/dto"
	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/web/src/templates/pages"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// The report embedded by /Home/Embed.
var (
	WorkspaceID = uuid.MustParse("912f2b34-7daa-4589-83df-35c75944d864")
	ReportID    = uuid.MustParse("cd496c1c-8df0-48e7-8b92-e2932298743e")
)

// EmbedRecorder keeps an audit trail of embedded reports.
type EmbedRecorder interface {
	RecordEmbed(ctx context.Context, user *auth.Identity, vm *powerbi.ReportViewModel) error
}

// HomeHandler serves the index, embed and error pages.
type HomeHandler struct {
	powerBI     powerbi.Service
	embeds      EmbedRecorder
	development bool
}

// NewHomeHandler creates a new HomeHandler. embeds may be nil.
func NewHomeHandler(powerBI powerbi.Service, embeds EmbedRecorder, development bool) *HomeHandler {
	return &HomeHandler{
		powerBI:     powerBI,
		embeds:      embeds,
		development: development,
	}
}

// Index handles GET /.
func (h *HomeHandler) Index(c echo.Context) error {
	signedIn := middleware.CurrentUser(c) != nil
	return renderPage(c, http.StatusOK, "Home Page", pages.IndexContent(signedIn))
}

// Embed handles GET /Home/Embed. Failures are returned as-is and rendered by
// the server's error handler.
func (h *HomeHandler) Embed(c echo.Context) error {
	ctx := c.Request().Context()

	vm, err := h.powerBI.GetReport(ctx, WorkspaceID, ReportID)
	if err != nil {
		return err
	}

	content, err := pages.EmbedContent(vm)
	if err != nil {
		return err
	}

	if h.embeds != nil {
		if err := h.embeds.RecordEmbed(ctx, middleware.CurrentUser(c), vm); err != nil {
			middleware.FromContext(ctx).Warn("Failed to record report embed", "report_id", vm.ID, "error", err)
		}
	}

	return renderPage(c, http.StatusOK, "Embed", content)
}

// Error handles GET /Home/Error.
func (h *HomeHandler) Error(c echo.Context) error {
	return h.RenderError(c, http.StatusOK)
}

// RenderError renders the error page with the given status. It is also used
// by the server's error handler to show the page in place of a failed request.
func (h *HomeHandler) RenderError(c echo.Context, status int) error {
	data := dto.ErrorData{
		RequestID:   view.RequestID(c),
		Development: h.development,
	}
	return renderPage(c, status, "Error", pages.ErrorContent(data))
}
