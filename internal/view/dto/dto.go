// Package dto holds the view models passed from handlers to templates.
package dto

import "github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/view"

// LayoutData is shared by every page rendered inside the base layout.
type LayoutData struct {
	Title string
	// UserName is empty for anonymous visitors.
	UserName string
	Flash    view.FlashData
}

// ErrorData backs the error page.
type ErrorData struct {
	RequestID   string
	Development bool
}

// ShowRequestID reports whether there is an id worth displaying.
func (d ErrorData) ShowRequestID() bool {
	return d.RequestID != ""
}
