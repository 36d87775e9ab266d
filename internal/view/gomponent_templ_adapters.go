package view

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"maragu.dev/gomponents"
)

// GomponentToTemplAdapter wraps a gomponents.Node so page content built with
// gomponents can be passed to a templ layout.
type GomponentToTemplAdapter struct {
	Node gomponents.Node
}

func (a *GomponentToTemplAdapter) Render(_ context.Context, w io.Writer) error {
	return a.Node.Render(w)
}

// AdaptGomponentToTempl converts a gomponents.Node into a templ.Component.
func AdaptGomponentToTempl(node gomponents.Node) templ.Component {
	return &GomponentToTemplAdapter{Node: node}
}

// TemplToGomponentAdapter wraps a templ.Component so it can be placed inside
// a gomponents tree. gomponents does not pass a context while rendering, so
// the adapter carries the one the component should see.
type TemplToGomponentAdapter struct {
	Ctx       context.Context
	Component templ.Component
}

func (a *TemplToGomponentAdapter) Render(w io.Writer) error {
	ctx := a.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return a.Component.Render(ctx, w)
}

// AdaptTemplToGomponent converts a templ.Component into a gomponents.Node
// rendered with ctx.
func AdaptTemplToGomponent(ctx context.Context, component templ.Component) gomponents.Node {
	return &TemplToGomponentAdapter{Ctx: ctx, Component: component}
}
