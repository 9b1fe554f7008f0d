package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Layout wraps body in the site shell
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<!doctype html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw("<title>")
		h.text(title)
		h.raw("</title></head><body><main>")
		h.render(ctx, body)
		h.raw("</main></body></html>")
		return h.err
	})
}

// NotFound is the 404 page
func NotFound() templ.Component {
	return Layout("Not Found", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="container py-28"><h1>404</h1><p>This page could not be found.</p></div>`)
		return h.err
	}))
}
