package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/sharptier/cms/internal/model"
)

func PageView(page *model.Page) templ.Component {
	return Layout(page.Title, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw("<article>")
		h.render(ctx, RenderHero(page.Hero))
		h.render(ctx, RenderBlocks(page.Layout))
		h.raw("</article>")
		return h.err
	}))
}

func PostView(post *model.Post) templ.Component {
	return Layout(post.Title, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<article><div class="container pt-16"><h1>`)
		h.text(post.Title)
		h.raw("</h1></div>")
		h.render(ctx, RenderBlocks(post.Content))
		h.raw("</article>")
		return h.err
	}))
}
