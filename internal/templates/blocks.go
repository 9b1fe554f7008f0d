package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/sharptier/cms/internal/model"
)

// RenderBlocks renders a layout in order. Unknown block types render nothing.
func RenderBlocks(blocks []model.Block) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		for _, b := range blocks {
			switch b.BlockType {
			case model.BlockTypeContent:
				h.render(ctx, ContentBlock(b))
			case model.BlockTypeReusableContent:
				h.render(ctx, ReusableContentBlock(b))
			}
		}
		return h.err
	})
}

func ContentBlock(b model.Block) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="container my-16">`)
		if b.RichText != nil {
			h.render(ctx, RichText(b.RichText, ""))
		}
		h.raw("</div>")
		return h.err
	})
}

// ReusableContentBlock renders the block's own content when it overrides
// its template, the template's content otherwise. An unpopulated template
// renders an empty container.
func ReusableContentBlock(b model.Block) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="container my-16">`)
		if blocks := b.ResolvedContent(); len(blocks) > 0 {
			h.render(ctx, RenderBlocks(blocks))
		}
		h.raw("</div>")
		return h.err
	})
}
