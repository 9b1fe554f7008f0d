package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/sharptier/cms/internal/model"
)

var linkClasses = map[string]string{
	"inline":  "",
	"default": "inline-flex items-center rounded px-4 py-2 bg-primary text-primary-foreground",
	"outline": "inline-flex items-center rounded px-4 py-2 border border-border",
}

// CMSLink renders a link field. Links whose target cannot be resolved
// render nothing.
func CMSLink(link model.Link) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		href := link.Href()
		if href == "" {
			return nil
		}
		h := &htmlWriter{w: w}
		h.raw("<a")
		if class := linkClasses[link.Appearance]; class != "" {
			h.attr("class", class)
		}
		h.href(href)
		if link.NewTab {
			h.raw(` target="_blank" rel="noopener noreferrer"`)
		}
		h.raw(">")
		h.text(link.Label)
		h.raw("</a>")
		return h.err
	})
}
