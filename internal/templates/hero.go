package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/sharptier/cms/internal/model"
)

// RenderHero picks the hero component for the page. "none" and unknown
// types render nothing.
func RenderHero(hero model.Hero) templ.Component {
	switch hero.Type {
	case model.HeroHighImpact:
		return HighImpactHero(hero)
	default:
		return templ.NopComponent
	}
}

func HighImpactHero(hero model.Hero) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="container py-24"><div class="mx-auto max-w-[36.5rem] md:text-center">`)
		if hero.RichText != nil {
			h.render(ctx, RichText(hero.RichText, "mb-6"))
		}
		if len(hero.Links) > 0 {
			h.raw(`<ul class="flex md:justify-center gap-4">`)
			for _, item := range hero.Links {
				h.raw("<li>")
				h.render(ctx, CMSLink(item.Link))
				h.raw("</li>")
			}
			h.raw("</ul>")
		}
		h.raw("</div></div>")
		return h.err
	})
}
