package handlers

import (
	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"

	"github.com/sharptier/cms/internal/model"
	"github.com/sharptier/cms/internal/service"
	"github.com/sharptier/cms/internal/templates"
)

// PageHandler renders the page named by :slug, or the home page at "/"
func PageHandler(content *service.ContentService, redirects *service.RedirectService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if done, err := applyRedirect(c, redirects, true, logger); done {
			return err
		}

		slug := c.Params("slug", model.HomeSlug)
		page, err := content.Pages().GetBySlug(ctx, slug)
		if err != nil {
			logger.Error("Error loading page", zap.String("slug", slug), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading page")
		}
		if page == nil {
			return notFound(c, redirects, logger)
		}

		if err := content.Populate(ctx, page.Layout); err != nil {
			logger.Warn("Error populating page layout", zap.String("slug", slug), zap.Error(err))
		}
		if err := content.PopulateLinks(ctx, page.Hero.Links); err != nil {
			logger.Warn("Error populating hero links", zap.String("slug", slug), zap.Error(err))
		}

		handler := adaptor.HTTPHandler(templ.Handler(templates.PageView(page)))
		return handler(c)
	}
}

// PostHandler renders the post named by :slug
func PostHandler(content *service.ContentService, redirects *service.RedirectService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if done, err := applyRedirect(c, redirects, true, logger); done {
			return err
		}

		slug := c.Params("slug")
		post, err := content.Posts().GetBySlug(ctx, slug)
		if err != nil {
			logger.Error("Error loading post", zap.String("slug", slug), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading post")
		}
		if post == nil {
			return notFound(c, redirects, logger)
		}

		if err := content.Populate(ctx, post.Content); err != nil {
			logger.Warn("Error populating post content", zap.String("slug", slug), zap.Error(err))
		}

		handler := adaptor.HTTPHandler(templ.Handler(templates.PostView(post)))
		return handler(c)
	}
}

// applyRedirect consults the redirect table for the request path. done is
// true when a response has been written. Lookup failures are logged and
// rendering continues.
func applyRedirect(c *fiber.Ctx, redirects *service.RedirectService, disableNotFound bool, logger *zap.Logger) (done bool, err error) {
	decision, err := redirects.Resolve(c.UserContext(), c.Path(), disableNotFound)
	if err != nil {
		logger.Warn("Redirect lookup failed", zap.String("path", c.Path()), zap.Error(err))
		return false, nil
	}

	switch decision.Outcome {
	case service.Redirect:
		return true, c.Redirect(decision.Location, fiber.StatusTemporaryRedirect)
	case service.NotFound:
		return true, renderNotFound(c)
	default:
		return false, nil
	}
}

// notFound gives redirects a second chance before answering 404
func notFound(c *fiber.Ctx, redirects *service.RedirectService, logger *zap.Logger) error {
	if done, err := applyRedirect(c, redirects, false, logger); done {
		return err
	}
	return renderNotFound(c)
}

func renderNotFound(c *fiber.Ctx) error {
	handler := adaptor.HTTPHandler(templ.Handler(templates.NotFound(), templ.WithStatus(fiber.StatusNotFound)))
	return handler(c)
}
