package handlers

import (
	"context"
	"encoding/json"
	"maps"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sharptier/cms/internal/model"
	"github.com/sharptier/cms/internal/service"
)

func ListTemplatesHandler(content *service.ContentService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sortBy, order := sortParams(c, "title")
		templates, err := content.Templates().GetAllSorted(c.UserContext(), sortBy, order)
		if err != nil {
			return writeError(c, logger, err)
		}
		return listResponse(c, templates)
	}
}

func GetTemplateHandler(content *service.ContentService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return invalidID(c)
		}

		tpl, err := content.Templates().GetByID(c.UserContext(), id)
		if err != nil {
			return writeError(c, logger, err)
		}
		if tpl == nil {
			return writeError(c, logger, service.ErrNotFound)
		}
		return c.JSON(tpl)
	}
}

// SaveTemplateHandler serves POST on the collection and PATCH on a document
func SaveTemplateHandler(content *service.ContentService, logger *zap.Logger) fiber.Handler {
	return saveHandler(logger, "Template", content.Templates().GetByID, content.SaveTemplate,
		func(t *model.Template, id int64) { t.ID = id })
}

func ListPagesHandler(content *service.ContentService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		sortBy, order := sortParams(c, "title")
		pages, err := content.Pages().GetAllSorted(ctx, sortBy, order)
		if err != nil {
			return writeError(c, logger, err)
		}
		if depthParam(c) > 0 {
			for i := range pages {
				if err := content.Populate(ctx, pages[i].Layout); err != nil {
					return writeError(c, logger, err)
				}
			}
		}
		return listResponse(c, pages)
	}
}

func GetPageHandler(content *service.ContentService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		id, ok := paramID(c)
		if !ok {
			return invalidID(c)
		}

		page, err := content.Pages().GetByID(ctx, id)
		if err != nil {
			return writeError(c, logger, err)
		}
		if page == nil {
			return writeError(c, logger, service.ErrNotFound)
		}
		if depthParam(c) > 0 {
			if err := content.Populate(ctx, page.Layout); err != nil {
				return writeError(c, logger, err)
			}
			if err := content.PopulateLinks(ctx, page.Hero.Links); err != nil {
				return writeError(c, logger, err)
			}
		}
		return c.JSON(page)
	}
}

func SavePageHandler(content *service.ContentService, logger *zap.Logger) fiber.Handler {
	return saveHandler(logger, "Page", content.Pages().GetByID, content.SavePage,
		func(p *model.Page, id int64) { p.ID = id })
}

func ListPostsHandler(content *service.ContentService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		sortBy, order := sortParams(c, "title")
		posts, err := content.Posts().GetAllSorted(ctx, sortBy, order)
		if err != nil {
			return writeError(c, logger, err)
		}
		if depthParam(c) > 0 {
			for i := range posts {
				if err := content.Populate(ctx, posts[i].Content); err != nil {
					return writeError(c, logger, err)
				}
			}
		}
		return listResponse(c, posts)
	}
}

func GetPostHandler(content *service.ContentService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		id, ok := paramID(c)
		if !ok {
			return invalidID(c)
		}

		post, err := content.Posts().GetByID(ctx, id)
		if err != nil {
			return writeError(c, logger, err)
		}
		if post == nil {
			return writeError(c, logger, service.ErrNotFound)
		}
		if depthParam(c) > 0 {
			if err := content.Populate(ctx, post.Content); err != nil {
				return writeError(c, logger, err)
			}
		}
		return c.JSON(post)
	}
}

func SavePostHandler(content *service.ContentService, logger *zap.Logger) fiber.Handler {
	return saveHandler(logger, "Post", content.Posts().GetByID, content.SavePost,
		func(p *model.Post, id int64) { p.ID = id })
}

// DeleteDocumentHandler removes a template, page or post
func DeleteDocumentHandler(content *service.ContentService, collection string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return invalidID(c)
		}
		if err := content.Delete(c.UserContext(), collection, id); err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(fiber.Map{"id": id, "message": "Deleted successfully."})
	}
}

func ListRedirectsHandler(redirects *service.RedirectService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		all, err := redirects.Redirects().GetAll(c.UserContext())
		if err != nil {
			return writeError(c, logger, err)
		}
		return listResponse(c, all)
	}
}

func GetRedirectHandler(redirects *service.RedirectService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return invalidID(c)
		}
		r, err := redirects.Redirects().GetByID(c.UserContext(), id)
		if err != nil {
			return writeError(c, logger, err)
		}
		if r == nil {
			return writeError(c, logger, service.ErrNotFound)
		}
		return c.JSON(r)
	}
}

func SaveRedirectHandler(redirects *service.RedirectService, logger *zap.Logger) fiber.Handler {
	return saveHandler(logger, "Redirect", redirects.Redirects().GetByID, redirects.Save,
		func(r *model.Redirect, id int64) { r.ID = id })
}

func DeleteRedirectHandler(redirects *service.RedirectService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return invalidID(c)
		}
		if err := redirects.Delete(c.UserContext(), id); err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(fiber.Map{"id": id, "message": "Deleted successfully."})
	}
}

// saveHandler creates a document from the body, or with an :id param
// applies the body as a merge patch over the stored document. Ids in
// bodies are ignored.
func saveHandler[T any](
	logger *zap.Logger,
	noun string,
	load func(context.Context, int64) (*T, error),
	save func(context.Context, *T) error,
	setID func(*T, int64),
) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		doc := new(T)
		var id int64
		status, verb := fiber.StatusCreated, "created"

		if c.Params("id") != "" {
			var ok bool
			if id, ok = paramID(c); !ok {
				return invalidID(c)
			}
			existing, err := load(ctx, id)
			if err != nil {
				return writeError(c, logger, err)
			}
			if existing == nil {
				return writeError(c, logger, service.ErrNotFound)
			}
			doc, status, verb = existing, fiber.StatusOK, "updated"
		}

		doc, err := mergePatch(doc, c.Body())
		if err != nil {
			return errorResponse(c, fiber.StatusBadRequest, apiError{Message: "Invalid request body"})
		}
		setID(doc, id)

		if err := save(ctx, doc); err != nil {
			return writeError(c, logger, err)
		}
		return docResponse(c, status, doc, noun+" successfully "+verb+".")
	}
}

// mergePatch overlays the top-level keys of patch onto base and decodes the
// result into a fresh value, so replaced arrays carry nothing over.
func mergePatch[T any](base *T, patch []byte) (*T, error) {
	var changes map[string]json.RawMessage
	if err := json.Unmarshal(patch, &changes); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	maps.Copy(fields, changes)

	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(merged, out); err != nil {
		return nil, err
	}
	return out, nil
}
