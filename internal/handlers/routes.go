package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sharptier/cms/internal/editor"
	"github.com/sharptier/cms/internal/model"
	"github.com/sharptier/cms/internal/service"
)

// Dependencies are the services the routes are built from
type Dependencies struct {
	Content   *service.ContentService
	Redirects *service.RedirectService
	Fetcher   editor.TemplateFetcher
	Stamper   *service.Stamper
	APIKey    string
	EditorTTL time.Duration
	Logger    *zap.Logger
}

// Register mounts the API, admin and site routes on app
func Register(app *fiber.App, d Dependencies) {
	auth := RequireAPIKey(d.APIKey)

	app.Get("/api/health", HealthHandler(d.Stamper))

	api := app.Group("/api")

	api.Get("/templates", ListTemplatesHandler(d.Content, d.Logger))
	api.Get("/templates/:id", GetTemplateHandler(d.Content, d.Logger))
	api.Post("/templates", auth, SaveTemplateHandler(d.Content, d.Logger))
	api.Patch("/templates/:id", auth, SaveTemplateHandler(d.Content, d.Logger))
	api.Delete("/templates/:id", auth, DeleteDocumentHandler(d.Content, model.CollectionTemplates, d.Logger))

	api.Get("/pages", ListPagesHandler(d.Content, d.Logger))
	api.Get("/pages/:id", GetPageHandler(d.Content, d.Logger))
	api.Post("/pages", auth, SavePageHandler(d.Content, d.Logger))
	api.Patch("/pages/:id", auth, SavePageHandler(d.Content, d.Logger))
	api.Delete("/pages/:id", auth, DeleteDocumentHandler(d.Content, model.CollectionPages, d.Logger))

	api.Get("/posts", ListPostsHandler(d.Content, d.Logger))
	api.Get("/posts/:id", GetPostHandler(d.Content, d.Logger))
	api.Post("/posts", auth, SavePostHandler(d.Content, d.Logger))
	api.Patch("/posts/:id", auth, SavePostHandler(d.Content, d.Logger))
	api.Delete("/posts/:id", auth, DeleteDocumentHandler(d.Content, model.CollectionPosts, d.Logger))

	api.Get("/redirects", ListRedirectsHandler(d.Redirects, d.Logger))
	api.Get("/redirects/:id", GetRedirectHandler(d.Redirects, d.Logger))
	api.Post("/redirects", auth, SaveRedirectHandler(d.Redirects, d.Logger))
	api.Patch("/redirects/:id", auth, SaveRedirectHandler(d.Redirects, d.Logger))
	api.Delete("/redirects/:id", auth, DeleteRedirectHandler(d.Redirects, d.Logger))

	// Admin
	app.Post("/admin/api/forms/reusable-content", auth, ReusableContentFormHandler(editor.NewSessions(d.Fetcher, d.EditorTTL, d.Logger)))

	// Site
	app.Get("/", PageHandler(d.Content, d.Redirects, d.Logger))
	app.Get("/posts/:slug", PostHandler(d.Content, d.Redirects, d.Logger))
	app.Get("/:slug", PageHandler(d.Content, d.Redirects, d.Logger))
}
