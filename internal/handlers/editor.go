package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/sharptier/cms/internal/editor"
)

type reusableContentForm struct {
	Document   string       `json:"document"`
	Path       string       `json:"path"`
	SchemaPath string       `json:"schemaPath"`
	Fields     editor.State `json:"fields"`
}

// ReusableContentFormHandler merges the posted form fields into the editing
// session of the document, runs the content manager of one reusable content
// block and returns the fields as they stand once its effect has finished.
// Requests for the same document and path share one manager, so a request
// arriving while a fetch is out waits for that fetch instead of starting
// another.
func ReusableContentFormHandler(sessions *editor.Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req reusableContentForm
		if err := c.BodyParser(&req); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, apiError{Message: "Invalid request body"})
		}
		if req.Path != editor.FieldContentManager && !strings.HasSuffix(req.Path, "."+editor.FieldContentManager) {
			return errorResponse(c, fiber.StatusBadRequest, apiError{Message: "path must name a contentManager field", Field: "path"})
		}

		form, manager := sessions.Open(req.Document, req.Path, req.SchemaPath)
		// The status field belongs to the manager.
		delete(req.Fields, req.Path)
		form.Merge(req.Fields)
		<-manager.Effect(c.UserContext(), form)

		return c.JSON(fiber.Map{"fields": form.Snapshot()})
	}
}
