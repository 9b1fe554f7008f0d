package handlers

import (
	"crypto/subtle"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"go.uber.org/zap"

	"github.com/sharptier/cms/internal/service"
	"github.com/sharptier/cms/internal/store"
)

type apiError struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func errorResponse(c *fiber.Ctx, status int, errs ...apiError) error {
	return c.Status(status).JSON(fiber.Map{"errors": errs})
}

// writeError maps service and store errors to API responses
func writeError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return errorResponse(c, fiber.StatusBadRequest, apiError{Message: verr.Message, Field: verr.Field})
	case errors.Is(err, store.ErrConflict):
		return errorResponse(c, fiber.StatusConflict, apiError{Message: "Value must be unique", Field: "slug"})
	case errors.Is(err, service.ErrNotFound):
		return errorResponse(c, fiber.StatusNotFound, apiError{Message: "Not Found"})
	default:
		logger.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
		return errorResponse(c, fiber.StatusInternalServerError, apiError{Message: "Something went wrong."})
	}
}

func paramID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil && id > 0
}

func invalidID(c *fiber.Ctx) error {
	return errorResponse(c, fiber.StatusBadRequest, apiError{Message: "Invalid id"})
}

// sortParams accepts both ?sort=-title and ?sort=title&order=desc
func sortParams(c *fiber.Ctx, fallback string) (string, string) {
	sortBy := c.Query("sort", fallback)
	order := c.Query("order", "asc")
	if strings.HasPrefix(sortBy, "-") {
		return sortBy[1:], "desc"
	}
	return sortBy, order
}

func listResponse[T any](c *fiber.Ctx, docs []T) error {
	if docs == nil {
		docs = []T{}
	}
	return c.JSON(fiber.Map{"docs": docs, "totalDocs": len(docs)})
}

func docResponse(c *fiber.Ctx, status int, doc any, message string) error {
	return c.Status(status).JSON(fiber.Map{"doc": doc, "message": message})
}

// depthParam reads ?depth; anything above 1 is treated as 1
func depthParam(c *fiber.Ctx) int {
	depth := c.QueryInt("depth", 1)
	return min(max(depth, 0), 1)
}

// RequireAPIKey guards write routes with a bearer API key. An empty key
// rejects every request.
func RequireAPIKey(apiKey string) fiber.Handler {
	return keyauth.New(keyauth.Config{
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if apiKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
				return true, nil
			}
			return false, keyauth.ErrMissingOrMalformedAPIKey
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return errorResponse(c, fiber.StatusUnauthorized, apiError{Message: "You are not allowed to perform this action."})
		},
	})
}
