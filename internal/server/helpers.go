package server

import (
	"errors"
	"log/slog"

	"socialnet/internal/middleware"
	"socialnet/internal/models"
	"socialnet/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// mapServiceError converts an AppError code into an HTTP status.
func mapServiceError(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeDuplicate:
		return fiber.StatusConflict
	case models.CodeInvalidCredentials, models.CodeUnauthenticated, models.CodeInvalidToken:
		return fiber.StatusUnauthorized
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeInsufficientCredits:
		return fiber.StatusPaymentRequired
	default:
		return fiber.StatusInternalServerError
	}
}

// respondServiceError writes err with the status its code maps to. Errors
// without a code are logged and reported as internal errors.
func respondServiceError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
	}
	status := mapServiceError(appErr)
	if status == fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, appErr)
}

// parseBody decodes the JSON body into dest and checks its validate tags,
// writing a 400 on failure.
// Callers should check: if !ok { return nil }
func parseBody(c *fiber.Ctx, dest any) bool {
	if err := c.BodyParser(dest); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return false
	}
	if err := validation.Request(dest); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
		return false
	}
	return true
}

// currentUserID returns the id AuthRequired stored for the request.
func currentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}
