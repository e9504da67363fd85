package server

import (
	"errors"
	"strconv"

	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/service"

	"github.com/gofiber/fiber/v2"
)

// parsePostID reads the :id parameter. Anything that is not a positive
// integer cannot name a post, so it is reported as not found.
func parsePostID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, models.NewNotFoundError("Post", c.Params("id"))
	}
	return uint(id), nil
}

// viewer returns the signed-in user. Routes using it sit behind AuthRequired.
func viewer(c *fiber.Ctx) service.Viewer {
	v := service.Viewer{}
	if id, ok := middleware.CurrentUserID(c); ok {
		v.ID = id
	}
	if claims, ok := middleware.CurrentClaims(c); ok {
		v.Username = claims.Username
	}
	return v
}

// fail maps service errors onto responses: missing records render the 404
// page, everything else goes through RespondWithError.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	if models.HasCode(err, models.CodeNotFound) {
		return s.renderNotFound(c)
	}
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		err = models.NewInternalError(err)
	}
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed", "error", err)
	}
	return models.RespondWithError(c, status, err)
}

// validationFields extracts per-field messages from a validation error.
func validationFields(err error) (map[string][]string, bool) {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodeValidation {
		return appErr.Fields, true
	}
	return nil, false
}
