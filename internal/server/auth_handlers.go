package server

import (
	"net/url"
	"strings"
	"time"

	"quill/internal/forms"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Signup handles POST /auth/signup
// @Summary User signup
// @Description Register a new account and sign it in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body forms.SignupForm true "Signup request"
// @Success 201 {object} service.AuthResult
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var form forms.SignupForm
	if err := c.BodyParser(&form); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.accountService.Signup(c.UserContext(), &form)
	if err != nil {
		return s.fail(c, err)
	}
	setSessionCookie(c, result)
	return c.Status(fiber.StatusCreated).JSON(result)
}

// LoginPage handles GET /auth/login
// @Summary Login form
// @Tags auth
// @Produce json
// @Param next query string false "Where to go after signing in"
// @Success 200 {object} View
// @Router /auth/login [get]
func (s *Server) LoginPage(c *fiber.Ctx) error {
	return s.render(c, tplLogin, fiber.Map{
		"form": newFormView(map[string]any{"username": ""}, nil),
		"next": safeNext(c.Query("next")),
	})
}

// Login handles POST /auth/login
// @Summary User login
// @Description Check credentials, set the session cookie and continue to next
// @Tags auth
// @Accept json
// @Produce json
// @Param request body forms.LoginForm true "Login credentials"
// @Success 200 {object} service.AuthResult
// @Success 302 "Redirect to next for form posts"
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var form forms.LoginForm
	if err := c.BodyParser(&form); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if form.Next == "" {
		form.Next = c.Query("next")
	}
	next := safeNext(form.Next)

	result, err := s.accountService.Login(c.UserContext(), &form)
	if err != nil {
		if wantsJSON(c) {
			return s.fail(c, err)
		}
		errs := map[string][]string{}
		if fields, ok := validationFields(err); ok {
			errs = fields
		} else if models.HasCode(err, models.CodeUnauthorized) {
			errs["__all__"] = []string{err.Error()}
		} else {
			return s.fail(c, err)
		}
		return s.renderer.Render(c, models.StatusFor(err), tplLogin, fiber.Map{
			"form": newFormView(map[string]any{"username": form.Username}, errs),
			"next": next,
		})
	}

	setSessionCookie(c, result)
	if wantsJSON(c) {
		return c.JSON(result)
	}
	if next == "" {
		next = "/"
	}
	return redirect(c, next)
}

// Logout handles POST /auth/logout
// @Summary Log out
// @Description Revoke the current token and clear the session cookie
// @Tags auth
// @Security BearerAuth
// @Success 302 "Redirect to the index"
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, _ := middleware.CurrentClaims(c)
	if err := s.accountService.Logout(c.UserContext(), claims); err != nil {
		return s.fail(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	if wantsJSON(c) {
		return c.JSON(fiber.Map{"status": "logged_out"})
	}
	return redirect(c, "/")
}

func setSessionCookie(c *fiber.Ctx, result *service.AuthResult) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func wantsJSON(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON)
}

// safeNext keeps only local absolute paths. Control characters are refused
// outright since browsers drop tabs and newlines before resolving a URL.
func safeNext(next string) string {
	if strings.ContainsFunc(next, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
		return ""
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return next
}
