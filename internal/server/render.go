package server

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Template names.
const (
	tplIndex      = "posts/index.html"
	tplGroupList  = "posts/group_list.html"
	tplProfile    = "posts/profile.html"
	tplPostDetail = "posts/post_detail.html"
	tplCreatePost = "posts/create_post.html"
	tplFollow     = "posts/follow.html"
	tplLogin      = "users/login.html"
	tplNotFound   = "core/404.html"
)

// Renderer turns a template name and its context into a response.
type Renderer interface {
	Render(c *fiber.Ctx, status int, template string, data fiber.Map) error
}

// View is the document JSONRenderer writes.
type View struct {
	Template string    `json:"template"`
	Context  fiber.Map `json:"context"`
}

// JSONRenderer writes views as JSON documents.
type JSONRenderer struct{}

// Render implements Renderer.
func (JSONRenderer) Render(c *fiber.Ctx, status int, template string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	return c.Status(status).JSON(View{Template: template, Context: data})
}

func (s *Server) render(c *fiber.Ctx, template string, data fiber.Map) error {
	return s.renderer.Render(c, fiber.StatusOK, template, data)
}

func (s *Server) renderNotFound(c *fiber.Ctx) error {
	return s.renderer.Render(c, fiber.StatusNotFound, tplNotFound, fiber.Map{"path": c.Path()})
}

// formView is what templates receive as "form".
type formView struct {
	Fields map[string]any      `json:"fields"`
	Errors map[string][]string `json:"errors"`
}

func newFormView(fields map[string]any, errs map[string][]string) formView {
	if fields == nil {
		fields = map[string]any{}
	}
	if errs == nil {
		errs = map[string][]string{}
	}
	return formView{Fields: fields, Errors: errs}
}

func profileURL(username string) string {
	return "/profile/" + username + "/"
}

func postURL(id uint) string {
	return "/posts/" + strconv.FormatUint(uint64(id), 10) + "/"
}

func redirect(c *fiber.Ctx, location string) error {
	return c.Redirect(location, fiber.StatusFound)
}
