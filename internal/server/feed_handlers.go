package server

import (
	"quill/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// Index handles GET /
// @Summary Latest posts
// @Description Every post, newest first, paginated
// @Tags feed
// @Produce json
// @Param page query int false "Page number"
// @Success 200 {object} View
// @Router / [get]
func (s *Server) Index(c *fiber.Ctx) error {
	page, err := s.feedService.ListAll(c.UserContext(), c.Query("page"))
	if err != nil {
		return s.fail(c, err)
	}
	return s.render(c, tplIndex, fiber.Map{"page_obj": page})
}

// GroupPosts handles GET /group/:slug/
// @Summary Group feed
// @Tags feed
// @Produce json
// @Param slug path string true "Group slug"
// @Param page query int false "Page number"
// @Success 200 {object} View
// @Failure 404 {object} View
// @Router /group/{slug}/ [get]
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	feed, err := s.feedService.ListByGroup(c.UserContext(), c.Params("slug"), c.Query("page"))
	if err != nil {
		return s.fail(c, err)
	}
	return s.render(c, tplGroupList, fiber.Map{
		"group":         feed.Group,
		"page_obj":      feed.Page,
		"is_group_page": true,
	})
}

// Profile handles GET /profile/:username/
// @Summary Author profile
// @Tags feed
// @Produce json
// @Param username path string true "Username"
// @Param page query int false "Page number"
// @Success 200 {object} View
// @Failure 404 {object} View
// @Router /profile/{username}/ [get]
func (s *Server) Profile(c *fiber.Ctx) error {
	viewerID, _ := middleware.CurrentUserID(c)
	feed, err := s.feedService.ListByAuthor(c.UserContext(), c.Params("username"), c.Query("page"), viewerID)
	if err != nil {
		return s.fail(c, err)
	}
	return s.render(c, tplProfile, fiber.Map{
		"author":    feed.Author,
		"page_obj":  feed.Page,
		"following": feed.Following,
		"no_author": true,
	})
}

// FollowIndex handles GET /follow/
// @Summary Followed authors feed
// @Tags feed
// @Produce json
// @Param page query int false "Page number"
// @Success 200 {object} View
// @Success 302 "Redirect to login"
// @Router /follow/ [get]
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	page, err := s.feedService.ListFollowed(c.UserContext(), viewer(c).ID, c.Query("page"))
	if err != nil {
		return s.fail(c, err)
	}
	return s.render(c, tplFollow, fiber.Map{"page_obj": page})
}
