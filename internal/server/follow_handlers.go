package server

import (
	"github.com/gofiber/fiber/v2"
)

// ProfileFollow handles GET and POST /profile/:username/follow/
// @Summary Follow an author
// @Tags follow
// @Param username path string true "Username"
// @Success 302 "Redirect to the profile"
// @Failure 404 {object} View
// @Router /profile/{username}/follow/ [post]
func (s *Server) ProfileFollow(c *fiber.Ctx) error {
	author, err := s.followService.Follow(c.UserContext(), viewer(c), c.Params("username"))
	if err != nil {
		return s.fail(c, err)
	}
	return redirect(c, profileURL(author.Username))
}

// ProfileUnfollow handles GET and POST /profile/:username/unfollow/
// @Summary Unfollow an author
// @Tags follow
// @Param username path string true "Username"
// @Success 302 "Redirect to the profile"
// @Failure 404 {object} View
// @Router /profile/{username}/unfollow/ [post]
func (s *Server) ProfileUnfollow(c *fiber.Ctx) error {
	author, err := s.followService.Unfollow(c.UserContext(), viewer(c).ID, c.Params("username"))
	if err != nil {
		return s.fail(c, err)
	}
	return redirect(c, profileURL(author.Username))
}
