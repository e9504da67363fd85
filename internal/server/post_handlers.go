package server

import (
	"strconv"

	"quill/internal/forms"
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// PostDetail handles GET /posts/:id/
// @Summary Single post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} View
// @Failure 404 {object} View
// @Router /posts/{id}/ [get]
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, err := parsePostID(c)
	if err != nil {
		return s.fail(c, err)
	}
	detail, err := s.postService.Detail(c.UserContext(), id)
	if err != nil {
		return s.fail(c, err)
	}
	return s.render(c, tplPostDetail, fiber.Map{
		"post":      detail.Post,
		"num_posts": detail.NumPosts,
		"comments":  detail.Comments,
		"form":      newFormView(map[string]any{"text": ""}, nil),
	})
}

func createContext(form formView) fiber.Map {
	return fiber.Map{
		"form":        form,
		"title":       "Add post",
		"button_name": "Add",
	}
}

func editContext(form formView, post *models.Post) fiber.Map {
	return fiber.Map{
		"form":        form,
		"title":       "Edit post",
		"button_name": "Save",
		"is_edit":     true,
		"post":        post,
	}
}

// readPostForm collects the post fields from a urlencoded or multipart body.
func (s *Server) readPostForm(c *fiber.Ctx) (*forms.PostForm, error) {
	form := &forms.PostForm{
		Text:       c.FormValue("text"),
		Group:      c.FormValue("group"),
		ImageClear: checked(c.FormValue("image_clear")),
	}
	if fh, err := c.FormFile("image"); err == nil && fh.Size > 0 {
		upload, err := forms.ReadUpload(fh, s.config.MaxUploadBytes())
		if err != nil {
			return nil, models.NewValidationError("Unable to read uploaded file")
		}
		form.Image = upload
	}
	return form, nil
}

func checked(v string) bool {
	switch v {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// PostCreatePage handles GET /create/
// @Summary New post form
// @Tags posts
// @Produce json
// @Success 200 {object} View
// @Router /create/ [get]
func (s *Server) PostCreatePage(c *fiber.Ctx) error {
	return s.render(c, tplCreatePost, createContext(newFormView(map[string]any{"text": "", "group": ""}, nil)))
}

// PostCreate handles POST /create/
// @Summary Publish a post
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Param text formData string true "Post text"
// @Param group formData int false "Group ID"
// @Param image formData file false "Image"
// @Success 302 "Redirect to the author's profile"
// @Failure 400 {object} View
// @Router /create/ [post]
func (s *Server) PostCreate(c *fiber.Ctx) error {
	form, err := s.readPostForm(c)
	if err != nil {
		return s.fail(c, err)
	}

	v := viewer(c)
	post, err := s.postService.Create(c.UserContext(), v, form)
	if fields, ok := validationFields(err); ok {
		return s.renderer.Render(c, fiber.StatusBadRequest, tplCreatePost,
			createContext(newFormView(form.Values(), fields)))
	}
	if err != nil {
		return s.fail(c, err)
	}
	return redirect(c, profileURL(post.Author.Username))
}

// PostEditPage handles GET /posts/:id/edit/
// @Summary Edit post form
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} View
// @Success 302 "Redirect to the post when not the author"
// @Failure 404 {object} View
// @Router /posts/{id}/edit/ [get]
func (s *Server) PostEditPage(c *fiber.Ctx) error {
	id, err := parsePostID(c)
	if err != nil {
		return s.fail(c, err)
	}
	post, err := s.postService.EditForm(c.UserContext(), id, viewer(c).ID)
	if models.HasCode(err, models.CodeForbidden) {
		return redirect(c, postURL(id))
	}
	if err != nil {
		return s.fail(c, err)
	}

	group := ""
	if post.GroupID != nil {
		group = strconv.FormatUint(uint64(*post.GroupID), 10)
	}
	fields := map[string]any{"text": post.Text, "group": group, "image": post.ImageURL}
	return s.render(c, tplCreatePost, editContext(newFormView(fields, nil), post))
}

// PostEdit handles POST /posts/:id/edit/
// @Summary Update a post
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Post ID"
// @Param text formData string true "Post text"
// @Param group formData int false "Group ID"
// @Param image formData file false "Image"
// @Param image_clear formData bool false "Remove the current image"
// @Success 302 "Redirect to the post"
// @Failure 400 {object} View
// @Failure 404 {object} View
// @Router /posts/{id}/edit/ [post]
func (s *Server) PostEdit(c *fiber.Ctx) error {
	id, err := parsePostID(c)
	if err != nil {
		return s.fail(c, err)
	}
	form, err := s.readPostForm(c)
	if err != nil {
		return s.fail(c, err)
	}

	_, err = s.postService.Edit(c.UserContext(), id, viewer(c).ID, form)
	if models.HasCode(err, models.CodeForbidden) {
		return redirect(c, postURL(id))
	}
	if fields, ok := validationFields(err); ok {
		post, _ := s.postService.EditForm(c.UserContext(), id, viewer(c).ID)
		return s.renderer.Render(c, fiber.StatusBadRequest, tplCreatePost,
			editContext(newFormView(form.Values(), fields), post))
	}
	if err != nil {
		return s.fail(c, err)
	}
	return redirect(c, postURL(id))
}

// PostDelete handles GET and POST /posts/:id/delete/
// @Summary Delete a post
// @Tags posts
// @Param id path int true "Post ID"
// @Success 302 "Redirect to the profile, or to the post when not the author"
// @Failure 404 {object} View
// @Router /posts/{id}/delete/ [post]
func (s *Server) PostDelete(c *fiber.Ctx) error {
	id, err := parsePostID(c)
	if err != nil {
		return s.fail(c, err)
	}
	post, err := s.postService.Delete(c.UserContext(), id, viewer(c))
	if models.HasCode(err, models.CodeForbidden) {
		return redirect(c, postURL(id))
	}
	if err != nil {
		return s.fail(c, err)
	}
	return redirect(c, profileURL(post.Author.Username))
}

// AddComment handles POST /posts/:id/comment/
// @Summary Comment on a post
// @Tags posts
// @Accept x-www-form-urlencoded
// @Param id path int true "Post ID"
// @Param text formData string true "Comment text"
// @Success 302 "Redirect to the post"
// @Failure 404 {object} View
// @Router /posts/{id}/comment/ [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := parsePostID(c)
	if err != nil {
		return s.fail(c, err)
	}
	form := &forms.CommentForm{Text: c.FormValue("text")}
	if _, err := s.commentService.Add(c.UserContext(), id, viewer(c).ID, form); err != nil {
		return s.fail(c, err)
	}
	return redirect(c, postURL(id))
}
