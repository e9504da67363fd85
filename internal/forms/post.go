package forms

import (
	"strconv"
	"strings"
)

// PostForm is the create/edit post submission. Group carries the raw group
// ID; empty means no group.
type PostForm struct {
	Text       string  `form:"text" json:"text" validate:"required"`
	Group      string  `form:"group" json:"group" validate:"omitempty,number"`
	ImageClear bool    `form:"image_clear" json:"image_clear"`
	Image      *Upload `form:"-" json:"-"`
}

// Validate trims the text and checks field syntax. Whether the group exists
// is checked by the caller.
func (f *PostForm) Validate(maxImageBytes int64) Errors {
	f.Text = strings.TrimSpace(f.Text)
	f.Group = strings.TrimSpace(f.Group)

	errs := check(f)
	switch {
	case f.Image != nil && f.ImageClear:
		errs.Add("image", MsgFileAndClear)
	case f.Image != nil:
		if msg := f.Image.ValidateImage(maxImageBytes); msg != "" {
			errs.Add("image", msg)
		}
	}
	return errs
}

// GroupID returns the selected group, if any.
func (f *PostForm) GroupID() (uint, bool) {
	if f.Group == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(f.Group, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Values echoes the submitted fields back to a re-rendered form.
func (f *PostForm) Values() map[string]any {
	return map[string]any{
		"text":  f.Text,
		"group": f.Group,
	}
}

// CommentForm is the add-comment submission.
type CommentForm struct {
	Text string `form:"text" json:"text" validate:"required"`
}

// Validate trims the text and checks it is present.
func (f *CommentForm) Validate() Errors {
	f.Text = strings.TrimSpace(f.Text)
	return check(f)
}
