package forms

import "strings"

// SignupForm registers a new account.
type SignupForm struct {
	Username  string `form:"username" json:"username" validate:"required,min=3,max=30,username"`
	Email     string `form:"email" json:"email" validate:"required,email,max=254"`
	Password  string `form:"password" json:"password" validate:"required,min=8,max=72"`
	FirstName string `form:"first_name" json:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" json:"last_name" validate:"max=150"`
}

// Validate normalizes and checks the signup fields.
func (f *SignupForm) Validate() Errors {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	return check(f)
}

// LoginForm authenticates an existing account.
type LoginForm struct {
	Username string `form:"username" json:"username" validate:"required"`
	Password string `form:"password" json:"password" validate:"required"`
	Next     string `form:"next" json:"next"`
}

// Validate checks both credentials are present.
func (f *LoginForm) Validate() Errors {
	f.Username = strings.TrimSpace(f.Username)
	return check(f)
}

// GroupForm creates a group from the admin CLI.
type GroupForm struct {
	Title       string `form:"title" json:"title" validate:"required,max=200"`
	Slug        string `form:"slug" json:"slug" validate:"required,max=100,slug"`
	Description string `form:"description" json:"description"`
}

// Validate trims and checks the group fields.
func (f *GroupForm) Validate() Errors {
	f.Title = strings.TrimSpace(f.Title)
	f.Slug = strings.TrimSpace(f.Slug)
	f.Description = strings.TrimSpace(f.Description)
	return check(f)
}
