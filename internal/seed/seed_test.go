package seed

import (
	"context"
	"testing"

	"quill/internal/forms"
	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	db := testutil.NewTestDB(t)

	res, err := Run(context.Background(), db, Options{
		Users: 5, Groups: 3, Posts: 20, CommentsPerPost: 2, FollowsPerUser: 3, Seed: 42,
	})
	require.NoError(t, err)

	count := func(model any) int {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		return int(n)
	}
	assert.Equal(t, 5, res.Users)
	assert.Equal(t, 3, res.Groups)
	assert.Equal(t, 20, res.Posts)
	assert.Equal(t, res.Users, count(&models.User{}))
	assert.Equal(t, res.Groups, count(&models.Group{}))
	assert.Equal(t, res.Posts, count(&models.Post{}))
	assert.Equal(t, res.Comments, count(&models.Comment{}))
	assert.Equal(t, res.Follows, count(&models.Follow{}))

	var selfFollows int64
	require.NoError(t, db.Model(&models.Follow{}).Where("user_id = author_id").Count(&selfFollows).Error)
	assert.Zero(t, selfFollows)
}

func TestRun_GeneratesValidNames(t *testing.T) {
	db := testutil.NewTestDB(t)

	_, err := Run(context.Background(), db, Options{Users: 10, Groups: 5, Seed: 7})
	require.NoError(t, err)

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	for _, u := range users {
		form := forms.SignupForm{Username: u.Username, Email: u.Email, Password: DefaultPassword}
		assert.Empty(t, form.Validate()["username"], u.Username)
	}

	var groups []models.Group
	require.NoError(t, db.Find(&groups).Error)
	for _, g := range groups {
		form := forms.GroupForm{Title: g.Title, Slug: g.Slug}
		assert.Empty(t, form.Validate()["slug"], g.Slug)
	}
}

func TestRun_NoUsers(t *testing.T) {
	db := testutil.NewTestDB(t)

	res, err := Run(context.Background(), db, Options{Groups: 2, Posts: 10, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Groups)
	assert.Zero(t, res.Posts)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "vinyl-board-games", slugify("Vinyl  Board Games!"))
	assert.Equal(t, "", slugify("!!!"))
}
