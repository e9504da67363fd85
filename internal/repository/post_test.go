package repository

import (
	"context"
	"regexp"
	"testing"

	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Text)
	}
	return out
}

func TestPostRepository_ListFilters(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")
	cats := testutil.CreateGroup(t, db, "cats")

	testutil.CreatePost(t, db, alice, cats, "a1")
	testutil.CreatePost(t, db, bob, nil, "b1")
	testutil.CreatePost(t, db, alice, nil, "a2")
	testutil.CreatePost(t, db, carol, cats, "c1")
	testutil.Follow(t, db, carol, alice)

	t.Run("all newest first", func(t *testing.T) {
		posts, err := repo.List(ctx, PostFilter{}, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"c1", "a2", "b1", "a1"}, texts(posts))
	})

	t.Run("author and group are resolved", func(t *testing.T) {
		posts, err := repo.List(ctx, PostFilter{GroupID: cats.ID}, 10, 0)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, "carol", posts[0].Author.Username)
		require.NotNil(t, posts[0].Group)
		assert.Equal(t, "cats", posts[0].Group.Slug)
	})

	t.Run("ungrouped posts have no group", func(t *testing.T) {
		posts, err := repo.List(ctx, PostFilter{AuthorID: bob.ID}, 10, 0)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Nil(t, posts[0].Group)
		assert.Equal(t, "bob", posts[0].Author.Username)
	})

	t.Run("follow feed", func(t *testing.T) {
		posts, err := repo.List(ctx, PostFilter{FollowerID: carol.ID}, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"a2", "a1"}, texts(posts))

		count, err := repo.Count(ctx, PostFilter{FollowerID: carol.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		none, err := repo.List(ctx, PostFilter{FollowerID: bob.ID}, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("limit and offset", func(t *testing.T) {
		posts, err := repo.List(ctx, PostFilter{}, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"b1", "a1"}, texts(posts))
	})

	t.Run("count by author", func(t *testing.T) {
		count, err := repo.Count(ctx, PostFilter{AuthorID: alice.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})
}

func TestPostRepository_GetByID(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	post := testutil.CreatePost(t, db, alice, nil, "hello")

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.Author.ID)
	assert.Equal(t, "alice", got.Author.Username)

	_, err = repo.GetByID(ctx, post.ID+100)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostRepository_UpdateAndDelete(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	cats := testutil.CreateGroup(t, db, "cats")
	post := testutil.CreatePost(t, db, alice, cats, "draft")

	post.Text = "final"
	post.GroupID = nil
	require.NoError(t, repo.Update(ctx, post))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Text)
	assert.Nil(t, got.GroupID)

	require.NoError(t, comments.Create(ctx, &models.Comment{PostID: post.ID, AuthorID: alice.ID, Text: "first"}))

	require.NoError(t, repo.Delete(ctx, post.ID))
	_, err = repo.GetByID(ctx, post.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	count, err := comments.CountByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	err = repo.Delete(ctx, post.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostRepository_CountQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "posts" WHERE posts.group_id = $1`)).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.Count(context.Background(), PostFilter{GroupID: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
