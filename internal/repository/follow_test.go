package repository

import (
	"context"
	"regexp"
	"testing"

	"quill/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowRepository_CreateIsIdempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	reader := testutil.CreateUser(t, db, "reader")
	writer := testutil.CreateUser(t, db, "writer")

	created, err := repo.Create(ctx, reader.ID, writer.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, reader.ID, writer.ID)
	require.NoError(t, err)
	assert.False(t, created)

	exists, err := repo.Exists(ctx, reader.ID, writer.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	// Edges are directed.
	exists, err = repo.Exists(ctx, writer.ID, reader.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	ids, err := repo.FollowerIDs(ctx, writer.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{reader.ID}, ids)
}

func TestFollowRepository_Delete(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	reader := testutil.CreateUser(t, db, "reader")
	writer := testutil.CreateUser(t, db, "writer")
	testutil.Follow(t, db, reader, writer)

	removed, err := repo.Delete(ctx, reader.ID, writer.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(ctx, reader.ID, writer.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestFollowRepository_CreateUsesOnConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFollowRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "follows"`) + `.*` + regexp.QuoteMeta(`ON CONFLICT ("user_id","author_id") DO NOTHING`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	created, err := repo.Create(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}
