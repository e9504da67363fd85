package service

import (
	"context"
	"sync"
	"testing"

	"quill/internal/models"
	"quill/internal/notifications"
	"quill/internal/repository"
	"quill/internal/storage"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu        sync.Mutex
	created   []notifications.PostCreatedPayload
	notified  [][]uint
	followers map[uint][]string
}

func (p *recordingPublisher) PublishPostCreated(_ context.Context, followerIDs []uint, payload notifications.PostCreatedPayload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, payload)
	p.notified = append(p.notified, followerIDs)
}

func (p *recordingPublisher) PublishNewFollower(_ context.Context, authorID uint, follower string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.followers == nil {
		p.followers = map[uint][]string{}
	}
	p.followers[authorID] = append(p.followers[authorID], follower)
}

type fixture struct {
	db        *gorm.DB
	media     *storage.DiskBackend
	publisher *recordingPublisher
	feeds     *FeedService
	posts     *PostService
	comments  *CommentService
	follows   *FollowService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)

	postRepo := repository.NewPostRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	media := storage.NewDiskBackend(t.TempDir(), "/media/")
	pub := &recordingPublisher{}

	return &fixture{
		db:        db,
		media:     media,
		publisher: pub,
		feeds:     NewFeedService(postRepo, groupRepo, userRepo, followRepo, media, 10),
		posts:     NewPostService(postRepo, groupRepo, commentRepo, followRepo, media, pub, 1<<20),
		comments:  NewCommentService(commentRepo, postRepo),
		follows:   NewFollowService(followRepo, userRepo, pub),
	}
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func viewerOf(u *models.User) Viewer {
	return Viewer{ID: u.ID, Username: u.Username}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, models.HasCode(err, code), "expected %s, got %v", code, err)
}
