// Package service implements the feed, post, comment, follow and account
// use cases on top of the repositories.
package service

import (
	"context"

	"quill/internal/models"
	"quill/internal/notifications"
	"quill/internal/storage"
)

// IndexRoute names the cached index feed.
const IndexRoute = "index"

// Viewer is the signed-in user making a request.
type Viewer struct {
	ID       uint
	Username string
}

// EventPublisher pushes live feed events. *notifications.Notifier satisfies it.
type EventPublisher interface {
	PublishPostCreated(ctx context.Context, followerIDs []uint, payload notifications.PostCreatedPayload)
	PublishNewFollower(ctx context.Context, authorID uint, follower string)
}

type nopPublisher struct{}

func (nopPublisher) PublishPostCreated(context.Context, []uint, notifications.PostCreatedPayload) {}
func (nopPublisher) PublishNewFollower(context.Context, uint, string)                             {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

// resolveImage fills the public image URL of a post.
func resolveImage(media storage.Backend, post *models.Post) {
	if media == nil || post.Image == "" {
		return
	}
	post.ImageURL = media.URL(post.Image)
}

func resolveImages(media storage.Backend, posts []models.Post) {
	for i := range posts {
		resolveImage(media, &posts[i])
	}
}
