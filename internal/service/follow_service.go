package service

import (
	"context"

	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
)

// FollowService maintains the follow graph.
type FollowService struct {
	follows   repository.FollowRepository
	users     repository.UserRepository
	publisher EventPublisher
}

// NewFollowService creates a FollowService. publisher may be nil.
func NewFollowService(follows repository.FollowRepository, users repository.UserRepository, publisher EventPublisher) *FollowService {
	return &FollowService{follows: follows, users: users, publisher: publisherOrNop(publisher)}
}

// Follow makes viewer follow username and returns the author. Following
// yourself or someone already followed changes nothing.
func (s *FollowService) Follow(ctx context.Context, viewer Viewer, username string) (*models.User, error) {
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if author.ID == viewer.ID {
		return author, nil
	}

	exists, err := s.follows.Exists(ctx, viewer.ID, author.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return author, nil
	}

	created, err := s.follows.Create(ctx, viewer.ID, author.ID)
	if err != nil {
		return nil, err
	}
	if created {
		observability.Follows.Inc()
		s.publisher.PublishNewFollower(ctx, author.ID, viewer.Username)
	}
	return author, nil
}

// Unfollow removes the edge from userID to username if there is one.
func (s *FollowService) Unfollow(ctx context.Context, userID uint, username string) (*models.User, error) {
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	removed, err := s.follows.Delete(ctx, userID, author.ID)
	if err != nil {
		return nil, err
	}
	if removed {
		observability.Unfollows.Inc()
	}
	return author, nil
}

// IsFollowing reports whether userID follows authorID. Anonymous users
// (userID 0) follow nobody.
func (s *FollowService) IsFollowing(ctx context.Context, userID, authorID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	return s.follows.Exists(ctx, userID, authorID)
}
