package service

import (
	"context"

	"quill/internal/cache"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/pagination"
	"quill/internal/repository"
	"quill/internal/storage"

	"go.opentelemetry.io/otel/attribute"
)

// FeedPage is one page of posts, newest first.
type FeedPage = pagination.Page[models.Post]

// ProfileFeed is an author's posts plus whether the viewer follows them.
type ProfileFeed struct {
	Author    *models.User
	Page      FeedPage
	Following bool
}

// GroupFeed is the posts filed under one group.
type GroupFeed struct {
	Group *models.Group
	Page  FeedPage
}

// FeedService lists paginated post feeds.
type FeedService struct {
	posts   repository.PostRepository
	groups  repository.GroupRepository
	users   repository.UserRepository
	follows repository.FollowRepository
	media   storage.Backend
	perPage int
}

// NewFeedService creates a FeedService serving perPage posts per page.
func NewFeedService(
	posts repository.PostRepository,
	groups repository.GroupRepository,
	users repository.UserRepository,
	follows repository.FollowRepository,
	media storage.Backend,
	perPage int,
) *FeedService {
	return &FeedService{
		posts:   posts,
		groups:  groups,
		users:   users,
		follows: follows,
		media:   media,
		perPage: perPage,
	}
}

func (s *FeedService) page(ctx context.Context, filter repository.PostFilter, rawPage string) (FeedPage, error) {
	count, err := s.posts.Count(ctx, filter)
	if err != nil {
		return FeedPage{}, err
	}
	w := pagination.Resolve(rawPage, count, s.perPage)

	var items []models.Post
	if count > 0 {
		items, err = s.posts.List(ctx, filter, w.Limit(), w.Offset())
		if err != nil {
			return FeedPage{}, err
		}
		resolveImages(s.media, items)
	}
	return pagination.NewPage(w, items), nil
}

// ListAll returns every post.
func (s *FeedService) ListAll(ctx context.Context, rawPage string) (page FeedPage, err error) {
	ctx, end := observability.StartSpan(ctx, "FeedService.ListAll")
	defer func() { end(err) }()

	return s.page(ctx, repository.PostFilter{}, rawPage)
}

// ListByGroup returns the posts of the group with slug.
func (s *FeedService) ListByGroup(ctx context.Context, slug, rawPage string) (feed *GroupFeed, err error) {
	ctx, end := observability.StartSpan(ctx, "FeedService.ListByGroup", attribute.String("group.slug", slug))
	defer func() { end(err) }()

	var group models.Group
	err = cache.Aside(ctx, cache.GroupKey(slug), &group, cache.GroupTTL, func() error {
		g, err := s.groups.GetBySlug(ctx, slug)
		if err != nil {
			return err
		}
		group = *g
		return nil
	})
	if err != nil {
		return nil, err
	}

	page, err := s.page(ctx, repository.PostFilter{GroupID: group.ID}, rawPage)
	if err != nil {
		return nil, err
	}
	return &GroupFeed{Group: &group, Page: page}, nil
}

// ListByAuthor returns the posts of username. viewerID is 0 for anonymous
// visitors, who never follow anyone.
func (s *FeedService) ListByAuthor(ctx context.Context, username, rawPage string, viewerID uint) (feed *ProfileFeed, err error) {
	ctx, end := observability.StartSpan(ctx, "FeedService.ListByAuthor", attribute.String("author.username", username))
	defer func() { end(err) }()

	author, err := s.lookupUser(ctx, username)
	if err != nil {
		return nil, err
	}

	page, err := s.page(ctx, repository.PostFilter{AuthorID: author.ID}, rawPage)
	if err != nil {
		return nil, err
	}

	following := false
	if viewerID != 0 {
		if following, err = s.follows.Exists(ctx, viewerID, author.ID); err != nil {
			return nil, err
		}
	}

	return &ProfileFeed{Author: author, Page: page, Following: following}, nil
}

// ListFollowed returns posts by authors userID follows.
func (s *FeedService) ListFollowed(ctx context.Context, userID uint, rawPage string) (page FeedPage, err error) {
	ctx, end := observability.StartSpan(ctx, "FeedService.ListFollowed")
	defer func() { end(err) }()

	return s.page(ctx, repository.PostFilter{FollowerID: userID}, rawPage)
}

func (s *FeedService) lookupUser(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(username), &user, cache.UserTTL, func() error {
		u, err := s.users.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		user = *u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
