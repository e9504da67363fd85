package service

import (
	"bytes"
	"context"
	"errors"
	"strconv"

	"quill/internal/cache"
	"quill/internal/forms"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/notifications"
	"quill/internal/observability"
	"quill/internal/repository"
	"quill/internal/storage"

	"go.opentelemetry.io/otel/attribute"
)

// PostDetail is everything the single-post page shows.
type PostDetail struct {
	Post     *models.Post
	NumPosts int64
	Comments []models.Comment
}

// PostService reads single posts and handles author-only mutations.
type PostService struct {
	posts     repository.PostRepository
	groups    repository.GroupRepository
	comments  repository.CommentRepository
	follows   repository.FollowRepository
	media     storage.Backend
	publisher EventPublisher
	maxUpload int64
}

// NewPostService creates a PostService. publisher may be nil.
func NewPostService(
	posts repository.PostRepository,
	groups repository.GroupRepository,
	comments repository.CommentRepository,
	follows repository.FollowRepository,
	media storage.Backend,
	publisher EventPublisher,
	maxUpload int64,
) *PostService {
	return &PostService{
		posts:     posts,
		groups:    groups,
		comments:  comments,
		follows:   follows,
		media:     media,
		publisher: publisherOrNop(publisher),
		maxUpload: maxUpload,
	}
}

func (s *PostService) get(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resolveImage(s.media, post)
	return post, nil
}

// Detail loads a post with its author's post count and its comments.
func (s *PostService) Detail(ctx context.Context, id uint) (detail *PostDetail, err error) {
	ctx, end := observability.StartSpan(ctx, "PostService.Detail", attribute.Int64("post.id", int64(id)))
	defer func() { end(err) }()

	post, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	numPosts, err := s.posts.Count(ctx, repository.PostFilter{AuthorID: post.AuthorID})
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return &PostDetail{Post: post, NumPosts: numPosts, Comments: comments}, nil
}

// EditForm returns the post userID wants to edit. A post owned by someone
// else yields a Forbidden error.
func (s *PostService) EditForm(ctx context.Context, id, userID uint) (*models.Post, error) {
	post, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, models.NewForbiddenError("only the author can edit this post")
	}
	return post, nil
}

// validate runs field validation plus the group lookup.
func (s *PostService) validate(ctx context.Context, form *forms.PostForm) (*uint, error) {
	errs := form.Validate(s.maxUpload)

	var groupID *uint
	if form.Group != "" && len(errs["group"]) == 0 {
		id, ok := form.GroupID()
		if !ok {
			errs.Add("group", forms.MsgInvalidChoice)
		} else if _, err := s.groups.GetByID(ctx, id); err != nil {
			if !models.HasCode(err, models.CodeNotFound) {
				return nil, err
			}
			errs.Add("group", forms.MsgInvalidChoice)
		} else {
			groupID = &id
		}
	}

	if errs.Any() {
		return nil, models.NewFieldValidationError(errs)
	}
	return groupID, nil
}

func (s *PostService) storeImage(ctx context.Context, up *forms.Upload) (string, error) {
	if s.media == nil {
		return "", models.NewInternalError(errors.New("no media backend configured"))
	}
	key := storage.NewPostImageKey(up.Extension())
	err := s.media.Save(ctx, key, bytes.NewReader(up.Content), int64(len(up.Content)), up.ContentType)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return key, nil
}

func (s *PostService) dropImage(ctx context.Context, key string) {
	if key == "" || s.media == nil {
		return
	}
	if err := s.media.Delete(ctx, key); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to delete post image", "key", key, "error", err)
	}
}

// Create publishes a new post by author. Invalid fields yield a validation
// error carrying per-field messages and nothing is stored.
func (s *PostService) Create(ctx context.Context, author Viewer, form *forms.PostForm) (post *models.Post, err error) {
	ctx, end := observability.StartSpan(ctx, "PostService.Create")
	defer func() { end(err) }()

	groupID, err := s.validate(ctx, form)
	if err != nil {
		return nil, err
	}

	post = &models.Post{Text: form.Text, AuthorID: author.ID, GroupID: groupID}
	if form.Image != nil {
		if post.Image, err = s.storeImage(ctx, form.Image); err != nil {
			return nil, err
		}
	}

	if err := s.posts.Create(ctx, post); err != nil {
		s.dropImage(ctx, post.Image)
		return nil, err
	}

	observability.PostsCreated.Inc()
	cache.InvalidatePages(ctx, IndexRoute)
	s.announce(ctx, author, post)

	middleware.Logger.InfoContext(ctx, "post created", "post_id", post.ID)
	return s.get(ctx, post.ID)
}

func (s *PostService) announce(ctx context.Context, author Viewer, post *models.Post) {
	followers, err := s.follows.FollowerIDs(ctx, author.ID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to load followers", "author_id", author.ID, "error", err)
		return
	}
	s.publisher.PublishPostCreated(ctx, followers, notifications.PostCreatedPayload{
		PostID: post.ID,
		Author: author.Username,
		Text:   post.Text,
	})
}

// Edit updates a post in place. The post must exist, then belong to userID,
// then the fields must validate; checks run in that order.
func (s *PostService) Edit(ctx context.Context, id, userID uint, form *forms.PostForm) (post *models.Post, err error) {
	ctx, end := observability.StartSpan(ctx, "PostService.Edit", attribute.Int64("post.id", int64(id)))
	defer func() { end(err) }()

	post, err = s.EditForm(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	groupID, err := s.validate(ctx, form)
	if err != nil {
		return nil, err
	}

	oldImage := post.Image
	post.Text = form.Text
	post.GroupID = groupID
	switch {
	case form.Image != nil:
		if post.Image, err = s.storeImage(ctx, form.Image); err != nil {
			return nil, err
		}
	case form.ImageClear:
		post.Image = ""
	}

	if err := s.posts.Update(ctx, post); err != nil {
		if post.Image != oldImage {
			s.dropImage(ctx, post.Image)
		}
		return nil, err
	}
	if post.Image != oldImage {
		s.dropImage(ctx, oldImage)
	}

	cache.InvalidatePages(ctx, IndexRoute)
	return s.get(ctx, id)
}

// Delete removes a post and its comments when viewer is the author. The
// author check compares usernames. Another user's post yields Forbidden.
func (s *PostService) Delete(ctx context.Context, id uint, viewer Viewer) (post *models.Post, err error) {
	ctx, end := observability.StartSpan(ctx, "PostService.Delete", attribute.Int64("post.id", int64(id)))
	defer func() { end(err) }()

	post, err = s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Author.Username != viewer.Username {
		return nil, models.NewForbiddenError("only the author can delete post " + strconv.FormatUint(uint64(id), 10))
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return nil, err
	}
	s.dropImage(ctx, post.Image)

	observability.PostsDeleted.Inc()
	cache.InvalidatePages(ctx, IndexRoute)
	middleware.Logger.InfoContext(ctx, "post deleted", "post_id", id)
	return post, nil
}
