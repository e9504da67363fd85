package service

import (
	"context"

	"quill/internal/forms"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
)

// CommentService attaches comments to posts.
type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
}

// NewCommentService creates a CommentService.
func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository) *CommentService {
	return &CommentService{comments: comments, posts: posts}
}

// Add stores a comment by userID on postID. A missing post is NotFound. An
// invalid form is dropped without error and Add returns nil, nil.
func (s *CommentService) Add(ctx context.Context, postID, userID uint, form *forms.CommentForm) (*models.Comment, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	if form.Validate().Any() {
		observability.CommentsRejected.Inc()
		return nil, nil
	}

	comment := &models.Comment{PostID: postID, AuthorID: userID, Text: form.Text}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	observability.CommentsCreated.Inc()
	return comment, nil
}
