package repository

import (
	"context"

	"quill/internal/models"

	"gorm.io/gorm"
)

// PostFilter narrows a feed query. Zero values are ignored.
type PostFilter struct {
	AuthorID uint
	GroupID  uint
	// FollowerID keeps only posts by authors this user follows.
	FollowerID uint
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	// List returns a newest-first slice with Author and Group resolved.
	List(ctx context.Context, filter PostFilter, limit, offset int) ([]models.Post, error)
	Count(ctx context.Context, filter PostFilter) (int64, error)
	Update(ctx context.Context, post *models.Post) error
	// Delete removes the post together with its comments.
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("Author", "Group").Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Joins("Author").
		Joins("Group").
		First(&post, "posts.id = ?", id).Error
	if err != nil {
		return nil, translate(err, "Post", id)
	}
	normalizeGroup(&post)
	return &post, nil
}

func (r *postRepository) scoped(ctx context.Context, filter PostFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Post{})
	if filter.AuthorID != 0 {
		q = q.Where("posts.author_id = ?", filter.AuthorID)
	}
	if filter.GroupID != 0 {
		q = q.Where("posts.group_id = ?", filter.GroupID)
	}
	if filter.FollowerID != 0 {
		followed := r.db.WithContext(ctx).Model(&models.Follow{}).
			Select("author_id").
			Where("user_id = ?", filter.FollowerID)
		q = q.Where("posts.author_id IN (?)", followed)
	}
	return q
}

func (r *postRepository) List(ctx context.Context, filter PostFilter, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	err := r.scoped(ctx, filter).
		Joins("Author").
		Joins("Group").
		Order(models.PostOrder).
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range posts {
		normalizeGroup(&posts[i])
	}
	return posts, nil
}

func (r *postRepository) Count(ctx context.Context, filter PostFilter) (int64, error) {
	var count int64
	if err := r.scoped(ctx, filter).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).
		Model(post).
		Select("text", "group_id", "image", "updated_at").
		Omit("Author", "Group").
		Updates(post).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
}

// normalizeGroup drops the zero-value Group a LEFT JOIN yields for ungrouped posts.
func normalizeGroup(post *models.Post) {
	if post.GroupID == nil {
		post.Group = nil
	}
}
