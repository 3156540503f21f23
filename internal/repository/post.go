package repository

import (
	"context"

	"socialnet/internal/cache"
	"socialnet/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context) ([]models.Post, error)
	UpdateColumns(ctx context.Context, post *models.Post, columns ...string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type postRepository struct {
	db         *gorm.DB
	invalidate invalidateFunc
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, invalidate: cache.Invalidate}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	r.invalidate(ctx, cache.FeedKey)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := forUpdate(r.db.WithContext(ctx)).First(&post, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Post", id)
	}
	return &post, nil
}

// List returns every post, newest first.
func (r *postRepository) List(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := cache.Aside(ctx, cache.FeedKey, &posts, cache.FeedTTL, func() error {
		if err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&posts).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) UpdateColumns(ctx context.Context, post *models.Post, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(post).Select(columns).Updates(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	r.invalidate(ctx, cache.FeedKey)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, "id = ?", id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	r.invalidate(ctx, cache.FeedKey)
	return nil
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
