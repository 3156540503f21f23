package service

import (
	"context"
	"time"

	"socialnet/internal/models"
	"socialnet/internal/repository"
	"socialnet/internal/validation"
)

// PostService provides post, like and comment business logic.
type PostService struct {
	store repository.Store
	now   func() time.Time
}

func NewPostService(store repository.Store) *PostService {
	return &PostService{store: store, now: time.Now}
}

type CreatePostInput struct {
	AuthorID   string
	Text       string
	Categories []string
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	text, err := validation.ValidateText("Post text", in.Text, validation.MaxPostLength)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	categories, err := validation.ValidateCategories(in.Categories)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if _, err := s.store.Users().GetByID(ctx, in.AuthorID); err != nil {
		return nil, err
	}

	post := &models.Post{
		ID:         models.NewID("p"),
		AuthorID:   in.AuthorID,
		Text:       text,
		Categories: categories,
		Likes:      models.NewStringSet(),
		Comments:   models.Comments{},
		CreatedAt:  s.now().UnixMilli(),
	}
	if err := s.store.Posts().Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// ListPosts returns every post, newest first.
func (s *PostService) ListPosts(ctx context.Context) ([]models.Post, error) {
	return s.store.Posts().List(ctx)
}

// ToggleLike adds or removes userID from the post's likes and returns the set.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID string) (models.StringSet, error) {
	var likes models.StringSet
	err := s.store.Tx(ctx, func(tx repository.Store) error {
		post, err := tx.Posts().GetByIDForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		post.Likes, _ = post.Likes.Toggle(userID)
		if err := tx.Posts().UpdateColumns(ctx, post, "likes"); err != nil {
			return err
		}
		likes = post.Likes
		return nil
	})
	if err != nil {
		return nil, err
	}
	if likes == nil {
		likes = models.NewStringSet()
	}
	return likes, nil
}

// AddComment appends a comment and returns the full thread.
func (s *PostService) AddComment(ctx context.Context, postID, authorID, text string) (models.Comments, error) {
	text, err := validation.ValidateText("Comment text", text, validation.MaxPostLength)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	var comments models.Comments
	err = s.store.Tx(ctx, func(tx repository.Store) error {
		post, err := tx.Posts().GetByIDForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		post.Comments = append(post.Comments, models.Comment{
			ID:        models.NewID("c"),
			AuthorID:  authorID,
			Text:      text,
			CreatedAt: s.now().UnixMilli(),
		})
		if err := tx.Posts().UpdateColumns(ctx, post, "comments"); err != nil {
			return err
		}
		comments = post.Comments
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// DeletePost removes a post regardless of author.
func (s *PostService) DeletePost(ctx context.Context, postID string) error {
	return s.store.Posts().Delete(ctx, postID)
}
