package server

import (
	"context"

	"socialnet/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts
// @Summary List posts
// @Description All posts, newest first
// @Tags posts
// @Produce json
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), listTimeout)
	defer cancel()

	posts, err := s.postService.ListPosts(ctx)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/posts
// @Summary Create post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{text=string,categories=[]string} true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Text       string   `json:"text"`
		Categories []string `json:"categories"`
	}
	if !parseBody(c, &req) {
		return nil
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID:   currentUserID(c),
		Text:       req.Text,
		Categories: req.Categories,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// LikePost handles POST /api/posts/:id/like
// @Summary Like or unlike
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} object{likes=[]string}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	likes, err := s.postService.ToggleLike(c.UserContext(), c.Params("id"), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"likes": likes})
}

// CommentPost handles POST /api/posts/:id/comment
// @Summary Comment
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body object{text=string} true "Comment"
// @Success 200 {object} object{comments=[]models.Comment}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comment [post]
func (s *Server) CommentPost(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if !parseBody(c, &req) {
		return nil
	}

	comments, err := s.postService.AddComment(c.UserContext(), c.Params("id"), currentUserID(c), req.Text)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"comments": comments})
}
