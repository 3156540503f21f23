package server

import (
	"context"
	"time"

	"socialnet/internal/service"

	"github.com/gofiber/fiber/v2"
)

const listTimeout = 5 * time.Second

// GetAllUsers handles GET /api/users
// @Summary List users
// @Description All users, oldest first, without credentials
// @Tags users
// @Produce json
// @Success 200 {array} models.User
// @Router /users [get]
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), listTimeout)
	defer cancel()

	users, err := s.userService.ListUsers(ctx)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(users)
}

// GetUserProfile handles GET /api/users/:id
// @Summary Get user
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PATCH /api/users/me
// @Summary Update profile
// @Description Change bio and/or interest categories; omitted fields are kept
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{bio=string,categories=[]string} true "Profile changes"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me [patch]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Bio        *string  `json:"bio"`
		Categories []string `json:"categories" validate:"omitempty,max=15,dive,category"`
	}
	if !parseBody(c, &req) {
		return nil
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:     currentUserID(c),
		Bio:        req.Bio,
		Categories: req.Categories,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// ToggleFollow handles POST /api/users/:id/follow
// @Summary Follow or unfollow
// @Description Follows the user, or unfollows when already following
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} object{following=[]string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/follow [post]
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	following, err := s.socialService.ToggleFollow(c.UserContext(), currentUserID(c), c.Params("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"following": following})
}
