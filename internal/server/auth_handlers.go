package server

import (
	"log/slog"
	"time"

	"socialnet/internal/middleware"
	"socialnet/internal/models"
	"socialnet/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register handles POST /api/register
// @Summary Register
// @Description Create a free account and return a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,password=string,bio=string,categories=[]string} true "Registration"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Username   string   `json:"username"`
		Email      string   `json:"email"`
		Password   string   `json:"password"`
		Bio        string   `json:"bio"`
		Categories []string `json:"categories" validate:"max=15,dive,category"`
	}
	if !parseBody(c, &req) {
		return nil
	}

	user, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		Bio:        req.Bio,
		Categories: req.Categories,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return respondServiceError(c, models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(AuthResponse{Token: token, User: user})
}

// Login handles POST /api/login
// @Summary Login
// @Description Verify credentials, apply plan expiry and credit refill, return a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !parseBody(c, &req) {
		return nil
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondServiceError(c, err)
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return respondServiceError(c, models.NewInternalError(err))
	}

	return c.JSON(AuthResponse{Token: token, User: user})
}

// Logout handles POST /api/logout
// @Summary Logout
// @Description Revoke the presented token until it would have expired
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{ok=bool}
// @Router /logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	jti, _ := c.Locals("jti").(string)
	exp, _ := c.Locals("tokenExp").(time.Time)

	if jti == "" || s.redis == nil {
		middleware.Logger.WarnContext(c.UserContext(), "token revocation unavailable")
		return c.JSON(fiber.Map{"ok": true, "revoked": false})
	}

	ttl := time.Until(exp)
	if ttl <= 0 {
		return c.JSON(fiber.Map{"ok": true, "revoked": false})
	}
	if err := s.redis.Set(c.UserContext(), blacklistKey+jti, "1", ttl).Err(); err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "failed to revoke token", slog.String("error", err.Error()))
		return respondServiceError(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"ok": true, "revoked": true})
}

// GetMe handles GET /api/me
// @Summary Current user
// @Description Return the caller with plan expiry and credit refill applied
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.userService.GetMe(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}
