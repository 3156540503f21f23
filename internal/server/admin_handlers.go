package server

import (
	"github.com/gofiber/fiber/v2"
)

// AdminSetPlan handles PATCH /api/admin/users/:id
// @Summary Set plan and badge
// @Description Paid plans run 30 days and reset credits to the plan allotment
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body object{plan=string,badge=string} true "Plan and badge"
// @Success 200 {object} object{ok=bool,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id} [patch]
func (s *Server) AdminSetPlan(c *fiber.Ctx) error {
	var req struct {
		Plan  string `json:"plan" validate:"required,plan"`
		Badge string `json:"badge" validate:"badge"`
	}
	if !parseBody(c, &req) {
		return nil
	}

	user, err := s.adminService.SetPlan(c.UserContext(), c.Params("id"), req.Plan, req.Badge)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "user": user})
}

// AdminDeleteUser handles DELETE /api/admin/users/:id
// @Summary Delete user
// @Description Removes a non-admin account and its follow edges
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} object{ok=bool}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id} [delete]
func (s *Server) AdminDeleteUser(c *fiber.Ctx) error {
	if err := s.adminService.DeleteUser(c.UserContext(), c.Params("id")); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// AdminDeletePost handles DELETE /api/admin/posts/:id
// @Summary Delete post
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} object{ok=bool}
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/posts/{id} [delete]
func (s *Server) AdminDeletePost(c *fiber.Ctx) error {
	if err := s.postService.DeletePost(c.UserContext(), c.Params("id")); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// GetFeatureFlags returns configured feature flags and evaluated state for current user.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"names":     []string{},
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}

	return c.JSON(fiber.Map{
		"names":     s.featureFlags.Names(),
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(currentUserID(c)),
	})
}
