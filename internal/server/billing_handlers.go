package server

import (
	"socialnet/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetPlans handles GET /api/plans
// @Summary Plan catalogue
// @Tags billing
// @Produce json
// @Success 200 {array} models.PlanOffer
// @Router /plans [get]
func (s *Server) GetPlans(c *fiber.Ctx) error {
	return c.JSON(models.PlanCatalogue)
}

// Checkout handles POST /api/billing/checkout
// @Summary Start an upgrade
// @Description Issues a code to quote with the manual payment. No payment is verified.
// @Tags billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{plan=string} true "plus or pro"
// @Success 200 {object} service.CheckoutResult
// @Failure 400 {object} models.ErrorResponse
// @Router /billing/checkout [post]
func (s *Server) Checkout(c *fiber.Ctx) error {
	var req struct {
		Plan string `json:"plan" validate:"required,plan"`
	}
	if !parseBody(c, &req) {
		return nil
	}

	plan, err := models.ParsePlan(req.Plan)
	if err != nil {
		return respondServiceError(c, models.NewValidationError(err.Error()))
	}

	result, err := s.billingService.Checkout(c.UserContext(), currentUserID(c), plan)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

// ConfirmCheckout handles POST /api/billing/confirm
// @Summary Redeem an upgrade code
// @Tags billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{code=string} true "Checkout code"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /billing/confirm [post]
func (s *Server) ConfirmCheckout(c *fiber.Ctx) error {
	var req struct {
		Code string `json:"code" validate:"required"`
	}
	if !parseBody(c, &req) {
		return nil
	}

	user, err := s.billingService.Confirm(c.UserContext(), currentUserID(c), req.Code)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}
