package service

import (
	"context"
	"log/slog"

	"socialnet/internal/middleware"
	"socialnet/internal/models"
	"socialnet/internal/repository"
)

// AdminService backs the admin endpoints and the admin CLI.
type AdminService struct {
	store repository.Store
	plans *PlanService
}

func NewAdminService(store repository.Store, plans *PlanService) *AdminService {
	return &AdminService{store: store, plans: plans}
}

// SetPlan assigns plan and badge given as raw strings.
func (s *AdminService) SetPlan(ctx context.Context, userID, plan, badge string) (*models.User, error) {
	p, err := models.ParsePlan(plan)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	b := models.Badge(badge)
	if !b.Valid() {
		return nil, models.NewValidationError("Unknown badge: " + badge)
	}
	return s.plans.Assign(ctx, userID, p, b, SourceAdmin)
}

// DeleteUser removes a non-admin account and strips it from every other
// user's followers and following lists. Posts and conversations stay.
func (s *AdminService) DeleteUser(ctx context.Context, userID string) error {
	err := s.store.Tx(ctx, func(tx repository.Store) error {
		target, err := tx.Users().GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if target.IsAdmin {
			return models.NewForbiddenError("Admin accounts cannot be deleted")
		}
		if _, err := tx.Users().RemoveFromGraph(ctx, userID); err != nil {
			return err
		}
		return tx.Users().Delete(ctx, userID)
	})
	if err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "user deleted", slog.String("target_id", userID))
	return nil
}

// IsAdmin reports whether userID carries the admin role.
func (s *AdminService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.IsAdmin, nil
}
