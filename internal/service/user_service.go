// Package service holds the business logic behind the HTTP handlers.
package service

import (
	"context"
	"strings"
	"time"

	"socialnet/internal/models"
	"socialnet/internal/repository"
	"socialnet/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	store repository.Store
	plans *PlanService
	now   func() time.Time
}

type RegisterInput struct {
	Username   string
	Email      string
	Password   string
	Bio        string
	Categories []string
}

// UpdateProfileInput carries optional profile changes; nil fields are left alone.
type UpdateProfileInput struct {
	UserID     string
	Bio        *string
	Categories []string
}

func NewUserService(store repository.Store, plans *PlanService) *UserService {
	return &UserService{store: store, plans: plans, now: time.Now}
}

// Register validates the input, hashes the password and creates a free account
// with a fresh credit allotment.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := validation.NormalizeEmail(in.Email)

	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	bio, err := validation.ValidateBio(in.Bio)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	categories, err := validation.ValidateCategories(in.Categories)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	users := s.store.Users()
	if existing, err := users.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewDuplicateError("Email already registered")
	}
	if existing, err := users.GetByUsername(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewDuplicateError("Username already taken")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	now := s.now().UnixMilli()
	user := &models.User{
		ID:               models.NewID("u"),
		Username:         username,
		Email:            email,
		Password:         string(hashed),
		Bio:              bio,
		Avatar:           models.AvatarFor(username),
		Categories:       categories,
		Plan:             models.PlanFree,
		Badge:            models.BadgeNone,
		Credits:          models.PlanFree.Allotment(),
		LastCreditRefill: now,
		Followers:        models.NewStringSet(),
		Following:        models.NewStringSet(),
		CreatedAt:        now,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks the credentials and returns the user after the plan
// lifecycle has been applied. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.Users().GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewInvalidCredentialsError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewInvalidCredentialsError()
	}
	return s.plans.Refresh(ctx, user.ID)
}

// GetMe returns the caller's own record with expiry and refill applied.
func (s *UserService) GetMe(ctx context.Context, userID string) (*models.User, error) {
	return s.plans.Refresh(ctx, userID)
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.Users().List(ctx)
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.store.Users().GetProfile(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	var bio string
	if in.Bio != nil {
		b, err := validation.ValidateBio(*in.Bio)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		bio = b
	}
	var categories models.StringSet
	if in.Categories != nil {
		c, err := validation.ValidateCategories(in.Categories)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		categories = c
	}

	var user *models.User
	err := s.store.Tx(ctx, func(tx repository.Store) error {
		u, err := tx.Users().GetByIDForUpdate(ctx, in.UserID)
		if err != nil {
			return err
		}
		var cols []string
		if in.Bio != nil {
			u.Bio = bio
			cols = append(cols, "bio")
		}
		if in.Categories != nil {
			u.Categories = categories
			cols = append(cols, "categories")
		}
		if err := tx.Users().UpdateColumns(ctx, u, cols...); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ListAdmins returns every account carrying the admin role.
func (s *UserService) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.store.Users().ListAdmins(ctx)
}

// ResolveUser finds a user by id, then by username, then by email.
func (s *UserService) ResolveUser(ctx context.Context, ref string) (*models.User, error) {
	users := s.store.Users()
	if u, err := users.GetByID(ctx, ref); err == nil {
		return u, nil
	} else if models.ErrorCode(err) != models.CodeNotFound {
		return nil, err
	}
	if u, err := users.GetByUsername(ctx, ref); err != nil || u != nil {
		return u, err
	}
	if u, err := users.GetByEmail(ctx, validation.NormalizeEmail(ref)); err != nil || u != nil {
		return u, err
	}
	return nil, models.NewNotFoundError("User", ref)
}
