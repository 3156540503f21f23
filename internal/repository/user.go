package repository

import (
	"context"
	"errors"

	"socialnet/internal/cache"
	"socialnet/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.User, error)
	GetProfile(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateColumns(ctx context.Context, user *models.User, columns ...string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.User, error)
	ListAdmins(ctx context.Context) ([]models.User, error)
	ListExpired(ctx context.Context, now int64) ([]models.User, error)
	DecrementCredit(ctx context.Context, id string) (bool, error)
	RemoveFromGraph(ctx context.Context, id string) ([]string, error)
}

type userRepository struct {
	db         *gorm.DB
	invalidate invalidateFunc
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, invalidate: cache.Invalidate}
}

// GetByID reads the full row, password hash included. It never touches the
// cache because cached users are serialized without credentials.
func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := forUpdate(r.db.WithContext(ctx)).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "User", id)
	}
	return &user, nil
}

// GetProfile is the cached public read used by profile pages.
func (r *userRepository) GetProfile(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "User", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewDuplicateError("Username or email already taken")
		}
		return models.NewInternalError(err)
	}
	r.invalidate(ctx, cache.UsersListKey)
	return nil
}

// UpdateColumns writes only the named columns of user, zero values included,
// so a partially loaded or concurrently edited row keeps its other fields.
func (r *userRepository) UpdateColumns(ctx context.Context, user *models.User, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(user).Select(columns).Updates(user).Error; err != nil {
		return models.NewInternalError(err)
	}
	r.invalidate(ctx, cache.UserKeys(user.ID)...)
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	r.invalidate(ctx, cache.UserKeys(id)...)
	return nil
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := cache.Aside(ctx, cache.UsersListKey, &users, cache.UsersTTL, func() error {
		if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("is_admin = ?", true).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// ListExpired returns paid users whose plan_expires lies before now.
func (r *userRepository) ListExpired(ctx context.Context, now int64) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("plan <> ? AND plan_expires <> 0 AND plan_expires < ?", models.PlanFree, now).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// DecrementCredit takes one credit when the balance is positive. It reports
// false when no credit was available.
func (r *userRepository) DecrementCredit(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND credits > 0", id).
		UpdateColumn("credits", gorm.Expr("credits - ?", 1))
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	r.invalidate(ctx, cache.UserKeys(id)...)
	return true, nil
}

// RemoveFromGraph strips id from every other user's followers and following
// lists and returns the ids of the rows it rewrote.
func (r *userRepository) RemoveFromGraph(ctx context.Context, id string) ([]string, error) {
	pattern := `%"` + id + `"%`
	var users []models.User
	err := forUpdate(r.db.WithContext(ctx)).
		Where("id <> ? AND (followers LIKE ? OR following LIKE ?)", id, pattern, pattern).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	touched := make([]string, 0, len(users))
	for i := range users {
		u := &users[i]
		u.Followers = u.Followers.Remove(id)
		u.Following = u.Following.Remove(id)
		if err := r.db.WithContext(ctx).Model(u).Select("followers", "following").Updates(u).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		touched = append(touched, u.ID)
	}
	if len(touched) > 0 {
		r.invalidate(ctx, cache.UserKeys(touched...)...)
	}
	return touched, nil
}
