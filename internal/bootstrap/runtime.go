// Package bootstrap wires the database and Redis and makes sure the admin
// account exists before the server starts taking requests.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"socialnet/internal/cache"
	"socialnet/internal/config"
	"socialnet/internal/database"
	"socialnet/internal/middleware"
	"socialnet/internal/models"
	"socialnet/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AdminID is the fixed primary key of the seeded admin account.
const AdminID = "admin"

// Options control runtime initialization behavior.
type Options struct {
	// FixturePath, when set, loads a YAML fixture after the admin is ensured.
	FixturePath string
}

// InitRuntime connects to DB and Redis, ensures the admin account and
// optionally applies a fixture file.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := EnsureAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap admin account: %w", err)
	}

	if opts.FixturePath != "" {
		fixture, err := seed.LoadFixtureFile(opts.FixturePath)
		if err != nil {
			return nil, nil, err
		}
		if _, err := seed.NewSeeder(db).ApplyFixture(fixture); err != nil {
			return nil, nil, fmt.Errorf("failed to apply fixture %s: %w", opts.FixturePath, err)
		}
	}

	return db, r, nil
}

// EnsureAdmin creates the admin account on first boot. On later boots it only
// restores the role, plan and badge so a demoted admin cannot lock the
// service out; credentials changed at runtime are left alone.
func EnsureAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}

	email := strings.TrimSpace(strings.ToLower(cfg.AdminEmail))
	if email == "" {
		middleware.Logger.Warn("ADMIN_EMAIL empty, skipping admin bootstrap")
		return nil
	}
	if cfg.AdminPassword == "" {
		return errors.New("ADMIN_PASSWORD must be set together with ADMIN_EMAIL")
	}

	created := false
	err := db.Transaction(func(tx *gorm.DB) error {
		var admin models.User
		findErr := tx.Where("id = ?", AdminID).Take(&admin).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash admin password: %w", err)
			}
			admin = models.User{
				ID:         AdminID,
				Username:   "admin",
				Email:      email,
				Password:   string(hashed),
				Avatar:     models.AvatarFor("admin"),
				Categories: models.NewStringSet(),
				Plan:       models.PlanPro,
				Badge:      models.BadgeAdmin,
				IsAdmin:    true,
				Credits:    models.ProCredits,
				Followers:  models.NewStringSet(),
				Following:  models.NewStringSet(),
				CreatedAt:  time.Now().UnixMilli(),
			}
			created = true
			return tx.Create(&admin).Error
		case findErr != nil:
			return findErr
		default:
			return tx.Model(&models.User{}).Where("id = ?", AdminID).Updates(map[string]any{
				"is_admin":     true,
				"plan":         models.PlanPro,
				"badge":        models.BadgeAdmin,
				"credits":      models.ProCredits,
				"plan_expires": 0,
			}).Error
		}
	})
	if err != nil {
		return err
	}

	if created {
		middleware.Logger.Info("admin account created", slog.String("email", email))
	} else {
		cache.InvalidateUsers(context.Background(), AdminID)
	}
	return nil
}
