package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"socialnet/internal/cache"
	"socialnet/internal/config"
	"socialnet/internal/database"
	"socialnet/internal/models"
	"socialnet/internal/seed"
	"socialnet/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func run(t *testing.T, db *gorm.DB, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(func() (*services, error) { return newServices(db), nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSetPlan(t *testing.T) {
	db := setupTestDB(t)
	f := seed.NewFactory(db, seed.FactoryOptions{Seed: 1, FastHash: true})
	u, err := f.CreateUser()
	require.NoError(t, err)

	out, err := run(t, db, "set-plan", u.Username, "plus", "verified")
	require.NoError(t, err)
	assert.Contains(t, out, "is now on plus")

	var got models.User
	require.NoError(t, db.Where("id = ?", u.ID).Take(&got).Error)
	assert.Equal(t, models.PlanPlus, got.Plan)
	assert.Equal(t, models.Badge("verified"), got.Badge)
	assert.NotZero(t, got.PlanExpires)

	_, err = run(t, db, "set-plan", u.Username, "gold")
	assert.Error(t, err)
	_, err = run(t, db, "set-plan", "nobody", "pro")
	assert.Error(t, err)
	_, err = run(t, db, "set-plan", u.Username)
	assert.Error(t, err, "plan argument is required")
}

func TestListAdminsAndSweep(t *testing.T) {
	db := setupTestDB(t)

	out, err := run(t, db, "list-admins")
	require.NoError(t, err)
	assert.Contains(t, out, "No admins found")

	f := seed.NewFactory(db, seed.FactoryOptions{Seed: 2, FastHash: true})
	admin, err := f.CreateUser(func(u *models.User) { u.IsAdmin = true })
	require.NoError(t, err)
	_, err = f.CreateUser(seed.WithPlan(models.PlanPro, models.BadgePro), func(u *models.User) { u.PlanExpires = 1 })
	require.NoError(t, err)

	out, err = run(t, db, "list-admins")
	require.NoError(t, err)
	assert.Contains(t, out, admin.Username)

	out, err = run(t, db, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "Expired 1 plan(s)")
}

func TestOpenFailureIsReported(t *testing.T) {
	cmd := newRootCmd(func() (*services, error) { return nil, errors.New("no database") })
	cmd.SetArgs([]string{"sweep"})
	cmd.SetOut(&bytes.Buffer{})
	assert.EqualError(t, cmd.Execute(), "no database")
}

func TestSetPlan_DropsSharedCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		DBDriver: "sqlite",
		DBPath:   filepath.Join(t.TempDir(), "admin.db"),
		RedisURL: "redis://" + mr.Addr() + "/0",
	}
	svc, err := openServices(cfg)
	require.NoError(t, err)
	require.NotNil(t, cache.GetClient())
	t.Cleanup(func() {
		_ = cache.GetClient().Close()
		cache.SetClient(nil)
	})

	alice, err := svc.users.Register(context.Background(), service.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)

	// A running server would have cached these.
	require.NoError(t, mr.Set(cache.UserKey(alice.ID), `{"id":"stale"}`))
	require.NoError(t, mr.Set(cache.UsersListKey, `[]`))

	cmd := newRootCmd(func() (*services, error) { return svc, nil })
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"set-plan", alice.Username, "pro"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.False(t, mr.Exists(cache.UserKey(alice.ID)))
	assert.False(t, mr.Exists(cache.UsersListKey))
}
