package service

import (
	"context"
	"testing"
	"time"

	"socialnet/internal/database"
	"socialnet/internal/models"
	"socialnet/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
)

func newTestStore(t *testing.T) repository.Store {
	t.Helper()
	db, err := database.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return repository.NewStore(db)
}

// testClock is a settable time source shared by the services under test.
type testClock struct {
	t time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func createUser(t *testing.T, store repository.Store, clock *testClock, username string, mutate ...func(*models.User)) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	now := clock.Now().UnixMilli()
	u := &models.User{
		ID:               models.NewID("u"),
		Username:         username,
		Email:            username + "@example.com",
		Password:         string(hash),
		Avatar:           models.AvatarFor(username),
		Plan:             models.PlanFree,
		Credits:          models.PlanFree.Allotment(),
		LastCreditRefill: now,
		CreatedAt:        now,
	}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, store.Users().Create(context.Background(), u))
	return u
}

func reload(t *testing.T, store repository.Store, id string) *models.User {
	t.Helper()
	u, err := store.Users().GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, models.ErrorCode(err), "unexpected error: %v", err)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

// storeStub lets a test replace one repository while Tx runs fn inline.
type storeStub struct {
	users repository.UserRepository
	posts repository.PostRepository
	convs repository.ConversationRepository
}

func (s *storeStub) Users() repository.UserRepository                 { return s.users }
func (s *storeStub) Posts() repository.PostRepository                 { return s.posts }
func (s *storeStub) Conversations() repository.ConversationRepository { return s.convs }
func (s *storeStub) Tx(_ context.Context, fn func(repository.Store) error) error {
	return fn(s)
}

type userRepoStub struct {
	getByIDFn          func(context.Context, string) (*models.User, error)
	getByIDForUpdateFn func(context.Context, string) (*models.User, error)
	getByEmailFn       func(context.Context, string) (*models.User, error)
	getByUsernameFn    func(context.Context, string) (*models.User, error)
	createFn           func(context.Context, *models.User) error
	updateColumnsFn    func(context.Context, *models.User, ...string) error
	deleteFn           func(context.Context, string) error
	listExpiredFn      func(context.Context, int64) ([]models.User, error)
	decrementCreditFn  func(context.Context, string) (bool, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}

func (s *userRepoStub) GetByIDForUpdate(ctx context.Context, id string) (*models.User, error) {
	return s.getByIDForUpdateFn(ctx, id)
}

func (s *userRepoStub) GetProfile(ctx context.Context, id string) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}

func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}

func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}

func (s *userRepoStub) UpdateColumns(ctx context.Context, user *models.User, columns ...string) error {
	return s.updateColumnsFn(ctx, user, columns...)
}

func (s *userRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

func (s *userRepoStub) List(context.Context) ([]models.User, error)       { return nil, nil }
func (s *userRepoStub) ListAdmins(context.Context) ([]models.User, error) { return nil, nil }

func (s *userRepoStub) ListExpired(ctx context.Context, now int64) ([]models.User, error) {
	return s.listExpiredFn(ctx, now)
}

func (s *userRepoStub) DecrementCredit(ctx context.Context, id string) (bool, error) {
	return s.decrementCreditFn(ctx, id)
}

func (s *userRepoStub) RemoveFromGraph(context.Context, string) ([]string, error) { return nil, nil }

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:          func(_ context.Context, id string) (*models.User, error) { return &models.User{ID: id}, nil },
		getByIDForUpdateFn: func(_ context.Context, id string) (*models.User, error) { return &models.User{ID: id}, nil },
		getByEmailFn:       func(context.Context, string) (*models.User, error) { return nil, nil },
		getByUsernameFn:    func(context.Context, string) (*models.User, error) { return nil, nil },
		createFn:           func(context.Context, *models.User) error { return nil },
		updateColumnsFn:    func(context.Context, *models.User, ...string) error { return nil },
		deleteFn:           func(context.Context, string) error { return nil },
		listExpiredFn:      func(context.Context, int64) ([]models.User, error) { return nil, nil },
		decrementCreditFn:  func(context.Context, string) (bool, error) { return true, nil },
	}
}
