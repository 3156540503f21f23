package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"socialnet/internal/cache"
	"socialnet/internal/config"
	"socialnet/internal/database"
	"socialnet/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret-with-at-least-32-characters"

type testEnv struct {
	t   *testing.T
	srv *Server
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

type envOption func(*config.Config)

func withFlags(flags string) envOption {
	return func(c *config.Config) { c.FeatureFlags = flags }
}

// newTestEnv builds a server on an in-memory database. withRedis backs it
// with miniredis; otherwise the server runs without Redis.
func newTestEnv(t *testing.T, withRedis bool, opts ...envOption) *testEnv {
	t.Helper()

	db, err := database.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		Port:         "0",
		Env:          "test",
		JWTSecret:    testJWTSecret,
		FeatureFlags: "realtime_chat=on",
		CheckoutTTL:  30 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	env := &testEnv{t: t, db: db}
	var rdb *redis.Client
	if withRedis {
		env.mr = miniredis.RunT(t)
		rdb = redis.NewClient(&redis.Options{Addr: env.mr.Addr()})
	}

	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	env.srv = srv
	env.app = srv.NewApp()

	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = sqlDB.Close()
	})
	return env
}

// do sends a JSON request and returns the status and raw body.
func (e *testEnv) do(method, path, token string, body any) (int, []byte) {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp.StatusCode, raw
}

// doJSON is do plus a decode of the body into dest.
func (e *testEnv) doJSON(method, path, token string, body any, dest any) int {
	e.t.Helper()
	status, raw := e.do(method, path, token, body)
	if dest != nil {
		require.NoError(e.t, json.Unmarshal(raw, dest), "body: %s", raw)
	}
	return status
}

func (e *testEnv) status(method, path, token string, body any) int {
	e.t.Helper()
	status, _ := e.do(method, path, token, body)
	return status
}

func (e *testEnv) register(username string) (string, models.User) {
	e.t.Helper()
	var out AuthResponse
	status := e.doJSON(http.MethodPost, "/api/register", "", fiber.Map{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret1",
	}, &out)
	require.Equal(e.t, http.StatusCreated, status)
	require.NotEmpty(e.t, out.Token)
	return out.Token, *out.User
}

// promoteAdmin flips is_admin directly in the database.
func (e *testEnv) promoteAdmin(userID string) {
	e.t.Helper()
	e.updateUser(userID, map[string]any{"is_admin": true})
}

func (e *testEnv) updateUser(userID string, cols map[string]any) {
	e.t.Helper()
	require.NoError(e.t, e.db.Model(&models.User{}).Where("id = ?", userID).Updates(cols).Error)
	cache.InvalidateUsers(context.Background(), userID)
}

func (e *testEnv) me(token string) models.User {
	e.t.Helper()
	var u models.User
	status := e.doJSON(http.MethodGet, "/api/me", token, nil, &u)
	require.Equal(e.t, http.StatusOK, status)
	return u
}

func decodeError(t *testing.T, raw []byte) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &body), "body: %s", raw)
	return body
}
