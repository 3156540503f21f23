package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Name string `json:"name"`
}

func withMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAside_FetchesOnceThenServesFromCache(t *testing.T) {
	mr := withMiniRedis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *profile) func() error {
		return func() error {
			calls++
			dest.Name = "alice"
			return nil
		}
	}

	var first profile
	require.NoError(t, Aside(ctx, UserKey("u_1"), &first, UserTTL, fetch(&first)))
	var second profile
	require.NoError(t, Aside(ctx, UserKey("u_1"), &second, UserTTL, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "alice", second.Name)
	assert.True(t, mr.Exists("user:u_1"))
}

func TestAside_PropagatesFetchError(t *testing.T) {
	withMiniRedis(t)

	var dest profile
	err := Aside(context.Background(), "k", &dest, time.Minute, func() error { return errors.New("db down") })
	assert.EqualError(t, err, "db down")
}

func TestAside_WithoutRedisAlwaysFetches(t *testing.T) {
	SetClient(nil)

	calls := 0
	var dest profile
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), "k", &dest, time.Minute, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestInvalidateUsers_DropsProfilesAndList(t *testing.T) {
	mr := withMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, UsersListKey, []profile{{Name: "a"}}, UsersTTL))
	require.NoError(t, SetJSON(ctx, UserKey("u_1"), profile{Name: "a"}, UserTTL))
	require.NoError(t, SetJSON(ctx, UserKey("u_2"), profile{Name: "b"}, UserTTL))

	InvalidateUsers(ctx, "u_1")

	assert.False(t, mr.Exists(UsersListKey))
	assert.False(t, mr.Exists("user:u_1"))
	assert.True(t, mr.Exists("user:u_2"))
}

func TestInitRedis_EmptyAddressDisablesCache(t *testing.T) {
	InitRedis("")
	assert.Nil(t, GetClient())
}

func TestInitRedis_ConnectsToURL(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Cleanup(func() { SetClient(nil) })

	InitRedis("redis://" + mr.Addr() + "/0")
	require.NotNil(t, GetClient())
	require.NoError(t, GetClient().Set(context.Background(), "k", "v", 0).Err())
	assert.True(t, mr.Exists("k"))
}
