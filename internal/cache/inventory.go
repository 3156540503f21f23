package cache

import (
	"context"
	"time"
)

const (
	UserKeyPrefix = "user:"
	UsersListKey  = "users:all"
	FeedKey       = "posts:feed"
)

const (
	UserTTL  = 5 * time.Minute
	UsersTTL = time.Minute
	FeedTTL  = 30 * time.Second
)

func UserKey(userID string) string {
	return UserKeyPrefix + userID
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// UserKeys lists the user list key and the profile keys of userIDs.
func UserKeys(userIDs ...string) []string {
	keys := make([]string, 0, len(userIDs)+1)
	keys = append(keys, UsersListKey)
	for _, id := range userIDs {
		keys = append(keys, UserKey(id))
	}
	return keys
}

// InvalidateUsers drops the cached profiles of the given users and the user list.
func InvalidateUsers(ctx context.Context, userIDs ...string) {
	Invalidate(ctx, UserKeys(userIDs...)...)
}

func InvalidateFeed(ctx context.Context) {
	Invalidate(ctx, FeedKey)
}
