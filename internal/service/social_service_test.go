package service

import (
	"context"
	"testing"

	"socialnet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocialService_ToggleFollow(t *testing.T) {
	store := newTestStore(t)
	clock := newTestClock()
	svc := NewSocialService(store)
	ctx := context.Background()

	alice := createUser(t, store, clock, "alice")
	bob := createUser(t, store, clock, "bob")

	following, err := svc.ToggleFollow(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StringSet{alice.ID}, following)
	assert.Equal(t, models.StringSet{bob.ID}, reload(t, store, alice.ID).Followers)
	assert.Empty(t, reload(t, store, alice.ID).Following)

	following, err = svc.ToggleFollow(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, following)
	assert.Empty(t, reload(t, store, alice.ID).Followers)
	assert.Empty(t, reload(t, store, bob.ID).Following)
}

func TestSocialService_ToggleFollow_PairOfTogglesRestoresState(t *testing.T) {
	store := newTestStore(t)
	clock := newTestClock()
	svc := NewSocialService(store)
	ctx := context.Background()

	a := createUser(t, store, clock, "anna")
	b := createUser(t, store, clock, "bert")
	c := createUser(t, store, clock, "carl")

	_, err := svc.ToggleFollow(ctx, c.ID, b.ID)
	require.NoError(t, err)
	_, err = svc.ToggleFollow(ctx, b.ID, a.ID)
	require.NoError(t, err)

	beforeA, beforeB := reload(t, store, a.ID), reload(t, store, b.ID)
	for i := 0; i < 2; i++ {
		_, err := svc.ToggleFollow(ctx, a.ID, b.ID)
		require.NoError(t, err)
	}
	afterA, afterB := reload(t, store, a.ID), reload(t, store, b.ID)

	assert.ElementsMatch(t, beforeA.Following, afterA.Following)
	assert.ElementsMatch(t, beforeB.Followers, afterB.Followers)
	assert.ElementsMatch(t, beforeA.Followers, afterA.Followers)
}

func TestSocialService_ToggleFollow_Errors(t *testing.T) {
	store := newTestStore(t)
	clock := newTestClock()
	svc := NewSocialService(store)
	alice := createUser(t, store, clock, "alice")

	_, err := svc.ToggleFollow(context.Background(), alice.ID, alice.ID)
	assertValidationError(t, err)

	_, err = svc.ToggleFollow(context.Background(), alice.ID, "u_missing")
	assertCode(t, err, models.CodeNotFound)
	assert.Empty(t, reload(t, store, alice.ID).Following)
}
