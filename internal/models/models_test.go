package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringSet_Toggle(t *testing.T) {
	t.Parallel()

	var s StringSet
	s, present := s.Toggle("a")
	assert.True(t, present)
	assert.Equal(t, StringSet{"a"}, s)

	s, present = s.Toggle("a")
	assert.False(t, present)
	assert.Empty(t, s)
}

func TestStringSet_AddIsIdempotent(t *testing.T) {
	t.Parallel()

	s := NewStringSet("x", "y", "x")
	assert.Equal(t, StringSet{"x", "y"}, s)
	assert.Equal(t, StringSet{"x", "y"}, s.Add("y"))
}

func TestNilCollectionsMarshalAsEmptyArrays(t *testing.T) {
	t.Parallel()

	out, err := json.Marshal(Post{ID: "p_1"})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"likes":[]`)
	assert.Contains(t, string(out), `"comments":[]`)

	out, err = json.Marshal(Conversation{ID: "conv_1"})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"messages":[]`)
	assert.NotContains(t, string(out), "PairKey")
}

func TestUserPasswordNeverSerialized(t *testing.T) {
	t.Parallel()

	out, err := json.Marshal(User{ID: "u_1", Password: "hash"})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hash")
}

func TestPlanAllotment(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 5, PlanFree.Allotment())
	assert.Equal(t, 20, PlanPlus.Allotment())
	assert.Equal(t, ProCredits, PlanPro.Allotment())
	assert.Equal(t, 5, Plan("bogus").Allotment())
}

func TestParsePlan(t *testing.T) {
	t.Parallel()

	p, err := ParsePlan("plus")
	require.NoError(t, err)
	assert.Equal(t, PlanPlus, p)

	_, err = ParsePlan("gold")
	assert.Error(t, err)
}

func TestPairKeyIsOrderIndependent(t *testing.T) {
	t.Parallel()
	assert.Equal(t, PairKeyFor("u_a", "u_b"), PairKeyFor("u_b", "u_a"))
}

func TestAvatarFor(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "A", AvatarFor("alice"))
	assert.Equal(t, "Ö", AvatarFor("öz"))
	assert.Equal(t, "", AvatarFor(""))
}

func TestErrorCode(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("wrap: %w", NewInsufficientCreditsError())
	assert.Equal(t, CodeInsufficientCredits, ErrorCode(wrapped))
	assert.Equal(t, "", ErrorCode(errors.New("plain")))
}
