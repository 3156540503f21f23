package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"socialnet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publisherStub struct {
	mu        sync.Mutex
	published []models.Message
	err       error
}

func (p *publisherStub) PublishMessage(_ context.Context, _ *models.Conversation, msg models.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, msg)
	return p.err
}

func newChatService(t *testing.T) (*ChatService, *publisherStub, *testClock) {
	t.Helper()
	clock := newTestClock()
	pub := &publisherStub{}
	svc := NewChatService(newTestStore(t), pub)
	svc.now = clock.Now
	return svc, pub, clock
}

func TestChatService_NewConversationCostsOneCredit(t *testing.T) {
	svc, _, clock := newChatService(t)
	ctx := context.Background()
	alice := createUser(t, svc.store, clock, "alice")
	bob := createUser(t, svc.store, clock, "bob")

	conv, created, err := svc.GetOrCreateConversation(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.StringSet{bob.ID, alice.ID}, conv.Participants)
	assert.Equal(t, 4, reload(t, svc.store, bob.ID).Credits)
	assert.Equal(t, 5, reload(t, svc.store, alice.ID).Credits)
}

func TestChatService_ReuseIsFreeInEitherOrder(t *testing.T) {
	svc, _, clock := newChatService(t)
	ctx := context.Background()
	alice := createUser(t, svc.store, clock, "alice")
	bob := createUser(t, svc.store, clock, "bob")

	first, _, err := svc.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	again, created, err := svc.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	reversed, created, err := svc.GetOrCreateConversation(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, reversed.ID)

	assert.Equal(t, 4, reload(t, svc.store, alice.ID).Credits)
	assert.Equal(t, 5, reload(t, svc.store, bob.ID).Credits)
}

func TestChatService_InsufficientCredits(t *testing.T) {
	svc, _, clock := newChatService(t)
	ctx := context.Background()
	broke := createUser(t, svc.store, clock, "broke", func(u *models.User) { u.Credits = 0 })
	alice := createUser(t, svc.store, clock, "alice")

	_, _, err := svc.GetOrCreateConversation(ctx, broke.ID, alice.ID)
	assertCode(t, err, models.CodeInsufficientCredits)

	convs, err := svc.ListConversations(ctx, broke.ID)
	require.NoError(t, err)
	assert.Empty(t, convs)
	assert.Equal(t, 0, reload(t, svc.store, broke.ID).Credits)
}

func TestChatService_ProIsNeverCharged(t *testing.T) {
	svc, _, clock := newChatService(t)
	ctx := context.Background()
	pro := createUser(t, svc.store, clock, "pro", func(u *models.User) {
		u.Plan, u.Credits = models.PlanPro, models.ProCredits
	})

	for _, name := range []string{"anna", "bert", "carl"} {
		other := createUser(t, svc.store, clock, name)
		_, created, err := svc.GetOrCreateConversation(ctx, pro.ID, other.ID)
		require.NoError(t, err)
		assert.True(t, created)
	}
	assert.Equal(t, models.ProCredits, reload(t, svc.store, pro.ID).Credits)
}

func TestChatService_GetOrCreate_Errors(t *testing.T) {
	svc, _, clock := newChatService(t)
	ctx := context.Background()
	alice := createUser(t, svc.store, clock, "alice")

	_, _, err := svc.GetOrCreateConversation(ctx, alice.ID, alice.ID)
	assertValidationError(t, err)

	_, _, err = svc.GetOrCreateConversation(ctx, alice.ID, "")
	assertValidationError(t, err)

	_, _, err = svc.GetOrCreateConversation(ctx, alice.ID, "u_missing")
	assertCode(t, err, models.CodeNotFound)
	assert.Equal(t, 5, reload(t, svc.store, alice.ID).Credits)
}

func TestChatService_SendMessage(t *testing.T) {
	svc, pub, clock := newChatService(t)
	ctx := context.Background()
	alice := createUser(t, svc.store, clock, "alice")
	bob := createUser(t, svc.store, clock, "bob")
	carol := createUser(t, svc.store, clock, "carol")

	conv, _, err := svc.GetOrCreateConversation(ctx, bob.ID, alice.ID)
	require.NoError(t, err)

	msgs, err := svc.SendMessage(ctx, conv.ID, bob.ID, "hi")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, bob.ID, msgs[0].SenderID)
	assert.Equal(t, "hi", msgs[0].Text)
	require.Len(t, pub.published, 1)
	assert.Equal(t, msgs[0].ID, pub.published[0].ID)

	msgs, err = svc.SendMessage(ctx, conv.ID, alice.ID, "hello back")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Text)

	listed, err := svc.ListConversations(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Len(t, listed[0].Messages, 2)

	t.Run("non participant", func(t *testing.T) {
		_, err := svc.SendMessage(ctx, conv.ID, carol.ID, "let me in")
		assertCode(t, err, models.CodeForbidden)
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := svc.SendMessage(ctx, conv.ID, bob.ID, "  ")
		assertValidationError(t, err)
	})

	t.Run("missing conversation", func(t *testing.T) {
		_, err := svc.SendMessage(ctx, "conv_missing", bob.ID, "x")
		assertCode(t, err, models.CodeNotFound)
	})

	t.Run("publish failure does not fail the send", func(t *testing.T) {
		pub.err = errors.New("redis down")
		msgs, err := svc.SendMessage(ctx, conv.ID, bob.ID, "still stored")
		require.NoError(t, err)
		assert.Len(t, msgs, 3)
	})
}
