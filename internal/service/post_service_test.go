package service

import (
	"context"
	"testing"
	"time"

	"socialnet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostService(t *testing.T) (*PostService, *testClock) {
	t.Helper()
	clock := newTestClock()
	svc := NewPostService(newTestStore(t))
	svc.now = clock.Now
	return svc, clock
}

func TestPostService_CreatePost(t *testing.T) {
	svc, clock := newPostService(t)
	ctx := context.Background()
	alice := createUser(t, svc.store, clock, "alice")

	post, err := svc.CreatePost(ctx, CreatePostInput{AuthorID: alice.ID, Text: "  hello world ", Categories: []string{"Tech"}})
	require.NoError(t, err)
	assert.Equal(t, "hello world", post.Text)
	assert.Equal(t, alice.ID, post.AuthorID)
	assert.Equal(t, models.StringSet{"Tech"}, post.Categories)
	assert.Empty(t, post.Likes)
	assert.Empty(t, post.Comments)

	_, err = svc.CreatePost(ctx, CreatePostInput{AuthorID: alice.ID, Text: "   "})
	assertValidationError(t, err)

	_, err = svc.CreatePost(ctx, CreatePostInput{AuthorID: alice.ID, Text: "x", Categories: []string{"Nope"}})
	assertValidationError(t, err)

	_, err = svc.CreatePost(ctx, CreatePostInput{AuthorID: "u_missing", Text: "x"})
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_ListPostsNewestFirst(t *testing.T) {
	svc, clock := newPostService(t)
	ctx := context.Background()
	alice := createUser(t, svc.store, clock, "alice")

	first, err := svc.CreatePost(ctx, CreatePostInput{AuthorID: alice.ID, Text: "first"})
	require.NoError(t, err)
	clock.Advance(time.Second)
	second, err := svc.CreatePost(ctx, CreatePostInput{AuthorID: alice.ID, Text: "second"})
	require.NoError(t, err)

	posts, err := svc.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, first.ID, posts[1].ID)
}

func TestPostService_ToggleLike_Parity(t *testing.T) {
	svc, clock := newPostService(t)
	ctx := context.Background()
	alice := createUser(t, svc.store, clock, "alice")
	post, err := svc.CreatePost(ctx, CreatePostInput{AuthorID: alice.ID, Text: "hi"})
	require.NoError(t, err)

	for n := 1; n <= 4; n++ {
		likes, err := svc.ToggleLike(ctx, post.ID, "u_liker")
		require.NoError(t, err)
		if n%2 == 1 {
			assert.True(t, likes.Contains("u_liker"), "after %d toggles", n)
		} else {
			assert.False(t, likes.Contains("u_liker"), "after %d toggles", n)
		}
	}

	_, err = svc.ToggleLike(ctx, "p_missing", "u_liker")
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_AddComment(t *testing.T) {
	svc, clock := newPostService(t)
	ctx := context.Background()
	alice := createUser(t, svc.store, clock, "alice")
	post, err := svc.CreatePost(ctx, CreatePostInput{AuthorID: alice.ID, Text: "hi"})
	require.NoError(t, err)

	comments, err := svc.AddComment(ctx, post.ID, alice.ID, "first")
	require.NoError(t, err)
	comments, err = svc.AddComment(ctx, post.ID, alice.ID, "second")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Text)
	assert.Equal(t, "second", comments[1].Text)
	assert.Equal(t, alice.ID, comments[1].AuthorID)

	_, err = svc.AddComment(ctx, post.ID, alice.ID, " ")
	assertValidationError(t, err)

	_, err = svc.AddComment(ctx, "p_missing", alice.ID, "x")
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_DeletePost(t *testing.T) {
	svc, clock := newPostService(t)
	ctx := context.Background()
	alice := createUser(t, svc.store, clock, "alice")
	post, err := svc.CreatePost(ctx, CreatePostInput{AuthorID: alice.ID, Text: "bye"})
	require.NoError(t, err)

	require.NoError(t, svc.DeletePost(ctx, post.ID))
	assertCode(t, svc.DeletePost(ctx, post.ID), models.CodeNotFound)
}
