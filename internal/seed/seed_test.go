package seed

import (
	"context"
	"testing"

	"socialnet/internal/database"
	"socialnet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
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

func newTestSeeder(t *testing.T) (*Seeder, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	return NewSeederWithFactory(db, NewFactory(db, FactoryOptions{Seed: 42, FastHash: true})), db
}

func loadUsers(t *testing.T, db *gorm.DB) map[string]models.User {
	t.Helper()
	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	out := make(map[string]models.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out
}

// assertSymmetric checks that every following edge has its follower twin.
func assertSymmetric(t *testing.T, users map[string]models.User) {
	t.Helper()
	for _, u := range users {
		for _, id := range u.Following {
			other, ok := users[id]
			require.True(t, ok, "%s follows unknown %s", u.ID, id)
			assert.True(t, other.Followers.Contains(u.ID), "%s missing follower %s", id, u.ID)
		}
		for _, id := range u.Followers {
			other, ok := users[id]
			require.True(t, ok, "%s followed by unknown %s", u.ID, id)
			assert.True(t, other.Following.Contains(u.ID), "%s missing following %s", id, u.ID)
		}
	}
}

func TestFactory_CreateUser(t *testing.T) {
	s, _ := newTestSeeder(t)

	u, err := s.factory.CreateUser()
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, models.PlanFree, u.Plan)
	assert.Equal(t, 5, u.Credits)
	assert.Equal(t, models.AvatarFor(u.Username), u.Avatar)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(DefaultPassword)))

	pro, err := s.factory.CreateUser(WithPlan(models.PlanPro, models.BadgePro))
	require.NoError(t, err)
	assert.Equal(t, models.ProCredits, pro.Credits)
	assert.NotZero(t, pro.PlanExpires)
}

func TestFactory_FollowIsSymmetricAndIdempotent(t *testing.T) {
	s, db := newTestSeeder(t)
	a, err := s.factory.CreateUser()
	require.NoError(t, err)
	b, err := s.factory.CreateUser()
	require.NoError(t, err)

	require.NoError(t, s.factory.Follow(a.ID, b.ID))
	require.NoError(t, s.factory.Follow(a.ID, b.ID))
	require.NoError(t, s.factory.Follow(a.ID, a.ID))

	users := loadUsers(t, db)
	assert.Equal(t, models.StringSet{b.ID}, users[a.ID].Following)
	assert.Equal(t, models.StringSet{a.ID}, users[b.ID].Followers)
	assertSymmetric(t, users)
}

func TestSeeder_Run(t *testing.T) {
	s, db := newTestSeeder(t)

	sum, err := s.Run(Options{NumUsers: 12, NumPosts: 20, FollowsPerUser: 3, Conversations: 5})
	require.NoError(t, err)
	assert.Equal(t, 12, sum.Users)
	assert.Equal(t, 20, sum.Posts)
	assert.LessOrEqual(t, sum.Conversations, 5)

	var posts int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.EqualValues(t, 20, posts)

	users := loadUsers(t, db)
	assert.Len(t, users, 12)
	assertSymmetric(t, users)

	var convs []models.Conversation
	require.NoError(t, db.Find(&convs).Error)
	for _, c := range convs {
		require.Len(t, c.Participants, 2)
		for _, m := range c.Messages {
			assert.True(t, c.HasParticipant(m.SenderID))
		}
	}
}

func TestSeeder_ClearAllKeepsAdmins(t *testing.T) {
	s, db := newTestSeeder(t)

	admin, err := s.factory.CreateUser(func(u *models.User) { u.IsAdmin = true })
	require.NoError(t, err)
	users, _, err := s.SeedSocialMesh(4, 0)
	require.NoError(t, err)
	require.NoError(t, s.factory.Follow(users[0].ID, admin.ID))
	_, err = s.SeedEngagement(users, 3)
	require.NoError(t, err)

	require.NoError(t, s.ClearAll())

	remaining := loadUsers(t, db)
	require.Len(t, remaining, 1)
	assert.Empty(t, remaining[admin.ID].Followers)

	var posts int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.Zero(t, posts)
}

func TestApplyFixture(t *testing.T) {
	s, db := newTestSeeder(t)

	fixture, err := LoadFixtureFile("testdata/small.yml")
	require.NoError(t, err)

	sum, err := s.ApplyFixture(fixture)
	require.NoError(t, err)
	assert.Equal(t, Summary{Users: 2, Posts: 1, Follows: 1, Conversations: 1}, sum)

	var alice, bob models.User
	require.NoError(t, db.Where("username = ?", "alice").Take(&alice).Error)
	require.NoError(t, db.Where("username = ?", "bob").Take(&bob).Error)
	assert.Equal(t, "alice@example.com", alice.Email)
	assert.Equal(t, models.StringSet{"Tech"}, alice.Categories)
	assert.Equal(t, models.PlanPro, bob.Plan)
	assert.Equal(t, models.BadgePro, bob.Badge)
	assert.True(t, alice.Following.Contains(bob.ID))
	assert.True(t, bob.Followers.Contains(alice.ID))

	var post models.Post
	require.NoError(t, db.Take(&post).Error)
	assert.Equal(t, alice.ID, post.AuthorID)
	assert.Equal(t, models.StringSet{bob.ID}, post.Likes)
	require.Len(t, post.Comments, 1)
	assert.Equal(t, bob.ID, post.Comments[0].AuthorID)

	conv, err := s.factory.store.Conversations().FindByPair(context.Background(), bob.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, conv)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, alice.ID, conv.Messages[0].SenderID)
	assert.Equal(t, bob.ID, conv.Messages[1].SenderID)

	// A second pass reuses the users and the conversation.
	again, err := s.ApplyFixture(fixture)
	require.NoError(t, err)
	assert.Equal(t, Summary{Posts: 1, Follows: 1}, again)
	assertSymmetric(t, loadUsers(t, db))
}

func TestParseFixture_Errors(t *testing.T) {
	_, err := ParseFixture([]byte("users:\n  - username: a\n    colour: red\n"))
	assert.Error(t, err, "unknown keys are rejected")

	f, err := ParseFixture(nil)
	require.NoError(t, err)
	assert.Empty(t, f.Users)

	s, _ := newTestSeeder(t)
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown plan", "users:\n  - username: carol\n    plan: gold\n"},
		{"unknown category", "users:\n  - username: carol\n    categories: [Cooking]\n"},
		{"unknown author", "posts:\n  - author: nobody\n    text: hi\n"},
		{"empty post", "users:\n  - username: dave\nposts:\n  - author: dave\n    text: '  '\n"},
		{"self follow", "users:\n  - username: erin\nfollows:\n  - [erin, erin]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFixture([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = s.ApplyFixture(f)
			assert.Error(t, err)
		})
	}
}

func TestDemoFixtureParses(t *testing.T) {
	f, err := LoadFixtureFile("../../fixtures/demo.yml")
	require.NoError(t, err)

	s, _ := newTestSeeder(t)
	sum, err := s.ApplyFixture(f)
	require.NoError(t, err)
	assert.Equal(t, len(f.Users), sum.Users)
	assert.Equal(t, len(f.Posts), sum.Posts)
}
