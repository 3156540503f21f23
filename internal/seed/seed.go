package seed

import (
	"context"
	"fmt"
	"log/slog"

	"socialnet/internal/cache"
	"socialnet/internal/middleware"
	"socialnet/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers       int
	NumPosts       int
	FollowsPerUser int
	Conversations  int
	ShouldClean    bool
}

// Summary counts what a seeding run created.
type Summary struct {
	Users         int
	Posts         int
	Follows       int
	Conversations int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d users, %d posts, %d follows, %d conversations", s.Users, s.Posts, s.Follows, s.Conversations)
}

// Seeder populates a database with generated or fixture data.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder creates a seeder with a time-seeded factory.
func NewSeeder(db *gorm.DB) *Seeder {
	return NewSeederWithFactory(db, NewFactory(db, FactoryOptions{}))
}

func NewSeederWithFactory(db *gorm.DB, f *Factory) *Seeder {
	return &Seeder{db: db, factory: f}
}

// ClearAll deletes every conversation, post and non-admin user and empties
// the admins' follow lists so no dangling ids remain.
func (s *Seeder) ClearAll() error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Conversation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&models.Post{}).Error; err != nil {
			return err
		}
		if err := tx.Where("is_admin = ?", false).Delete(&models.User{}).Error; err != nil {
			return err
		}
		var admins []models.User
		if err := tx.Find(&admins).Error; err != nil {
			return err
		}
		for i := range admins {
			admins[i].Followers = models.NewStringSet()
			admins[i].Following = models.NewStringSet()
			if err := tx.Model(&admins[i]).Select("followers", "following").Updates(&admins[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear database: %w", err)
	}

	ctx := context.Background()
	cache.Invalidate(ctx, cache.UsersListKey, cache.FeedKey)
	middleware.Logger.Info("database cleared")
	return nil
}

// SeedSocialMesh creates n users and wires each to follow up to
// followsPerUser others.
func (s *Seeder) SeedSocialMesh(n, followsPerUser int) ([]*models.User, int, error) {
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		var opts []func(*models.User)
		// Sprinkle a few paid accounts in so the plan UI has something to show.
		switch i % 10 {
		case 3:
			opts = append(opts, WithPlan(models.PlanPlus, models.BadgePlus))
		case 7:
			opts = append(opts, WithPlan(models.PlanPro, models.BadgePro))
		}
		u, err := s.factory.CreateUser(opts...)
		if err != nil {
			return nil, 0, fmt.Errorf("create user %d: %w", i, err)
		}
		users = append(users, u)
	}

	follows := 0
	if len(users) < 2 {
		return users, follows, nil
	}
	for _, u := range users {
		for j := 0; j < followsPerUser; j++ {
			target := users[s.factory.Pick(len(users))]
			if target.ID == u.ID {
				continue
			}
			if err := s.factory.Follow(u.ID, target.ID); err != nil {
				return nil, follows, fmt.Errorf("follow %s -> %s: %w", u.ID, target.ID, err)
			}
			follows++
		}
	}
	return users, follows, nil
}

// SeedEngagement writes numPosts posts by random authors, each liked and
// commented on by a random slice of users.
func (s *Seeder) SeedEngagement(users []*models.User, numPosts int) ([]*models.Post, error) {
	if len(users) == 0 || numPosts <= 0 {
		return nil, nil
	}
	posts := make([]*models.Post, 0, numPosts)
	for i := 0; i < numPosts; i++ {
		author := users[s.factory.Pick(len(users))]
		post := s.factory.BuildPost(author)
		s.factory.Engage(post, users)
		posts = append(posts, post)
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	return posts, nil
}

// SeedConversations opens n conversations between random user pairs.
// Pairs that already talk are skipped.
func (s *Seeder) SeedConversations(users []*models.User, n int) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}
	created := 0
	for i := 0; i < n; i++ {
		a := users[s.factory.Pick(len(users))]
		b := users[s.factory.Pick(len(users))]
		if a.ID == b.ID {
			continue
		}
		lines := make([]string, 1+s.factory.Pick(5))
		for j := range lines {
			lines[j] = s.factory.Sentence(6)
		}
		if _, err := s.factory.Converse(a.ID, b.ID, lines); err != nil {
			if models.ErrorCode(err) == models.CodeDuplicate {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}

// Run executes a full generated seeding pass.
func (s *Seeder) Run(opts Options) (Summary, error) {
	var sum Summary
	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return sum, err
		}
	}

	users, follows, err := s.SeedSocialMesh(opts.NumUsers, opts.FollowsPerUser)
	if err != nil {
		return sum, err
	}
	sum.Users, sum.Follows = len(users), follows

	posts, err := s.SeedEngagement(users, opts.NumPosts)
	if err != nil {
		return sum, err
	}
	sum.Posts = len(posts)

	sum.Conversations, err = s.SeedConversations(users, opts.Conversations)
	if err != nil {
		return sum, err
	}

	middleware.Logger.Info("seeding finished",
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("follows", sum.Follows),
		slog.Int("conversations", sum.Conversations),
	)
	return sum, nil
}
