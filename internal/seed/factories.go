// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"socialnet/internal/cache"
	"socialnet/internal/models"
	"socialnet/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password every generated user gets.
const DefaultPassword = "password123"

// FactoryOptions tune how the factory generates data.
type FactoryOptions struct {
	// Seed makes generated content reproducible. Zero picks a time-based seed.
	Seed int64
	// FastHash hashes passwords with the minimum bcrypt cost.
	FastHash bool
	// MaxDays bounds how far back generated timestamps reach.
	MaxDays int
}

// Factory builds domain entities and persists them through the repositories.
type Factory struct {
	db    *gorm.DB
	store repository.Store
	opts  FactoryOptions
	faker *gofakeit.Faker

	passwordHash string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts FactoryOptions) *Factory {
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 30
	}
	return &Factory{
		db:    db,
		store: repository.NewStore(db),
		opts:  opts,
		faker: gofakeit.New(opts.Seed),
	}
}

// hash bcrypts password. DefaultPassword is hashed once per factory.
func (f *Factory) hash(password string) (string, error) {
	cost := bcrypt.DefaultCost
	if f.opts.FastHash {
		cost = bcrypt.MinCost
	}
	if password == DefaultPassword && f.passwordHash != "" {
		return f.passwordHash, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	if password == DefaultPassword {
		f.passwordHash = string(hashed)
	}
	return string(hashed), nil
}

// pastMillis returns a random instant within the last MaxDays.
func (f *Factory) pastMillis() int64 {
	back := time.Duration(f.faker.Number(0, f.opts.MaxDays*24*60)) * time.Minute
	return time.Now().Add(-back).UnixMilli()
}

func (f *Factory) categories(limit int) models.StringSet {
	out := models.NewStringSet()
	n := f.faker.Number(0, limit)
	for i := 0; i < n; i++ {
		out = out.Add(f.faker.RandomString(models.Categories))
	}
	return out
}

func (f *Factory) username() string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return -1
	}, f.faker.Username())
	if len(name) > 24 {
		name = name[:24]
	}
	return fmt.Sprintf("%s%d", name, f.faker.Number(100, 999))
}

// BuildUser constructs a free user with fake profile data without saving it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) (*models.User, error) {
	hashed, err := f.hash(DefaultPassword)
	if err != nil {
		return nil, err
	}
	username := f.username()
	created := f.pastMillis()
	user := &models.User{
		ID:               models.NewID("u"),
		Username:         username,
		Email:            strings.ToLower(username) + "@" + f.faker.DomainName(),
		Password:         hashed,
		Bio:              f.faker.Sentence(10),
		Avatar:           models.AvatarFor(username),
		Categories:       f.categories(3),
		Plan:             models.PlanFree,
		Credits:          models.PlanFree.Allotment(),
		LastCreditRefill: created,
		Followers:        models.NewStringSet(),
		Following:        models.NewStringSet(),
		CreatedAt:        created,
	}
	for _, override := range overrides {
		override(user)
	}
	user.Avatar = models.AvatarFor(user.Username)
	return user, nil
}

// CreateUser constructs and persists a sample user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user, err := f.BuildUser(overrides...)
	if err != nil {
		return nil, err
	}
	if err := f.store.Users().Create(context.Background(), user); err != nil {
		return nil, err
	}
	return user, nil
}

// WithPlan assigns a plan the way an admin would: paid plans run 30 days
// from now with a full allotment.
func WithPlan(plan models.Plan, badge models.Badge) func(*models.User) {
	return func(u *models.User) {
		u.Plan = plan
		u.Badge = badge
		u.Credits = plan.Allotment()
		u.PlanExpires = 0
		if plan.Paid() {
			u.PlanExpires = time.Now().Add(models.PlanDuration).UnixMilli()
		}
	}
}

// BuildPost constructs a post for author without saving it.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		ID:         models.NewID("p"),
		AuthorID:   author.ID,
		Text:       f.faker.Paragraph(1, 2, 8, " "),
		Categories: f.categories(2),
		Likes:      models.NewStringSet(),
		Comments:   models.Comments{},
		CreatedAt:  f.pastMillis(),
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost constructs and persists a sample post for the given user.
func (f *Factory) CreatePost(author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, overrides...)
	if err := f.store.Posts().Create(context.Background(), post); err != nil {
		return nil, err
	}
	return post, nil
}

// CreatePostsBatch persists multiple posts in a single DB call.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if err := f.db.CreateInBatches(posts, 100).Error; err != nil {
		return err
	}
	cache.InvalidateFeed(context.Background())
	return nil
}

// Engage adds likes and comments from the given audience to post.
func (f *Factory) Engage(post *models.Post, audience []*models.User) {
	for _, u := range audience {
		if f.faker.Number(0, 2) == 0 {
			post.Likes = post.Likes.Add(u.ID)
		}
		if f.faker.Number(0, 4) == 0 {
			post.Comments = append(post.Comments, models.Comment{
				ID:        models.NewID("c"),
				AuthorID:  u.ID,
				Text:      f.faker.Sentence(8),
				CreatedAt: post.CreatedAt + int64(len(post.Comments)+1)*int64(time.Minute/time.Millisecond),
			})
		}
	}
}

// Follow makes a follow b, writing both rows in one transaction. Following an
// existing edge is a no-op.
func (f *Factory) Follow(a, b string) error {
	if a == b {
		return nil
	}
	ctx := context.Background()
	return f.store.Tx(ctx, func(tx repository.Store) error {
		actor, err := tx.Users().GetByIDForUpdate(ctx, a)
		if err != nil {
			return err
		}
		target, err := tx.Users().GetByIDForUpdate(ctx, b)
		if err != nil {
			return err
		}
		if actor.Following.Contains(b) {
			return nil
		}
		actor.Following = actor.Following.Add(b)
		target.Followers = target.Followers.Add(a)
		if err := tx.Users().UpdateColumns(ctx, actor, "following"); err != nil {
			return err
		}
		return tx.Users().UpdateColumns(ctx, target, "followers")
	})
}

// Converse creates the conversation between a and b with the given lines,
// alternating senders starting with a.
func (f *Factory) Converse(a, b string, lines []string) (*models.Conversation, error) {
	start := f.pastMillis()
	conv := &models.Conversation{
		ID:           models.NewID("conv"),
		Participants: models.NewStringSet(a, b),
		Messages:     models.Messages{},
		CreatedAt:    start,
	}
	for i, text := range lines {
		sender := a
		if i%2 == 1 {
			sender = b
		}
		conv.Messages = append(conv.Messages, models.Message{
			ID:        models.NewID("m"),
			SenderID:  sender,
			Text:      text,
			CreatedAt: start + int64(i)*int64(time.Minute/time.Millisecond),
		})
	}
	if err := f.store.Conversations().Create(context.Background(), conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Sentence exposes the factory's faker for callers generating message text.
func (f *Factory) Sentence(words int) string {
	return f.faker.Sentence(words)
}

// Pick returns a random index below n.
func (f *Factory) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	return f.faker.Number(0, n-1)
}
