package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"socialnet/internal/models"
	"socialnet/internal/validation"

	"gopkg.in/yaml.v3"
)

// Fixture is a hand-written data set. Users are referenced by username.
type Fixture struct {
	Users         []FixtureUser         `yaml:"users"`
	Posts         []FixturePost         `yaml:"posts"`
	Follows       [][2]string           `yaml:"follows"`
	Conversations []FixtureConversation `yaml:"conversations"`
}

type FixtureUser struct {
	Username   string   `yaml:"username"`
	Email      string   `yaml:"email"`
	Password   string   `yaml:"password"`
	Bio        string   `yaml:"bio"`
	Categories []string `yaml:"categories"`
	Plan       string   `yaml:"plan"`
	Badge      string   `yaml:"badge"`
}

type FixturePost struct {
	Author     string           `yaml:"author"`
	Text       string           `yaml:"text"`
	Categories []string         `yaml:"categories"`
	Likes      []string         `yaml:"likes"`
	Comments   []FixtureComment `yaml:"comments"`
}

type FixtureComment struct {
	Author string `yaml:"author"`
	Text   string `yaml:"text"`
}

type FixtureConversation struct {
	Between  [2]string `yaml:"between"`
	Messages []string  `yaml:"messages"`
}

// ParseFixture decodes a YAML fixture, rejecting unknown keys.
func ParseFixture(data []byte) (*Fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

// LoadFixtureFile reads and parses the fixture at path.
func LoadFixtureFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ApplyFixture inserts the fixture. Users whose username already exists are
// reused, existing follows and conversations are kept; posts are always added.
func (s *Seeder) ApplyFixture(f *Fixture) (Summary, error) {
	var sum Summary
	ctx := context.Background()
	users := s.factory.store.Users()
	byName := make(map[string]*models.User, len(f.Users))

	for _, fu := range f.Users {
		if existing, err := users.GetByUsername(ctx, fu.Username); err != nil {
			return sum, err
		} else if existing != nil {
			byName[fu.Username] = existing
			continue
		}

		u, err := s.buildFixtureUser(fu)
		if err != nil {
			return sum, fmt.Errorf("user %q: %w", fu.Username, err)
		}
		if err := users.Create(ctx, u); err != nil {
			return sum, fmt.Errorf("user %q: %w", fu.Username, err)
		}
		byName[fu.Username] = u
		sum.Users++
	}

	lookup := func(name string) (*models.User, error) {
		if u, ok := byName[name]; ok {
			return u, nil
		}
		u, err := users.GetByUsername(ctx, name)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, models.NewNotFoundError("User", name)
		}
		byName[name] = u
		return u, nil
	}

	for i, fp := range f.Posts {
		post, err := s.buildFixturePost(fp, lookup)
		if err != nil {
			return sum, fmt.Errorf("post %d: %w", i, err)
		}
		if err := s.factory.store.Posts().Create(ctx, post); err != nil {
			return sum, fmt.Errorf("post %d: %w", i, err)
		}
		sum.Posts++
	}

	for _, edge := range f.Follows {
		a, err := lookup(edge[0])
		if err != nil {
			return sum, err
		}
		b, err := lookup(edge[1])
		if err != nil {
			return sum, err
		}
		if a.ID == b.ID {
			return sum, models.NewValidationError("Cannot follow yourself: " + edge[0])
		}
		if err := s.factory.Follow(a.ID, b.ID); err != nil {
			return sum, err
		}
		sum.Follows++
	}

	for _, fc := range f.Conversations {
		a, err := lookup(fc.Between[0])
		if err != nil {
			return sum, err
		}
		b, err := lookup(fc.Between[1])
		if err != nil {
			return sum, err
		}
		if _, err := s.factory.Converse(a.ID, b.ID, fc.Messages); err != nil {
			if models.ErrorCode(err) == models.CodeDuplicate {
				continue
			}
			return sum, err
		}
		sum.Conversations++
	}
	return sum, nil
}

func (s *Seeder) buildFixtureUser(fu FixtureUser) (*models.User, error) {
	if err := validation.ValidateUsername(fu.Username); err != nil {
		return nil, err
	}
	email := fu.Email
	if email == "" {
		email = strings.ToLower(fu.Username) + "@example.com"
	}
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	categories, err := validation.ValidateCategories(fu.Categories)
	if err != nil {
		return nil, err
	}

	plan := models.PlanFree
	if fu.Plan != "" {
		if plan, err = models.ParsePlan(fu.Plan); err != nil {
			return nil, err
		}
	}
	badge := models.Badge(fu.Badge)
	if !badge.Valid() {
		return nil, fmt.Errorf("unknown badge %q", fu.Badge)
	}

	password := fu.Password
	if password == "" {
		password = DefaultPassword
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	hashed, err := s.factory.hash(password)
	if err != nil {
		return nil, err
	}

	return s.factory.BuildUser(func(u *models.User) {
		u.Username = fu.Username
		u.Email = email
		u.Password = hashed
		u.Bio = fu.Bio
		u.Categories = categories
	}, WithPlan(plan, badge))
}

func (s *Seeder) buildFixturePost(fp FixturePost, lookup func(string) (*models.User, error)) (*models.Post, error) {
	author, err := lookup(fp.Author)
	if err != nil {
		return nil, err
	}
	text, err := validation.ValidateText("text", fp.Text, validation.MaxPostLength)
	if err != nil {
		return nil, err
	}
	categories, err := validation.ValidateCategories(fp.Categories)
	if err != nil {
		return nil, err
	}

	likes := models.NewStringSet()
	for _, name := range fp.Likes {
		u, err := lookup(name)
		if err != nil {
			return nil, err
		}
		likes = likes.Add(u.ID)
	}

	post := s.factory.BuildPost(author, func(p *models.Post) {
		p.Text = text
		p.Categories = categories
		p.Likes = likes
	})
	for i, fc := range fp.Comments {
		u, err := lookup(fc.Author)
		if err != nil {
			return nil, err
		}
		post.Comments = append(post.Comments, models.Comment{
			ID:        models.NewID("c"),
			AuthorID:  u.ID,
			Text:      fc.Text,
			CreatedAt: post.CreatedAt + int64(i+1)*60_000,
		})
	}
	return post, nil
}
