// Package seed fills a development database with fake users, groups, posts,
// comments and follows.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"quill/internal/middleware"
	"quill/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

// Options controls how much data Run creates.
type Options struct {
	Users  int
	Groups int
	Posts  int
	// CommentsPerPost and FollowsPerUser are upper bounds; the actual
	// number per row is random.
	CommentsPerPost int
	FollowsPerUser  int
	// Seed makes a run reproducible. Zero picks a random seed.
	Seed int64
}

// Result counts what Run inserted.
type Result struct {
	Users    int
	Groups   int
	Posts    int
	Comments int
	Follows  int
}

// Seeder inserts fake rows through gorm.
type Seeder struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewSeeder creates a Seeder whose fake data is driven by seed.
func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	return &Seeder{db: db, faker: gofakeit.New(seed), now: time.Now}
}

// Run seeds the database according to opts.
func Run(ctx context.Context, db *gorm.DB, opts Options) (*Result, error) {
	return NewSeeder(db, opts.Seed).Run(ctx, opts)
}

// Run seeds users first, then groups, posts, comments and follows.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	db := s.db.WithContext(ctx)
	res := &Result{}

	users, err := s.seedUsers(db, opts.Users)
	if err != nil {
		return nil, fmt.Errorf("seed users: %w", err)
	}
	res.Users = len(users)

	groups, err := s.seedGroups(db, opts.Groups)
	if err != nil {
		return nil, fmt.Errorf("seed groups: %w", err)
	}
	res.Groups = len(groups)

	if len(users) == 0 {
		return res, nil
	}

	posts, err := s.seedPosts(db, users, groups, opts.Posts)
	if err != nil {
		return nil, fmt.Errorf("seed posts: %w", err)
	}
	res.Posts = len(posts)

	if res.Comments, err = s.seedComments(db, users, posts, opts.CommentsPerPost); err != nil {
		return nil, fmt.Errorf("seed comments: %w", err)
	}
	if res.Follows, err = s.seedFollows(db, users, opts.FollowsPerUser); err != nil {
		return nil, fmt.Errorf("seed follows: %w", err)
	}

	middleware.Logger.InfoContext(ctx, "seeding complete",
		"users", res.Users, "groups", res.Groups, "posts", res.Posts,
		"comments", res.Comments, "follows", res.Follows)
	return res, nil
}

func (s *Seeder) seedUsers(db *gorm.DB, n int) ([]models.User, error) {
	if n <= 0 {
		return nil, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, n)
	seen := make(map[string]bool, n)
	for len(users) < n {
		username := s.username()
		if seen[username] {
			continue
		}
		seen[username] = true
		users = append(users, models.User{
			Username:  username,
			Email:     username + "@example.com",
			Password:  string(hash),
			FirstName: s.faker.FirstName(),
			LastName:  s.faker.LastName(),
		})
	}
	if err := db.CreateInBatches(&users, 100).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// username builds a name that satisfies the signup rules.
func (s *Seeder) username() string {
	base := strings.ToLower(s.faker.Username())
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.':
			return r
		}
		return -1
	}, base)
	if len(base) > 24 {
		base = base[:24]
	}
	return fmt.Sprintf("%s%d", base, s.faker.Number(100, 99999))
}

func (s *Seeder) seedGroups(db *gorm.DB, n int) ([]models.Group, error) {
	if n <= 0 {
		return nil, nil
	}
	groups := make([]models.Group, 0, n)
	seen := make(map[string]bool, n)
	for len(groups) < n {
		title := s.faker.HipsterWord() + " " + s.faker.Hobby()
		slug := slugify(title)
		if slug == "" {
			slug = "group"
		}
		for base, i := slug, 2; seen[slug]; i++ {
			slug = fmt.Sprintf("%s-%d", base, i)
		}
		seen[slug] = true
		groups = append(groups, models.Group{
			Title:       title,
			Slug:        slug,
			Description: s.faker.Sentence(12),
		})
	}
	if err := db.Create(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (s *Seeder) seedPosts(db *gorm.DB, users []models.User, groups []models.Group, n int) ([]models.Post, error) {
	if n <= 0 {
		return nil, nil
	}
	now := s.now()
	posts := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		author := users[s.faker.Number(0, len(users)-1)]
		post := models.Post{
			Text:      s.faker.Paragraph(1, 3, 12, " "),
			AuthorID:  author.ID,
			CreatedAt: now.Add(-time.Duration(s.faker.Number(0, 90*24*60)) * time.Minute),
		}
		// Roughly two posts in three belong to a group.
		if len(groups) > 0 && s.faker.Number(0, 2) > 0 {
			post.GroupID = &groups[s.faker.Number(0, len(groups)-1)].ID
		}
		posts = append(posts, post)
	}
	if err := db.Omit("Author", "Group").CreateInBatches(&posts, 200).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Seeder) seedComments(db *gorm.DB, users []models.User, posts []models.Post, maxPerPost int) (int, error) {
	if maxPerPost <= 0 || len(posts) == 0 {
		return 0, nil
	}
	var comments []models.Comment
	for _, post := range posts {
		for j := s.faker.Number(0, maxPerPost); j > 0; j-- {
			comments = append(comments, models.Comment{
				PostID:    post.ID,
				AuthorID:  users[s.faker.Number(0, len(users)-1)].ID,
				Text:      s.faker.Sentence(s.faker.Number(3, 15)),
				CreatedAt: post.CreatedAt.Add(time.Duration(s.faker.Number(1, 72*60)) * time.Minute),
			})
		}
	}
	if len(comments) == 0 {
		return 0, nil
	}
	if err := db.Omit("Author", "Post").CreateInBatches(&comments, 200).Error; err != nil {
		return 0, err
	}
	return len(comments), nil
}

func (s *Seeder) seedFollows(db *gorm.DB, users []models.User, maxPerUser int) (int, error) {
	if maxPerUser <= 0 || len(users) < 2 {
		return 0, nil
	}
	var follows []models.Follow
	for _, user := range users {
		picked := make(map[uint]bool)
		for j := s.faker.Number(0, maxPerUser); j > 0; j-- {
			author := users[s.faker.Number(0, len(users)-1)]
			if author.ID == user.ID || picked[author.ID] {
				continue
			}
			picked[author.ID] = true
			follows = append(follows, models.Follow{UserID: user.ID, AuthorID: author.ID})
		}
	}
	if len(follows) == 0 {
		return 0, nil
	}
	if err := db.Omit("User", "Author").CreateInBatches(&follows, 200).Error; err != nil {
		return 0, err
	}
	return len(follows), nil
}

func slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
