// Command main fills the configured database with fake blog data.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/middleware"
	"quill/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numGroups := flag.Int("groups", 5, "Number of groups to create")
	numPosts := flag.Int("posts", 100, "Number of posts to create")
	comments := flag.Int("comments", 3, "Maximum comments per post")
	follows := flag.Int("follows", 5, "Maximum follows per user")
	seedValue := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.InitLogger(cfg.Env, cfg.LogLevel)

	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	res, err := seed.Run(ctx, db, seed.Options{
		Users:           *numUsers,
		Groups:          *numGroups,
		Posts:           *numPosts,
		CommentsPerPost: *comments,
		FollowsPerUser:  *follows,
		Seed:            *seedValue,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d groups, %d posts, %d comments, %d follows",
		res.Users, res.Groups, res.Posts, res.Comments, res.Follows)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
