// Command main runs the database seeder for socialnet.
package main

import (
	"flag"
	"log"

	"socialnet/internal/bootstrap"
	"socialnet/internal/config"
	"socialnet/internal/database"
	"socialnet/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 30, "Number of users to create")
	numPosts := flag.Int("posts", 120, "Number of posts to create")
	follows := flag.Int("follows", 5, "Follow attempts per user")
	convs := flag.Int("conversations", 20, "Number of conversations to open")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fixture := flag.String("fixture", "", "Load a YAML fixture instead of generated data")
	seedValue := flag.Int64("seed", 0, "Random seed (0 = time based)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := bootstrap.EnsureAdmin(cfg, db); err != nil {
		log.Fatalf("Failed to ensure admin account: %v", err)
	}

	s := seed.NewSeederWithFactory(db, seed.NewFactory(db, seed.FactoryOptions{Seed: *seedValue}))

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	var sum seed.Summary
	if *fixture != "" {
		f, err := seed.LoadFixtureFile(*fixture)
		if err != nil {
			log.Fatalf("Fixture load failed: %v", err)
		}
		if sum, err = s.ApplyFixture(f); err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
	} else {
		sum, err = s.Run(seed.Options{
			NumUsers:       *numUsers,
			NumPosts:       *numPosts,
			FollowsPerUser: *follows,
			Conversations:  *convs,
		})
		if err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	log.Printf("Seeded %s", sum)
	log.Printf("Generated users have the password: %s", seed.DefaultPassword)
}
