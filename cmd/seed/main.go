package main

import (
	"log"

	"github.com/oggyb/devmatch/internal/auth"
	"github.com/oggyb/devmatch/internal/config"
	"github.com/oggyb/devmatch/internal/db"
)

func main() {
	// Load configuration
	cfg := config.New()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	if err := db.SeedTestData(database); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	log.Println("Seeding completed.")

	// demo tokens for the first matched pair, handy for websocket clients
	if cfg.JWT.Secret == "" {
		return
	}
	authn, err := auth.NewAuthenticator(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTTL, nil)
	if err != nil {
		log.Fatalf("failed to init authenticator: %v", err)
	}
	var m db.Match
	if err := database.Order("id").First(&m).Error; err != nil {
		log.Printf("no match seeded: %v", err)
		return
	}
	for _, id := range m.Users() {
		token, err := authn.Issue(id)
		if err != nil {
			log.Fatalf("failed to issue token: %v", err)
		}
		log.Printf("match %d user %d token: %s", m.ID, id, token)
	}
}
