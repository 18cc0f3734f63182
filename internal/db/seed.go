package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var seedSkills = []string{"go", "rust", "react", "postgres", "kubernetes", "python", "grpc", "redis", "typescript", "terraform"}

// SeedTestData resets the database and populates it with demo developers.
//
// Behavior:
//  1. Clears messages, matches, requests, decisions and users (child tables first).
//  2. Creates 12 verified developers with hashed passwords and random skills.
//  3. Generates right/left swipes; every 3rd right swipe is reciprocated and
//     becomes an accepted request plus a match with a couple of messages.
//
// Compatible with both MySQL and SQLite (AUTO_INCREMENT reset skipped for SQLite).
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"messages", "matches", "connection_requests", "decisions", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		for _, table := range []string{"messages", "matches", "connection_requests", "users"} {
			db.Exec("ALTER TABLE " + table + " AUTO_INCREMENT = 1")
		}
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence")
	}

	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("Password#1"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	levels := []ExperienceLevel{ExperienceBeginner, ExperienceIntermediate, ExperienceAdvanced}
	avail := []Availability{AvailabilityFullTime, AvailabilityPartTime, AvailabilityHackathon}

	// --- Seed Users ---
	var users []User
	for i := 1; i <= 12; i++ {
		skills := make([]string, 0, 3)
		for _, idx := range r.Perm(len(seedSkills))[:3] {
			skills = append(skills, seedSkills[idx])
		}
		u := User{
			Name:            fmt.Sprintf("dev%d", i),
			Email:           fmt.Sprintf("dev%d@example.com", i),
			PasswordHash:    string(hash),
			Bio:             fmt.Sprintf("Developer #%d looking for a side-project partner", i),
			Skills:          skills,
			ExperienceLevel: levels[r.Intn(len(levels))],
			Availability:    avail[r.Intn(len(avail))],
			GithubLink:      fmt.Sprintf("https://github.com/dev%d", i),
			IsVerified:      true,
		}
		if err := db.Create(&u).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
		users = append(users, u)
	}
	log.Printf("Seeded %d users.", len(users))

	// --- Seed swipes, requests, matches ---
	counter := 0
	for _, actor := range users {
		for j := 0; j < 4; j++ {
			recipient := users[r.Intn(len(users))]
			if recipient.ID == actor.ID {
				continue
			}

			liked := r.Intn(100) < 70
			if err := upsertDecision(db, actor.ID, recipient.ID, liked); err != nil {
				return err
			}
			if !liked {
				continue
			}

			low, high := OrderedPair(actor.ID, recipient.ID)
			var existing int64
			db.Model(&Match{}).Where("user_a = ? AND user_b = ?", low, high).Count(&existing)
			if existing > 0 {
				continue
			}

			status := RequestPending
			if counter%3 == 0 {
				status = RequestAccepted
				if err := upsertDecision(db, recipient.ID, actor.ID, true); err != nil {
					return err
				}
			}
			counter++

			req := ConnectionRequest{SenderID: actor.ID, ReceiverID: recipient.ID, Status: status}
			var pending int64
			db.Model(&ConnectionRequest{}).
				Where("sender_id = ? AND receiver_id = ? AND status = ?", actor.ID, recipient.ID, RequestPending).
				Count(&pending)
			if pending > 0 {
				continue
			}
			if err := db.Create(&req).Error; err != nil {
				return fmt.Errorf("failed to seed request: %w", err)
			}
			if status != RequestAccepted {
				continue
			}

			m := Match{UserA: low, UserB: high}
			if err := db.Create(&m).Error; err != nil {
				return fmt.Errorf("failed to seed match: %w", err)
			}
			now := time.Now().UTC()
			msgs := []Message{
				{MatchID: m.ID, SenderID: actor.ID, Content: "hey! saw you like " + actor.Skills[0], CreatedAt: now},
				{MatchID: m.ID, SenderID: recipient.ID, Content: "hi, want to build something?", CreatedAt: now.Add(time.Second)},
			}
			if err := db.Create(&msgs).Error; err != nil {
				return fmt.Errorf("failed to seed messages: %w", err)
			}
		}
	}

	return nil
}

func upsertDecision(db *gorm.DB, actorID, recipientID uint64, liked bool) error {
	d := Decision{ActorID: actorID, RecipientID: recipientID, Liked: liked}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "actor_id"}, {Name: "recipient_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"liked", "updated_at"}),
	}).Create(&d).Error; err != nil {
		return fmt.Errorf("failed to seed decision: %w", err)
	}
	return nil
}
