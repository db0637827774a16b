package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hunthq/treasurehunt/internal/hunt"
)

const (
	demoAdminEmail    = "staff@example.com"
	demoAdminPassword = "change-me-now"
	demoTeamEmail     = "demo-team@example.com"
)

// SeedDemo creates a demo staff account, one team, and its question set if
// no admins exist yet. Idempotent: does nothing on a populated database.
func SeedDemo(ctx context.Context, logger *slog.Logger, store *DocStore) error {
	count, err := store.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("counting admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := store.CreateAdmin(ctx, demoAdminEmail, string(hash)); err != nil {
		return fmt.Errorf("creating demo admin: %w", err)
	}

	team := hunt.NewTeam(uuid.NewString(), "Demo Team", demoTeamEmail,
		[]string{demoTeamEmail, "demo-second@example.com"}, time.Now())
	if err := store.PutTeam(ctx, team); err != nil {
		return fmt.Errorf("creating demo team: %w", err)
	}
	if err := store.PutQuestions(ctx, team.ID, demoQuestions()); err != nil {
		return fmt.Errorf("creating demo questions: %w", err)
	}

	logger.Info("demo data seeded", "admin", demoAdminEmail, "team_id", team.ID)
	return nil
}

func demoQuestions() []hunt.Question {
	return []hunt.Question{
		{
			Title:       "The Fountain",
			Description: "Start at the main entrance.",
			Question:    "How many bronze fish circle the fountain basin?",
			Answer:      "seven",
			Location:    "Courtyard fountain",
			Hint1:       "Some are hidden behind the center column.",
			Hint2:       "Count the tails, not the heads.",
		},
		{
			Title:       "The Library",
			Description: "Head to the reading room on the second floor.",
			Question:    "Which year is carved above the reading room door?",
			Answer:      "1921",
			Location:    "Library reading room",
			Hint1:       "It is a four digit year before 1950.",
			Hint2:       "The building predates the west wing by a decade.",
		},
		{
			Title:       "The Auditorium",
			Description: "Find the plaque by the stage entrance.",
			Question:    "Who is the auditorium named after?",
			Answer:      "eleanor james",
			Location:    "Auditorium stage door",
			Hint1:       "A former dean.",
			Hint2:       "Her first name is on the donor wall too.",
		},
		{
			Title:       "The Garden",
			Description: "Follow the gravel path to the sundial.",
			Question:    "What word is engraved on the sundial's base?",
			Answer:      "tempus",
			Location:    "Sundial garden",
			Hint1:       "It is Latin.",
			Hint2:       "First word of a phrase about time flying.",
		},
		{
			Title:       "The Tower",
			Description: "Finish at the clock tower.",
			Question:    "How many steps lead up to the tower door?",
			Answer:      "12",
			Location:    "Clock tower entrance",
			Hint1:       "Fewer than twenty.",
			Hint2:       "A dozen.",
		},
	}
}
