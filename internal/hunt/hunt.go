// Package hunt defines the core domain types and the team progression
// rules for the treasure hunt. It has zero external dependencies —
// everything here is pure Go.
package hunt

import (
	"errors"
	"time"
)

// QuestionsPerTeam is the fixed length of every team's question sequence.
const QuestionsPerTeam = 5

const (
	StartingScore = 200
	HintLimit     = 2
	SkipPenalty   = 50
)

// AnswerWindow is the nominal timed interval during which a started
// question may be finalized with time-decayed scoring.
const AnswerWindow = 120 * time.Second

var (
	ErrIndexMismatch    = errors.New("question index does not match the team's current question")
	ErrHintLimit        = errors.New("maximum hints already used for this question")
	ErrAlreadyFinalized = errors.New("question already finalized")
	ErrGameCompleted    = errors.New("game already completed")
	ErrBadPayload       = errors.New("malformed team payload")
)

type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeSkipped   Outcome = "skipped"
)

// Team is the authoritative progression and score record for one
// participating group. It is mutated exclusively through the transition
// functions in this package, applied by the game state engine.
type Team struct {
	ID                   string                 `json:"id"`
	Name                 string                 `json:"name"`
	Email                string                 `json:"email"`
	MemberEmails         []string               `json:"memberEmails"`
	Score                int                    `json:"score"`
	CurrentQuestionIndex int                    `json:"currentQuestionIndex"`
	QuestionStarted      bool                   `json:"questionStarted"`
	AnswerStarted        bool                   `json:"answerStarted"`
	AnswerStartedAt      *time.Time             `json:"answerStartedAt,omitempty"`
	HintsUsed            map[int]int            `json:"hintsUsed,omitempty"`
	QuestionStatuses     map[int]QuestionStatus `json:"questionStatuses,omitempty"`
	GameCompleted        bool                   `json:"gameCompleted"`
	GameCompletedAt      *time.Time             `json:"gameCompletedAt,omitempty"`
	CreatedAt            time.Time              `json:"createdAt"`
	UpdatedAt            time.Time              `json:"updatedAt"`
}

// QuestionStatus is the terminal outcome record for one question slot.
// Write-once: never overwritten once set.
type QuestionStatus struct {
	Status       Outcome   `json:"status"`
	Answer       string    `json:"answer"`
	PointsEarned int       `json:"pointsEarned"`
	CompletedAt  time.Time `json:"completedAt"`
}

// Question is one entry of a team's assigned sequence. Read-only for the
// duration of the event.
type Question struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Location    string `json:"location"`
	Hint1       string `json:"hint1"`
	Hint2       string `json:"hint2"`
}

// Hint returns the hint text for hint number 1 or 2, empty otherwise.
func (q Question) Hint(number int) string {
	switch number {
	case 1:
		return q.Hint1
	case 2:
		return q.Hint2
	}
	return ""
}

// ScanSession marks a team as actively managed by one staff member. It is
// a denormalized snapshot, never authoritative — always re-derivable from
// the Team record.
type ScanSession struct {
	AdminEmail           string    `json:"adminEmail"`
	TeamID               string    `json:"teamId"`
	TeamName             string    `json:"teamName"`
	TeamEmail            string    `json:"teamEmail"`
	MemberEmails         []string  `json:"memberEmails"`
	CurrentQuestionIndex int       `json:"currentQuestionIndex"`
	Score                int       `json:"score"`
	ScannedAt            time.Time `json:"scannedAt"`
}

// NewScanSession snapshots the team's public fields for the staff UI.
func NewScanSession(adminEmail string, t Team, now time.Time) ScanSession {
	return ScanSession{
		AdminEmail:           adminEmail,
		TeamID:               t.ID,
		TeamName:             t.Name,
		TeamEmail:            t.Email,
		MemberEmails:         t.MemberEmails,
		CurrentQuestionIndex: t.CurrentQuestionIndex,
		Score:                t.Score,
		ScannedAt:            now.UTC(),
	}
}

// NewTeam creates a fresh team record at the starting score.
func NewTeam(id, name, email string, memberEmails []string, now time.Time) Team {
	found := false
	for _, m := range memberEmails {
		if m == email {
			found = true
			break
		}
	}
	if !found {
		memberEmails = append([]string{email}, memberEmails...)
	}
	return Team{
		ID:           id,
		Name:         name,
		Email:        email,
		MemberEmails: memberEmails,
		Score:        StartingScore,
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}
}
