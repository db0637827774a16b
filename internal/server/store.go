package server

import (
	"context"
	"errors"

	"github.com/hunthq/treasurehunt/internal/hunt"
)

var ErrNotFound = errors.New("not found")

// TeamStore is the persistent record store for team documents. Updates are
// partial field-level merges, not whole-document replaces; last writer wins
// per field.
type TeamStore interface {
	Team(ctx context.Context, id string) (hunt.Team, error)
	// TeamByEmail resolves a team by primary email first, then by
	// membership in memberEmails.
	TeamByEmail(ctx context.Context, email string) (hunt.Team, error)
	PutTeam(ctx context.Context, t hunt.Team) error
	PatchTeam(ctx context.Context, id string, patch hunt.Patch) error
	// ListTeams returns all teams ordered by score, highest first.
	ListTeams(ctx context.Context) ([]hunt.Team, error)
}

// QuestionStore supplies each team's fixed question sequence. Absence is an
// error, not an empty list.
type QuestionStore interface {
	Questions(ctx context.Context, teamID string) ([]hunt.Question, error)
	PutQuestions(ctx context.Context, teamID string, qs []hunt.Question) error
}

// ScanStore holds ephemeral scan sessions keyed by (adminEmail, teamID).
type ScanStore interface {
	Save(ctx context.Context, s hunt.ScanSession) error
	Delete(ctx context.Context, adminEmail, teamID string) error
	// DeleteByTeam removes every session referencing the team, whichever
	// staff member created it. Returns the number removed.
	DeleteByTeam(ctx context.Context, teamID string) (int, error)
	ByAdmin(ctx context.Context, adminEmail string) ([]hunt.ScanSession, error)
	All(ctx context.Context) ([]hunt.ScanSession, error)
}

// AdminStore manages staff accounts and their login sessions.
type AdminStore interface {
	AdminByEmail(ctx context.Context, email string) (adminID, passwordHash string, err error)
	CreateAdmin(ctx context.Context, email, passwordHash string) (adminID string, err error)
	CreateAdminSession(ctx context.Context, adminID, email string) (sessionID string, err error)
	DeleteAdminSession(ctx context.Context, sessionID string) error
	AdminFromSession(ctx context.Context, sessionID string) (adminSession, error)
	CountAdmins(ctx context.Context) (int, error)
}
