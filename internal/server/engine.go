package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hunthq/treasurehunt/internal/hunt"
)

// Engine is the sole authority over team progression and score. Every
// operation is a short read-modify-write: read the current record, compute
// a field-level patch through the pure transitions in the hunt package,
// write the patch in a single merge, then publish the fresh snapshot.
// Operations are safe to retry — a retry that no longer matches the
// record's preconditions is rejected, never silently reapplied.
type Engine struct {
	teams     TeamStore
	questions QuestionStore
	scans     ScanStore
	broker    *Broker
	logger    *slog.Logger
	now       func() time.Time
}

func NewEngine(teams TeamStore, questions QuestionStore, scans ScanStore, broker *Broker, logger *slog.Logger) *Engine {
	return &Engine{
		teams:     teams,
		questions: questions,
		scans:     scans,
		broker:    broker,
		logger:    logger,
		now:       time.Now,
	}
}

// ScanResult reports what a staff scan did: either a session now exists,
// or the team had already finished and only completion bookkeeping ran.
type ScanResult struct {
	Team      hunt.Team
	Session   *hunt.ScanSession
	Completed bool
}

// Scan decodes a scanned team payload and checks the team in for the
// scanning staff member. Scanning the same team twice upserts the one
// session rather than duplicating it. A late scan of a finished team
// finalizes its completion flags instead of erroring.
func (e *Engine) Scan(ctx context.Context, adminEmail, payload string) (ScanResult, error) {
	ref, err := hunt.DecodeTeamRef(payload)
	if err != nil {
		return ScanResult{}, err
	}

	team, err := e.resolveRef(ctx, ref)
	if err != nil {
		return ScanResult{}, err
	}

	if team.GameCompleted || team.CurrentQuestionIndex >= hunt.QuestionsPerTeam {
		if patch := team.CompletionPatch(e.now()); patch != nil {
			if err := e.teams.PatchTeam(ctx, team.ID, patch); err != nil {
				return ScanResult{}, fmt.Errorf("marking team %s completed: %w", team.ID, err)
			}
			team, err = e.publishTeam(ctx, team.ID)
			if err != nil {
				return ScanResult{}, err
			}
		}
		return ScanResult{Team: team, Completed: true}, nil
	}

	session := hunt.NewScanSession(adminEmail, team, e.now())
	if err := e.scans.Save(ctx, session); err != nil {
		return ScanResult{}, fmt.Errorf("saving scan session: %w", err)
	}

	e.broker.Publish(teamTopic(team.ID), TeamEvent{Type: "team_scanned", Team: &team})
	return ScanResult{Team: team, Session: &session}, nil
}

func (e *Engine) resolveRef(ctx context.Context, ref hunt.TeamRef) (hunt.Team, error) {
	if ref.TeamID != "" {
		team, err := e.teams.Team(ctx, ref.TeamID)
		if err == nil {
			return team, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return hunt.Team{}, err
		}
		// Stale id in an old QR code; the email is still authoritative.
	}
	return e.teams.TeamByEmail(ctx, ref.Email)
}

// ReleaseScan drops one staff member's session for a team without touching
// the team record.
func (e *Engine) ReleaseScan(ctx context.Context, adminEmail, teamID string) error {
	if err := e.scans.Delete(ctx, adminEmail, teamID); err != nil {
		return fmt.Errorf("releasing scan session: %w", err)
	}
	e.broker.Publish(teamTopic(teamID), TeamEvent{Type: "scan_released"})
	return nil
}

// ScannedTeams lists the teams a staff member currently has checked in,
// refreshed against the authoritative team records.
func (e *Engine) ScannedTeams(ctx context.Context, adminEmail string) ([]hunt.Team, error) {
	sessions, err := e.scans.ByAdmin(ctx, adminEmail)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(sessions))
	var teams []hunt.Team
	for _, s := range sessions {
		if seen[s.TeamID] {
			continue
		}
		seen[s.TeamID] = true
		team, err := e.teams.Team(ctx, s.TeamID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, nil
}

// StartQuestion opens the timed answer window for the team's current
// question.
func (e *Engine) StartQuestion(ctx context.Context, teamID string, questionIndex int) (hunt.Team, error) {
	team, err := e.teams.Team(ctx, teamID)
	if err != nil {
		return hunt.Team{}, err
	}

	patch, err := team.Start(questionIndex, e.now())
	if err != nil {
		return hunt.Team{}, err
	}
	if err := e.teams.PatchTeam(ctx, team.ID, patch); err != nil {
		return hunt.Team{}, fmt.Errorf("starting question: %w", err)
	}
	return e.publishTeam(ctx, team.ID)
}

// HintResult authorizes one hint reveal. Text stays with the question
// store; surfaces look it up by the granted number.
type HintResult struct {
	Team  hunt.Team
	Grant hunt.HintGrant
}

// GiveHint charges the team for its next hint on the question, capped at
// two. The third request is rejected with no state change.
func (e *Engine) GiveHint(ctx context.Context, teamID string, questionIndex int) (HintResult, error) {
	team, err := e.teams.Team(ctx, teamID)
	if err != nil {
		return HintResult{}, err
	}

	grant, patch, err := team.UseHint(questionIndex, e.now())
	if err != nil {
		return HintResult{}, err
	}
	if err := e.teams.PatchTeam(ctx, team.ID, patch); err != nil {
		return HintResult{}, fmt.Errorf("recording hint: %w", err)
	}

	team, err = e.publishTeam(ctx, team.ID)
	if err != nil {
		return HintResult{}, err
	}
	return HintResult{Team: team, Grant: grant}, nil
}

// FinalizeResult is the outcome of submitAnswer or skipQuestion.
type FinalizeResult struct {
	Team      hunt.Team
	Finalized hunt.Finalized
}

// SubmitAnswer grades the current question and advances the team. Correct
// answers earn time-decayed points from the answer window start; wrong
// answers earn nothing. The team's scan sessions are invalidated so staff
// must re-scan before the next question — one scan grades one question.
func (e *Engine) SubmitAnswer(ctx context.Context, teamID string, questionIndex int, isCorrect bool, answerText string) (FinalizeResult, error) {
	team, err := e.teams.Team(ctx, teamID)
	if err != nil {
		return FinalizeResult{}, err
	}
	fin, patch, err := team.FinalizeAnswer(questionIndex, isCorrect, answerText, e.now())
	if err != nil {
		return FinalizeResult{}, err
	}
	return e.applyFinalize(ctx, team.ID, fin, patch)
}

// SkipQuestion finalizes the current question as skipped at a flat
// penalty, with the same advancement and scan invalidation as a graded
// answer.
func (e *Engine) SkipQuestion(ctx context.Context, teamID string, questionIndex int) (FinalizeResult, error) {
	team, err := e.teams.Team(ctx, teamID)
	if err != nil {
		return FinalizeResult{}, err
	}
	fin, patch, err := team.Skip(questionIndex, e.now())
	if err != nil {
		return FinalizeResult{}, err
	}
	return e.applyFinalize(ctx, team.ID, fin, patch)
}

func (e *Engine) applyFinalize(ctx context.Context, teamID string, fin hunt.Finalized, patch hunt.Patch) (FinalizeResult, error) {
	if err := e.teams.PatchTeam(ctx, teamID, patch); err != nil {
		return FinalizeResult{}, fmt.Errorf("finalizing question: %w", err)
	}

	// Best-effort cleanup: a missed deletion only means a stale session
	// survives until the sweeper or its TTL catches it.
	if n, err := e.scans.DeleteByTeam(ctx, teamID); err != nil {
		e.logger.Warn("clearing scan sessions failed", "team_id", teamID, "error", err)
	} else if n > 0 {
		e.logger.Info("scan sessions cleared", "team_id", teamID, "count", n)
	}

	team, err := e.publishTeam(ctx, teamID)
	if err != nil {
		return FinalizeResult{}, err
	}
	e.publishLeaderboard(ctx)
	return FinalizeResult{Team: team, Finalized: fin}, nil
}

// publishTeam re-reads the team and pushes the fresh snapshot to its
// subscribers.
func (e *Engine) publishTeam(ctx context.Context, teamID string) (hunt.Team, error) {
	team, err := e.teams.Team(ctx, teamID)
	if err != nil {
		return hunt.Team{}, err
	}
	e.broker.Publish(teamTopic(team.ID), TeamEvent{Type: "team_updated", Team: &team})
	return team, nil
}

func (e *Engine) publishLeaderboard(ctx context.Context) {
	entries, err := e.Leaderboard(ctx)
	if err != nil {
		e.logger.Warn("leaderboard refresh failed", "error", err)
		return
	}
	e.broker.Publish(topicLeaderboard, entries)
}

// TeamForEmail resolves the authenticated candidate's team.
func (e *Engine) TeamForEmail(ctx context.Context, email string) (hunt.Team, error) {
	return e.teams.TeamByEmail(ctx, email)
}

// Team returns the authoritative record by id.
func (e *Engine) Team(ctx context.Context, teamID string) (hunt.Team, error) {
	return e.teams.Team(ctx, teamID)
}

// Question returns one entry of the team's assigned sequence.
func (e *Engine) Question(ctx context.Context, teamID string, index int) (hunt.Question, error) {
	qs, err := e.questions.Questions(ctx, teamID)
	if err != nil {
		return hunt.Question{}, err
	}
	if index < 0 || index >= len(qs) {
		return hunt.Question{}, fmt.Errorf("question %d for team %s: %w", index, teamID, ErrNotFound)
	}
	return qs[index], nil
}

// SlotProgress is the per-slot view of a team's run.
type SlotProgress struct {
	QuestionIndex int        `json:"questionIndex"`
	Title         string     `json:"title"`
	Location      string     `json:"location"`
	Status        string     `json:"status"` // upcoming | started | correct | incorrect | skipped
	PointsEarned  int        `json:"pointsEarned"`
	HintsUsed     int        `json:"hintsUsed"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	IsCurrent     bool       `json:"isCurrent"`
}

// Progress assembles the candidate-facing progress view: one entry per
// question slot with its terminal outcome or pending state.
func (e *Engine) Progress(ctx context.Context, teamID string) ([]SlotProgress, error) {
	team, err := e.teams.Team(ctx, teamID)
	if err != nil {
		return nil, err
	}
	qs, err := e.questions.Questions(ctx, teamID)
	if err != nil {
		return nil, err
	}

	progress := make([]SlotProgress, len(qs))
	for i, q := range qs {
		slot := SlotProgress{
			QuestionIndex: i,
			Title:         q.Title,
			Location:      q.Location,
			Status:        "upcoming",
			HintsUsed:     team.HintsUsed[i],
			IsCurrent:     i == team.CurrentQuestionIndex && !team.GameCompleted,
		}
		if st, ok := team.QuestionStatuses[i]; ok {
			slot.Status = string(st.Status)
			slot.PointsEarned = st.PointsEarned
			completedAt := st.CompletedAt
			slot.CompletedAt = &completedAt
		} else if slot.IsCurrent && team.QuestionStarted {
			slot.Status = "started"
		}
		progress[i] = slot
	}
	return progress, nil
}

// LeaderboardEntry is one row of the score standings, highest first.
type LeaderboardEntry struct {
	TeamID        string `json:"teamId"`
	Name          string `json:"name"`
	Score         int    `json:"score"`
	Completed     int    `json:"completed"`
	GameCompleted bool   `json:"gameCompleted"`
}

func (e *Engine) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	teams, err := e.teams.ListTeams(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(teams))
	for i, t := range teams {
		entries[i] = LeaderboardEntry{
			TeamID:        t.ID,
			Name:          t.Name,
			Score:         t.Score,
			Completed:     len(t.QuestionStatuses),
			GameCompleted: t.GameCompleted,
		}
	}
	return entries, nil
}

// SweepScanSessions reconciles the ephemeral scan sessions against the
// authoritative team records, dropping any whose team has moved on or
// finished. Covers cleanup that a crashed finalize never got to.
func (e *Engine) SweepScanSessions(ctx context.Context) (int, error) {
	sessions, err := e.scans.All(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, s := range sessions {
		team, err := e.teams.Team(ctx, s.TeamID)
		stale := false
		switch {
		case errors.Is(err, ErrNotFound):
			stale = true
		case err != nil:
			return removed, err
		default:
			stale = team.GameCompleted || team.CurrentQuestionIndex != s.CurrentQuestionIndex
		}
		if !stale {
			continue
		}
		if err := e.scans.Delete(ctx, s.AdminEmail, s.TeamID); err != nil {
			e.logger.Warn("sweeping scan session failed",
				"admin", s.AdminEmail, "team_id", s.TeamID, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
