package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hunthq/treasurehunt/internal/database"
	"github.com/hunthq/treasurehunt/internal/hunt"
	"github.com/hunthq/treasurehunt/internal/migrations"
)

// memScanStore keeps scan sessions in a map so engine tests run without
// redis.
type memScanStore struct {
	mu       sync.Mutex
	sessions map[string]hunt.ScanSession
}

func newMemScanStore() *memScanStore {
	return &memScanStore{sessions: make(map[string]hunt.ScanSession)}
}

func memKey(adminEmail, teamID string) string { return adminEmail + "|" + teamID }

func (m *memScanStore) Save(_ context.Context, s hunt.ScanSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[memKey(s.AdminEmail, s.TeamID)] = s
	return nil
}

func (m *memScanStore) Delete(_ context.Context, adminEmail, teamID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, memKey(adminEmail, teamID))
	return nil
}

func (m *memScanStore) DeleteByTeam(_ context.Context, teamID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, s := range m.sessions {
		if s.TeamID == teamID {
			delete(m.sessions, k)
			n++
		}
	}
	return n, nil
}

func (m *memScanStore) ByAdmin(_ context.Context, adminEmail string) ([]hunt.ScanSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []hunt.ScanSession
	for _, s := range m.sessions {
		if s.AdminEmail == adminEmail {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memScanStore) All(_ context.Context) ([]hunt.ScanSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]hunt.ScanSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (m *memScanStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// fakeClock advances only when the test says so.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupEngine(t *testing.T) (*Engine, *DocStore, *memScanStore, *fakeClock) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	store := NewDocStore(db)
	scans := newMemScanStore()
	clk := &fakeClock{t: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)}

	e := NewEngine(store, store, scans, NewBroker(), testLogger())
	e.now = clk.Now
	return e, store, scans, clk
}

func seedTeam(t *testing.T, store *DocStore, clk *fakeClock) hunt.Team {
	t.Helper()
	ctx := context.Background()

	team := hunt.NewTeam("team-1", "Llama Squad", "llamas@example.com",
		[]string{"llamas@example.com", "second@example.com"}, clk.Now())
	if err := store.PutTeam(ctx, team); err != nil {
		t.Fatalf("put team: %v", err)
	}

	qs := make([]hunt.Question, hunt.QuestionsPerTeam)
	for i := range qs {
		qs[i] = hunt.Question{
			Title:    "Station",
			Question: "What is on the plaque?",
			Answer:   "bronze llama",
			Location: "Main lobby",
			Hint1:    "Look up.",
			Hint2:    "Near the elevator.",
		}
	}
	if err := store.PutQuestions(ctx, team.ID, qs); err != nil {
		t.Fatalf("put questions: %v", err)
	}
	return team
}

func TestEngineFullQuestionCycle(t *testing.T) {
	ctx := context.Background()
	e, store, scans, clk := setupEngine(t)
	team := seedTeam(t, store, clk)

	// Staff scans the team's code.
	res, err := e.Scan(ctx, "staff@example.com", hunt.EncodeTeamRef(team))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if res.Completed {
		t.Fatalf("fresh team reported completed")
	}
	if res.Session == nil || res.Session.TeamID != team.ID {
		t.Fatalf("scan session = %+v", res.Session)
	}
	if scans.count() != 1 {
		t.Fatalf("sessions = %d, want 1", scans.count())
	}

	// The answer window opens.
	got, err := e.StartQuestion(ctx, team.ID, 0)
	if err != nil {
		t.Fatalf("start question: %v", err)
	}
	if !got.AnswerStarted || got.AnswerStartedAt == nil {
		t.Fatalf("answer window not open: %+v", got)
	}

	// One hint costs 25.
	hr, err := e.GiveHint(ctx, team.ID, 0)
	if err != nil {
		t.Fatalf("give hint: %v", err)
	}
	if hr.Grant.Number != 1 || hr.Grant.Cost != 25 {
		t.Fatalf("grant = %+v", hr.Grant)
	}
	if hr.Team.Score != 175 {
		t.Fatalf("score after hint = %d, want 175", hr.Team.Score)
	}

	// Correct answer 72 s in earns 90 points.
	clk.Advance(72 * time.Second)
	fr, err := e.SubmitAnswer(ctx, team.ID, 0, true, "bronze llama")
	if err != nil {
		t.Fatalf("submit answer: %v", err)
	}
	if fr.Team.Score != 265 {
		t.Fatalf("score = %d, want 265", fr.Team.Score)
	}
	if fr.Team.CurrentQuestionIndex != 1 {
		t.Fatalf("index = %d, want 1", fr.Team.CurrentQuestionIndex)
	}
	st, ok := fr.Team.QuestionStatuses[0]
	if !ok || st.Status != hunt.OutcomeCorrect || st.PointsEarned != 90 {
		t.Fatalf("status[0] = %+v", st)
	}
	if fr.Team.AnswerStarted || fr.Team.AnswerStartedAt != nil {
		t.Fatalf("answer window not cleared: %+v", fr.Team)
	}

	// Grading invalidates the scan session.
	if scans.count() != 0 {
		t.Fatalf("sessions after finalize = %d, want 0", scans.count())
	}

	// Replaying the same grade is rejected, not reapplied.
	if _, err := e.SubmitAnswer(ctx, team.ID, 0, true, "bronze llama"); !errors.Is(err, hunt.ErrIndexMismatch) {
		t.Fatalf("replay error = %v, want index mismatch", err)
	}
	again, err := e.Team(ctx, team.ID)
	if err != nil {
		t.Fatalf("reload team: %v", err)
	}
	if again.Score != 265 {
		t.Fatalf("score changed on replay: %d", again.Score)
	}
}

func TestEngineScanIsIdempotentPerAdmin(t *testing.T) {
	ctx := context.Background()
	e, store, scans, clk := setupEngine(t)
	team := seedTeam(t, store, clk)
	payload := hunt.EncodeTeamRef(team)

	for range 3 {
		if _, err := e.Scan(ctx, "staff@example.com", payload); err != nil {
			t.Fatalf("scan: %v", err)
		}
	}
	if scans.count() != 1 {
		t.Fatalf("sessions = %d, want 1", scans.count())
	}

	// A second staff member gets their own session.
	if _, err := e.Scan(ctx, "other@example.com", payload); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if scans.count() != 2 {
		t.Fatalf("sessions = %d, want 2", scans.count())
	}
}

func TestEngineScanResolvesByMemberEmail(t *testing.T) {
	ctx := context.Background()
	e, store, scans, clk := setupEngine(t)
	team := seedTeam(t, store, clk)

	// Old QR code with a stale id but a valid member email.
	stale, _ := json.Marshal(hunt.TeamRef{TeamID: "gone", TeamName: team.Name, Email: "second@example.com"})
	res, err := e.Scan(ctx, "staff@example.com", string(stale))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if res.Team.ID != team.ID {
		t.Fatalf("resolved team = %s, want %s", res.Team.ID, team.ID)
	}
	if scans.count() != 1 {
		t.Fatalf("sessions = %d, want 1", scans.count())
	}
}

func TestEngineScanBadPayload(t *testing.T) {
	ctx := context.Background()
	e, _, _, _ := setupEngine(t)

	if _, err := e.Scan(ctx, "staff@example.com", "not json"); !errors.Is(err, hunt.ErrBadPayload) {
		t.Fatalf("error = %v, want bad payload", err)
	}
}

func TestEngineHintLimit(t *testing.T) {
	ctx := context.Background()
	e, store, _, clk := setupEngine(t)
	team := seedTeam(t, store, clk)

	h1, err := e.GiveHint(ctx, team.ID, 0)
	if err != nil {
		t.Fatalf("hint 1: %v", err)
	}
	h2, err := e.GiveHint(ctx, team.ID, 0)
	if err != nil {
		t.Fatalf("hint 2: %v", err)
	}
	if h1.Grant.Cost != 25 || h2.Grant.Cost != 50 {
		t.Fatalf("costs = %d, %d, want 25, 50", h1.Grant.Cost, h2.Grant.Cost)
	}
	if h2.Team.Score != 125 {
		t.Fatalf("score = %d, want 125", h2.Team.Score)
	}

	if _, err := e.GiveHint(ctx, team.ID, 0); !errors.Is(err, hunt.ErrHintLimit) {
		t.Fatalf("third hint error = %v, want hint limit", err)
	}
	again, _ := e.Team(ctx, team.ID)
	if again.Score != 125 {
		t.Fatalf("score changed by rejected hint: %d", again.Score)
	}
}

func TestEngineSkipPenalty(t *testing.T) {
	ctx := context.Background()
	e, store, _, clk := setupEngine(t)
	team := seedTeam(t, store, clk)

	fr, err := e.SkipQuestion(ctx, team.ID, 0)
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if fr.Team.Score != 150 {
		t.Fatalf("score = %d, want 150", fr.Team.Score)
	}
	if st := fr.Team.QuestionStatuses[0]; st.Status != hunt.OutcomeSkipped || st.PointsEarned != -50 {
		t.Fatalf("status[0] = %+v", st)
	}
	if fr.Team.CurrentQuestionIndex != 1 {
		t.Fatalf("index = %d, want 1", fr.Team.CurrentQuestionIndex)
	}
}

func TestEngineCompletionAfterFifthQuestion(t *testing.T) {
	ctx := context.Background()
	e, store, _, clk := setupEngine(t)
	team := seedTeam(t, store, clk)

	for i := range hunt.QuestionsPerTeam {
		if _, err := e.StartQuestion(ctx, team.ID, i); err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		clk.Advance(30 * time.Second)
		fr, err := e.SubmitAnswer(ctx, team.ID, i, true, "bronze llama")
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		wantDone := i == hunt.QuestionsPerTeam-1
		if fr.Team.GameCompleted != wantDone {
			t.Fatalf("after question %d: gameCompleted = %v, want %v", i, fr.Team.GameCompleted, wantDone)
		}
	}

	final, err := e.Team(ctx, team.ID)
	if err != nil {
		t.Fatalf("reload team: %v", err)
	}
	if final.Score != 200+5*100 {
		t.Fatalf("score = %d, want 700", final.Score)
	}
	if final.GameCompletedAt == nil {
		t.Fatalf("completion timestamp missing")
	}
	completedAt := *final.GameCompletedAt

	// No sixth question, whatever the request claims.
	if _, err := e.StartQuestion(ctx, team.ID, 5); !errors.Is(err, hunt.ErrGameCompleted) {
		t.Fatalf("start after completion = %v, want game completed", err)
	}

	// A late scan only confirms completion and never moves the timestamp.
	clk.Advance(10 * time.Minute)
	res, err := e.Scan(ctx, "staff@example.com", hunt.EncodeTeamRef(final))
	if err != nil {
		t.Fatalf("late scan: %v", err)
	}
	if !res.Completed || res.Session != nil {
		t.Fatalf("late scan result = %+v", res)
	}
	reloaded, _ := e.Team(ctx, team.ID)
	if reloaded.GameCompletedAt == nil || !reloaded.GameCompletedAt.Equal(completedAt) {
		t.Fatalf("completion timestamp moved: %v -> %v", completedAt, reloaded.GameCompletedAt)
	}
}

func TestEngineExpiredWindowScoresZero(t *testing.T) {
	ctx := context.Background()
	e, store, _, clk := setupEngine(t)
	team := seedTeam(t, store, clk)

	if _, err := e.StartQuestion(ctx, team.ID, 0); err != nil {
		t.Fatalf("start: %v", err)
	}
	clk.Advance(3 * time.Minute)
	fr, err := e.SubmitAnswer(ctx, team.ID, 0, true, "bronze llama")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if fr.Team.Score != hunt.StartingScore {
		t.Fatalf("score = %d, want %d", fr.Team.Score, hunt.StartingScore)
	}
	if st := fr.Team.QuestionStatuses[0]; st.Status != hunt.OutcomeCorrect || st.PointsEarned != 0 {
		t.Fatalf("status[0] = %+v", st)
	}
}

func TestEngineProgressView(t *testing.T) {
	ctx := context.Background()
	e, store, _, clk := setupEngine(t)
	team := seedTeam(t, store, clk)

	if _, err := e.SkipQuestion(ctx, team.ID, 0); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if _, err := e.StartQuestion(ctx, team.ID, 1); err != nil {
		t.Fatalf("start: %v", err)
	}

	progress, err := e.Progress(ctx, team.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if len(progress) != hunt.QuestionsPerTeam {
		t.Fatalf("slots = %d, want %d", len(progress), hunt.QuestionsPerTeam)
	}
	if progress[0].Status != "skipped" || progress[0].PointsEarned != -50 {
		t.Fatalf("slot 0 = %+v", progress[0])
	}
	if progress[1].Status != "started" || !progress[1].IsCurrent {
		t.Fatalf("slot 1 = %+v", progress[1])
	}
	if progress[2].Status != "upcoming" {
		t.Fatalf("slot 2 = %+v", progress[2])
	}
}

func TestEngineLeaderboardOrder(t *testing.T) {
	ctx := context.Background()
	e, store, _, clk := setupEngine(t)
	seedTeam(t, store, clk)

	other := hunt.NewTeam("team-2", "Alpacas", "alpacas@example.com", nil, clk.Now())
	other.Score = 300
	if err := store.PutTeam(ctx, other); err != nil {
		t.Fatalf("put team: %v", err)
	}

	entries, err := e.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].TeamID != "team-2" || entries[1].TeamID != "team-1" {
		t.Fatalf("order = %s, %s", entries[0].TeamID, entries[1].TeamID)
	}
}

func TestEngineSweepRemovesStaleSessions(t *testing.T) {
	ctx := context.Background()
	e, store, scans, clk := setupEngine(t)
	team := seedTeam(t, store, clk)

	if _, err := e.Scan(ctx, "staff@example.com", hunt.EncodeTeamRef(team)); err != nil {
		t.Fatalf("scan: %v", err)
	}

	// Session for a team that no longer exists.
	ghost := hunt.NewTeam("ghost", "Ghost", "ghost@example.com", nil, clk.Now())
	if err := scans.Save(ctx, hunt.NewScanSession("staff@example.com", ghost, clk.Now())); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A fresh session tracks index 0; move the team past it behind the
	// session's back.
	if err := store.PatchTeam(ctx, team.ID, hunt.Patch{"currentQuestionIndex": 1}); err != nil {
		t.Fatalf("patch: %v", err)
	}

	removed, err := e.SweepScanSessions(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if scans.count() != 0 {
		t.Fatalf("sessions = %d, want 0", scans.count())
	}
}

func TestEngineScannedTeamsSkipsMissing(t *testing.T) {
	ctx := context.Background()
	e, store, scans, clk := setupEngine(t)
	team := seedTeam(t, store, clk)

	if err := scans.Save(ctx, hunt.NewScanSession("staff@example.com", team, clk.Now())); err != nil {
		t.Fatalf("save: %v", err)
	}
	ghost := hunt.NewTeam("ghost", "Ghost", "ghost@example.com", nil, clk.Now())
	if err := scans.Save(ctx, hunt.NewScanSession("staff@example.com", ghost, clk.Now())); err != nil {
		t.Fatalf("save: %v", err)
	}

	teams, err := e.ScannedTeams(ctx, "staff@example.com")
	if err != nil {
		t.Fatalf("scanned teams: %v", err)
	}
	if len(teams) != 1 || teams[0].ID != team.ID {
		t.Fatalf("teams = %+v", teams)
	}
}
