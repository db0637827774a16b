package server

import (
	"net/http"

	"github.com/hunthq/treasurehunt/internal/hunt"
)

// TeamResponse is the candidate-facing view of their own team. QRPayload
// is the serialized team reference the device renders as a QR code; the
// visual encoding happens client-side.
type TeamResponse struct {
	Team      hunt.Team `json:"team"`
	QRPayload string    `json:"qrPayload"`
}

func handleTeam(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFrom(r)

		team, err := engine.TeamForEmail(r.Context(), id.Email)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, TeamResponse{
			Team:      team,
			QRPayload: hunt.EncodeTeamRef(team),
		})
	}
}

// ProgressResponse carries the per-slot progress view plus roll-up counts.
type ProgressResponse struct {
	TeamID               string         `json:"teamId"`
	Score                int            `json:"score"`
	CurrentQuestionIndex int            `json:"currentQuestionIndex"`
	GameCompleted        bool           `json:"gameCompleted"`
	Progress             []SlotProgress `json:"progress"`
}

func handleTeamProgress(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFrom(r)

		team, err := engine.TeamForEmail(r.Context(), id.Email)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		progress, err := engine.Progress(r.Context(), team.ID)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, ProgressResponse{
			TeamID:               team.ID,
			Score:                team.Score,
			CurrentQuestionIndex: team.CurrentQuestionIndex,
			GameCompleted:        team.GameCompleted,
			Progress:             progress,
		})
	}
}

// CurrentQuestionResponse is the candidate's view of the active question:
// the prompt and location, never the answer, and only hints already paid
// for.
type CurrentQuestionResponse struct {
	QuestionIndex int      `json:"questionIndex"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Question      string   `json:"question"`
	Location      string   `json:"location"`
	Hints         []string `json:"hints"`
	HintsUsed     int      `json:"hintsUsed"`
	Started       bool     `json:"started"`
}

func handleCurrentQuestion(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFrom(r)

		team, err := engine.TeamForEmail(r.Context(), id.Email)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		if team.GameCompleted || team.CurrentQuestionIndex >= hunt.QuestionsPerTeam {
			writeEngineError(w, hunt.ErrGameCompleted)
			return
		}

		q, err := engine.Question(r.Context(), team.ID, team.CurrentQuestionIndex)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		used := team.HintsUsed[team.CurrentQuestionIndex]
		hints := make([]string, 0, used)
		for n := 1; n <= used; n++ {
			hints = append(hints, q.Hint(n))
		}

		writeJSON(w, http.StatusOK, CurrentQuestionResponse{
			QuestionIndex: team.CurrentQuestionIndex,
			Title:         q.Title,
			Description:   q.Description,
			Question:      q.Question,
			Location:      q.Location,
			Hints:         hints,
			HintsUsed:     used,
			Started:       team.QuestionStarted,
		})
	}
}
