package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Staff grading surface: the staff member reads the team's spoken answer,
// judges it against the stored one, and finalizes the slot. Grading is
// keyed by the team in the URL so a staff device can only act on a team it
// has open.

type GradeAnswerRequest struct {
	QuestionIndex int    `json:"questionIndex"`
	IsCorrect     bool   `json:"isCorrect"`
	AnswerText    string `json:"answerText"`
}

func handleGradeAnswer(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID := chi.URLParam(r, "teamID")

		var req GradeAnswerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.AnswerText = strings.TrimSpace(req.AnswerText)

		res, err := engine.SubmitAnswer(r.Context(), teamID, req.QuestionIndex, req.IsCorrect, req.AnswerText)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, FinalizeResponse{
			Team:          res.Team,
			Status:        res.Finalized.Status,
			GameCompleted: res.Finalized.GameCompleted,
		})
	}
}

type GradeSkipRequest struct {
	QuestionIndex int `json:"questionIndex"`
}

func handleGradeSkip(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID := chi.URLParam(r, "teamID")

		var req GradeSkipRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := engine.SkipQuestion(r.Context(), teamID, req.QuestionIndex)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, FinalizeResponse{
			Team:          res.Team,
			Status:        res.Finalized.Status,
			GameCompleted: res.Finalized.GameCompleted,
		})
	}
}

// handleGradeHint lets staff unlock a hint on the team's behalf, same cost
// and cap as the candidate surface.
func handleGradeHint(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID := chi.URLParam(r, "teamID")

		var req HintRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := engine.GiveHint(r.Context(), teamID, req.QuestionIndex)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		q, err := engine.Question(r.Context(), teamID, req.QuestionIndex)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, HintResponse{
			HintNumber:     res.Grant.Number,
			Hint:           q.Hint(res.Grant.Number),
			PointsDeducted: res.Grant.Cost,
			Score:          res.Team.Score,
		})
	}
}
