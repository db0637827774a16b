package server

import (
	"net/http"

	"github.com/hunthq/treasurehunt/internal/hunt"
)

type StartQuestionRequest struct {
	QuestionIndex int `json:"questionIndex"`
}

type StartQuestionResponse struct {
	Team hunt.Team `json:"team"`
}

// handleStartQuestion opens the answer window for the candidate's current
// question. The UI gates this behind an active scan; the engine only
// enforces the index match.
func handleStartQuestion(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFrom(r)

		var req StartQuestionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		team, err := engine.TeamForEmail(r.Context(), id.Email)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		team, err = engine.StartQuestion(r.Context(), team.ID, req.QuestionIndex)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, StartQuestionResponse{Team: team})
	}
}

type HintRequest struct {
	QuestionIndex int `json:"questionIndex"`
}

type HintResponse struct {
	HintNumber     int    `json:"hintNumber"`
	Hint           string `json:"hint"`
	PointsDeducted int    `json:"pointsDeducted"`
	Score          int    `json:"score"`
}

// handleHint charges the candidate's team for its next hint and reveals
// the unlocked text.
func handleHint(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFrom(r)

		var req HintRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		team, err := engine.TeamForEmail(r.Context(), id.Email)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		res, err := engine.GiveHint(r.Context(), team.ID, req.QuestionIndex)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		q, err := engine.Question(r.Context(), team.ID, req.QuestionIndex)
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

type SkipRequest struct {
	QuestionIndex int `json:"questionIndex"`
}

type FinalizeResponse struct {
	Team          hunt.Team           `json:"team"`
	Status        hunt.QuestionStatus `json:"status"`
	GameCompleted bool                `json:"gameCompleted"`
}

// handleSkip lets the candidate's team forfeit the current question at a
// flat penalty.
func handleSkip(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFrom(r)

		var req SkipRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		team, err := engine.TeamForEmail(r.Context(), id.Email)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		res, err := engine.SkipQuestion(r.Context(), team.ID, req.QuestionIndex)
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
