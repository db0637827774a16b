package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hunthq/treasurehunt/internal/hunt"
)

type ScanRequest struct {
	// Payload is the raw decoded QR text.
	Payload string `json:"payload"`
}

type ScanResponse struct {
	Team      hunt.Team `json:"team"`
	Completed bool      `json:"completed"`
}

// handleScan checks a team in for the scanning staff member. Rescanning
// the same team replaces the session instead of duplicating it.
func handleScan(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin := adminFrom(r)

		var req ScanRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := engine.Scan(r.Context(), admin.Email, req.Payload)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, ScanResponse{
			Team:      res.Team,
			Completed: res.Completed,
		})
	}
}

type ScannedTeamsResponse struct {
	Teams []hunt.Team `json:"teams"`
}

// handleScannedTeams lists the teams this staff member currently has
// checked in.
func handleScannedTeams(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin := adminFrom(r)

		teams, err := engine.ScannedTeams(r.Context(), admin.Email)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		if teams == nil {
			teams = []hunt.Team{}
		}

		writeJSON(w, http.StatusOK, ScannedTeamsResponse{Teams: teams})
	}
}

// handleReleaseScan manually releases a checked-in team without grading.
func handleReleaseScan(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin := adminFrom(r)
		teamID := chi.URLParam(r, "teamID")

		if err := engine.ReleaseScan(r.Context(), admin.Email, teamID); err != nil {
			writeEngineError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
