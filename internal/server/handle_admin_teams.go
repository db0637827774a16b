package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hunthq/treasurehunt/internal/hunt"
)

// Registration surface: organizers create teams and upload their question
// sequences before the event.

type CreateTeamRequest struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	MemberEmails []string `json:"memberEmails"`
}

func handleAdminCreateTeam(teams TeamStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateTeamRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Name == "" || req.Email == "" {
			writeError(w, http.StatusBadRequest, "name and email are required")
			return
		}
		members := make([]string, 0, len(req.MemberEmails))
		for _, m := range req.MemberEmails {
			m = strings.TrimSpace(strings.ToLower(m))
			if m != "" {
				members = append(members, m)
			}
		}

		team := hunt.NewTeam(uuid.NewString(), req.Name, req.Email, members, time.Now())
		if err := teams.PutTeam(r.Context(), team); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, team)
	}
}

func handleAdminListTeams(teams TeamStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := teams.ListTeams(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if all == nil {
			all = []hunt.Team{}
		}
		writeJSON(w, http.StatusOK, map[string][]hunt.Team{"teams": all})
	}
}

func handleAdminGetTeam(teams TeamStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team, err := teams.Team(r.Context(), chi.URLParam(r, "teamID"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	}
}

type PutQuestionsRequest struct {
	Questions []hunt.Question `json:"questions"`
}

func handleAdminPutQuestions(teams TeamStore, questions QuestionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID := chi.URLParam(r, "teamID")

		if _, err := teams.Team(r.Context(), teamID); err != nil {
			writeEngineError(w, err)
			return
		}

		var req PutQuestionsRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.Questions) != hunt.QuestionsPerTeam {
			writeError(w, http.StatusBadRequest, "exactly 5 questions are required")
			return
		}

		if err := questions.PutQuestions(r.Context(), teamID, req.Questions); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type CreateAdminRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func handleAdminCreateAdmin(admin AdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAdminRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || len(req.Password) < 8 {
			writeError(w, http.StatusBadRequest, "email and a password of at least 8 characters are required")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		id, err := admin.CreateAdmin(r.Context(), req.Email, string(hash))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, AdminMeResponse{ID: id, Email: req.Email})
	}
}
