package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "TreasureHunt API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the event-day treasure hunt quiz.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("application/json"))
	_ = r.AddOperation(getHealthz)

	// GET /api/team
	getTeam, _ := r.NewOperationContext(http.MethodGet, "/api/team")
	getTeam.SetSummary("Get own team")
	getTeam.SetDescription("Returns the authenticated candidate's team record and QR payload. Requires Bearer identity token.")
	getTeam.AddRespStructure(TeamResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	getTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getTeam)

	// GET /api/team/progress
	getProgress, _ := r.NewOperationContext(http.MethodGet, "/api/team/progress")
	getProgress.SetSummary("Get team progress")
	getProgress.SetDescription("Per-question outcomes and score for the candidate's team.")
	getProgress.AddRespStructure(ProgressResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getProgress.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getProgress)

	// GET /api/game/question
	getQuestion, _ := r.NewOperationContext(http.MethodGet, "/api/game/question")
	getQuestion.SetSummary("Get current question")
	getQuestion.SetDescription("The active question with any hints already unlocked. Never includes the answer.")
	getQuestion.AddRespStructure(CurrentQuestionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getQuestion.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(getQuestion)

	// POST /api/game/start
	postStart, _ := r.NewOperationContext(http.MethodPost, "/api/game/start")
	postStart.SetSummary("Start question")
	postStart.SetDescription("Opens the timed answer window for the team's current question.")
	postStart.AddReqStructure(StartQuestionRequest{})
	postStart.AddRespStructure(StartQuestionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postStart)

	// POST /api/game/hint
	postHint, _ := r.NewOperationContext(http.MethodPost, "/api/game/hint")
	postHint.SetSummary("Request hint")
	postHint.SetDescription("Unlocks the next hint for the current question. First hint costs 25 points, second 50; two per question.")
	postHint.AddReqStructure(HintRequest{})
	postHint.AddRespStructure(HintResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postHint.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postHint)

	// POST /api/game/skip
	postSkip, _ := r.NewOperationContext(http.MethodPost, "/api/game/skip")
	postSkip.SetSummary("Skip question")
	postSkip.SetDescription("Forfeits the current question for a flat 50 point penalty.")
	postSkip.AddReqStructure(SkipRequest{})
	postSkip.AddRespStructure(FinalizeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postSkip.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postSkip)

	// GET /api/game/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/game/events")
	getEvents.SetSummary("SSE team updates")
	getEvents.SetDescription("Server-Sent Events stream of full team snapshots. Candidates pass their identity token as a query parameter; staff pass a team id alongside their session cookie.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/leaderboard
	getBoard, _ := r.NewOperationContext(http.MethodGet, "/api/leaderboard")
	getBoard.SetSummary("Leaderboard")
	getBoard.SetDescription("All teams ordered by score, highest first.")
	getBoard.AddRespStructure(LeaderboardResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getBoard)

	// POST /api/admin/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/admin/login")
	postLogin.SetSummary("Staff login")
	postLogin.AddReqStructure(AdminLoginRequest{})
	postLogin.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/admin/scan
	postScan, _ := r.NewOperationContext(http.MethodPost, "/api/admin/scan")
	postScan.SetSummary("Scan team code")
	postScan.SetDescription("Checks a team in for this staff member from a scanned QR payload. Idempotent per admin and team.")
	postScan.AddReqStructure(ScanRequest{})
	postScan.AddRespStructure(ScanResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postScan.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postScan.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postScan)

	// GET /api/admin/scanned
	getScanned, _ := r.NewOperationContext(http.MethodGet, "/api/admin/scanned")
	getScanned.SetSummary("List checked-in teams")
	getScanned.AddRespStructure(ScannedTeamsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getScanned)

	// POST /api/admin/teams/{teamID}/answer
	postAnswer, _ := r.NewOperationContext(http.MethodPost, "/api/admin/teams/{teamID}/answer")
	postAnswer.SetSummary("Grade answer")
	postAnswer.SetDescription("Finalizes the team's current question as correct or incorrect with time-decayed scoring, advances the team, and clears its scan sessions.")
	postAnswer.AddReqStructure(GradeAnswerRequest{})
	postAnswer.AddRespStructure(FinalizeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postAnswer)

	// POST /api/admin/teams/{teamID}/skip
	postAdminSkip, _ := r.NewOperationContext(http.MethodPost, "/api/admin/teams/{teamID}/skip")
	postAdminSkip.SetSummary("Skip question for team")
	postAdminSkip.AddReqStructure(GradeSkipRequest{})
	postAdminSkip.AddRespStructure(FinalizeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postAdminSkip.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postAdminSkip)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.Encode(spec)
	}
}
