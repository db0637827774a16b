package server

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/swaggest/swgui/v5emb"
)

// Deps bundles everything the route tree needs.
type Deps struct {
	Engine         *Engine
	Broker         *Broker
	Teams          TeamStore
	Questions      QuestionStore
	Admin          AdminStore
	DB             *sql.DB
	Redis          *redis.Client
	IdentitySecret []byte
}

func addRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("TreasureHunt API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, d.DB, d.Redis))

	// Public scoreboard.
	r.Get("/api/leaderboard", handleLeaderboard(d.Engine))
	r.Get("/api/leaderboard/live", handleLeaderboardLive(d.Engine, d.Broker, logger))

	// Real-time team updates — credentials in query, see handler.
	r.Get("/api/game/events", handleEvents(d.Engine, d.Broker, d.Admin, d.IdentitySecret))

	// Candidate routes — identity token required.
	r.Group(func(r chi.Router) {
		r.Use(identityMiddleware(d.IdentitySecret))
		r.Get("/api/team", handleTeam(d.Engine))
		r.Get("/api/team/progress", handleTeamProgress(d.Engine))
		r.Get("/api/game/question", handleCurrentQuestion(d.Engine))
		r.Post("/api/game/start", handleStartQuestion(d.Engine))
		r.Post("/api/game/hint", handleHint(d.Engine))
		r.Post("/api/game/skip", handleSkip(d.Engine))
	})

	// Staff auth.
	r.Post("/api/admin/login", handleAdminLogin(d.Admin))
	r.Post("/api/admin/logout", handleAdminLogout(d.Admin))

	// Staff routes — cookie session required.
	r.Group(func(r chi.Router) {
		r.Use(adminAuthMiddleware(d.Admin))
		r.Get("/api/admin/me", handleAdminMe())

		r.Post("/api/admin/scan", handleScan(d.Engine))
		r.Get("/api/admin/scanned", handleScannedTeams(d.Engine))
		r.Delete("/api/admin/scan/{teamID}", handleReleaseScan(d.Engine))

		r.Post("/api/admin/teams/{teamID}/answer", handleGradeAnswer(d.Engine))
		r.Post("/api/admin/teams/{teamID}/skip", handleGradeSkip(d.Engine))
		r.Post("/api/admin/teams/{teamID}/hint", handleGradeHint(d.Engine))

		r.Get("/api/admin/teams", handleAdminListTeams(d.Teams))
		r.Post("/api/admin/teams", handleAdminCreateTeam(d.Teams))
		r.Get("/api/admin/teams/{teamID}", handleAdminGetTeam(d.Teams))
		r.Put("/api/admin/teams/{teamID}/questions", handleAdminPutQuestions(d.Teams, d.Questions))

		r.Post("/api/admin/admins", handleAdminCreateAdmin(d.Admin))
	})
}
