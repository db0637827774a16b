package server

import (
	"fmt"
	"net/http"
	"time"
)

// handleEvents streams team snapshots over SSE. Candidates pass their
// identity token as a query parameter (EventSource cannot set headers) and
// watch their own team; staff authenticate with the session cookie and
// name the team they have open. Closing the stream unsubscribes; nothing
// in flight is cancelled.
func handleEvents(engine *Engine, broker *Broker, admin AdminStore, secret []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID, ok := eventsTeamID(r, engine, admin, secret)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid or missing credentials")
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		ch := broker.Subscribe(teamTopic(teamID))
		defer broker.Unsubscribe(teamTopic(teamID), ch)

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case data := <-ch:
				fmt.Fprintf(w, "event: update\ndata: %s\n\n", data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}

func eventsTeamID(r *http.Request, engine *Engine, admin AdminStore, secret []byte) (string, bool) {
	if token := r.URL.Query().Get("token"); token != "" {
		id, err := identityFromToken(token, secret)
		if err != nil {
			return "", false
		}
		team, err := engine.TeamForEmail(r.Context(), id.Email)
		if err != nil {
			return "", false
		}
		return team.ID, true
	}

	// Staff: cookie session plus an explicit team parameter.
	teamID := r.URL.Query().Get("team")
	if teamID == "" {
		return "", false
	}
	cookie, err := r.Cookie(adminCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	if _, err := admin.AdminFromSession(r.Context(), cookie.Value); err != nil {
		return "", false
	}
	return teamID, true
}
