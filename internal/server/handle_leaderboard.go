package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"nhooyr.io/websocket"
)

// encodeLeaderboard matches the encoding the broker publishes on score
// changes, so clients see one wire format.
func encodeLeaderboard(entries []LeaderboardEntry) ([]byte, error) {
	return json.Marshal(entries)
}

type LeaderboardResponse struct {
	Teams []LeaderboardEntry `json:"teams"`
}

func handleLeaderboard(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := engine.Leaderboard(r.Context())
		if err != nil {
			writeEngineError(w, err)
			return
		}
		if entries == nil {
			entries = []LeaderboardEntry{}
		}
		writeJSON(w, http.StatusOK, LeaderboardResponse{Teams: entries})
	}
}

// handleLeaderboardLive pushes the full standings over a WebSocket every
// time a team's score changes. Scoreboard displays hold this open for the
// whole event.
func handleLeaderboardLive(engine *Engine, broker *Broker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()

		ch := broker.Subscribe(topicLeaderboard)
		defer broker.Unsubscribe(topicLeaderboard, ch)

		// Initial snapshot so the display is current before the first
		// score change.
		entries, err := engine.Leaderboard(ctx)
		if err != nil {
			logger.Error("leaderboard snapshot failed", "error", err)
			return
		}
		initial, err := encodeLeaderboard(entries)
		if err != nil {
			return
		}
		if err := conn.Write(ctx, websocket.MessageText, initial); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case data := <-ch:
				if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
					logger.Debug("leaderboard write failed", "error", err)
					return
				}
			}
		}
	}
}
