package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// NewMux mounts the websocket endpoint and the small HTTP surface next to it.
func NewMux(ws *WSHandler, rooms app.RoomRegistry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"liveRooms": rooms.Len()})
	})
	mux.HandleFunc("/score/preview", scorePreview)
	mux.HandleFunc("/ws", ws.ServeWS)
	return mux
}

// scorePreview exposes the scoring policy so clients can show the points an
// answer would earn at a given elapsed time.
func scorePreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	elapsed, err := strconv.ParseFloat(q.Get("elapsed"), 64)
	if err != nil || elapsed < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "elapsed must be a non-negative number"})
		return
	}
	points, err := strconv.Atoi(q.Get("points"))
	if err != nil || points < 1 || points > 100 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "points must be between 1 and 100"})
		return
	}
	correct := true
	if raw := q.Get("correct"); raw != "" {
		if correct, err = strconv.ParseBool(raw); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "correct must be a boolean"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"points": domain.Score(elapsed, points, correct)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
