package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  256,
	WriteBufferSize: 256,
	// Progress streams are public per-request channels keyed by an
	// unguessable correlation id; cross-origin dashboards subscribe to them.
	CheckOrigin: func(*http.Request) bool { return true },
}

// HandleProgress serves GET /api/progress/{id}: a websocket that relays
// percentage strings for one correlation id. The stream ends when the client
// goes away; the terminal 100 is re-announced by the worker, so there is no
// server-side close on completion.
func (h *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "progress channel id required"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("progress ws: upgrade for %s: %v", id, err)
		return
	}
	defer func() { _ = conn.Close() }()

	messages, cancel := h.hub.Subscribe(id)
	defer cancel()

	// Read pump: discard client frames, notice disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case payload, ok := <-messages:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
				return
			}
		}
	}
}
