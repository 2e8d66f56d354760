package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/uiforge/uiforge/internal/progress"
)

// handleStream serves a Server-Sent Events feed of progress events. An
// optional ?job= parameter narrows the feed to one job. Each event is one
// SSE message with a JSON body; a periodic ping keeps proxies from closing
// the connection.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering if present

	ch, cancel := s.hub.Subscribe(r.URL.Query().Get("job"))
	defer cancel()

	ping := time.NewTicker(25 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case e, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(streamPayload(e))
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Read-only local dashboard feed; no state changes ride on it.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWS serves the same progress feed over a WebSocket, for clients that
// want bidirectional framing or cannot hold an SSE connection.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch, cancel := s.hub.Subscribe(r.URL.Query().Get("job"))
	defer cancel()

	// Drain client frames so pings and close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, open := <-ch:
			if !open {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(streamPayload(e)); err != nil {
				return
			}
		}
	}
}

// streamPayload trims the full context snapshot off outbound events; stream
// consumers poll the job endpoint for state and only need the transition.
func streamPayload(e progress.Event) progress.Event {
	e.Snapshot = nil
	return e
}
