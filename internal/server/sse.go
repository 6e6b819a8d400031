package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// clientBuffer is the per-client event buffer. A client further behind than
// this starts losing events.
const clientBuffer = 100

type sseMessage struct {
	event string
	data  []byte
}

// handleSSE streams engine events to one observer. The client is registered
// before the snapshot is taken, so every event after the snapshot's point in
// time reaches the client: an event landing in the gap is delivered after a
// snapshot that already reflects it, which is harmless.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "sse_not_supported", "streaming not supported")

		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	client := make(chan sseMessage, clientBuffer)
	s.addClient(client)
	defer s.removeClient(client)

	snapshot, err := json.Marshal(s.snapshotFn())
	if err != nil {
		s.logger.Printf("failed to encode snapshot: %v", err)

		return
	}

	s.sendEvent(w, "status", snapshot)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, open := <-client:
			if !open {
				return
			}

			s.sendEvent(w, msg.event, msg.data)
			flusher.Flush()
		}
	}
}

func (s *Server) sendEvent(w http.ResponseWriter, event string, data []byte) {
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Server) addClient(client chan sseMessage) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	s.clients[client] = struct{}{}
	s.logger.Printf("sse client connected (total: %d)", len(s.clients))
}

func (s *Server) removeClient(client chan sseMessage) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	delete(s.clients, client)
	close(client)
	s.logger.Printf("sse client disconnected (total: %d)", len(s.clients))
}
