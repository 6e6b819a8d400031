// Package server is the observer gateway: a JSON status API plus a
// server-sent-events stream over the shared state.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/joe/offloader/internal/engine"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Server serves the status API and broadcasts engine events to SSE clients.
// It implements engine.EventEmitter.
type Server struct {
	port       int
	logger     *log.Logger
	snapshotFn func() State
	commands   Commands

	router *mux.Router
	server *http.Server

	clientsMu sync.Mutex
	clients   map[chan sseMessage]struct{}
}

// NewServer creates the gateway. snapshotFn must return a fully consistent
// State; it is called per status request and per SSE attach.
func NewServer(port int, logger *log.Logger, snapshotFn func() State, commands Commands) *Server {
	s := &Server{
		port:       port,
		logger:     logger,
		snapshotFn: snapshotFn,
		commands:   commands,
		clients:    map[chan sseMessage]struct{}{},
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleSSE).Methods(http.MethodGet)
	api.HandleFunc("/config", s.handleSaveConfig).Methods(http.MethodPost)
	api.HandleFunc("/destination/connect", s.handleConnectDestination).Methods(http.MethodPost)
	api.HandleFunc("/destination/disconnect", s.handleDisconnectDestination).Methods(http.MethodPost)
	api.HandleFunc("/rescan", s.handleRescan).Methods(http.MethodPost)
	api.HandleFunc("/transfer/start", s.handleStartTransfer).Methods(http.MethodPost)
	api.HandleFunc("/transfer/cancel", s.handleCancelTransfer).Methods(http.MethodPost)
	api.HandleFunc("/transfer/clear", s.handleClearFinished).Methods(http.MethodPost)
	api.HandleFunc("/speedtest", s.handleSpeedTest).Methods(http.MethodPost)
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.loggingMiddleware(s.router))
}

// Start runs the HTTP server until it fails or is shut down.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second, //nolint:mnd // Slowloris guard.
	}

	s.logger.Printf("listening on port %d", s.port)

	return s.server.ListenAndServe()
}

// StartBackground runs the server on a goroutine and shuts it down when the
// context is cancelled.
func (s *Server) StartBackground(ctx context.Context) {
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Printf("shutdown error: %v", err)
		}
	}()
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Printf("%s %s (took %v)", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)

			return
		}

		next.ServeHTTP(w, r)
	})
}

// Emit broadcasts an engine event to every connected SSE client. Slow
// clients are skipped rather than allowed to block the engine.
func (s *Server) Emit(event engine.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Printf("failed to encode %s event: %v", event.Name(), err)

		return
	}

	msg := sseMessage{event: event.Name(), data: data}

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	for client := range s.clients {
		select {
		case client <- msg:
		default:
			s.logger.Printf("sse client slow, dropping %s event", event.Name())
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data}); err != nil {
		s.logger.Printf("failed to write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
	})
	if err != nil {
		s.logger.Printf("failed to write error response: %v", err)
	}
}
