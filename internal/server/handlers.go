package server

import (
	"encoding/json"
	"net/http"

	"github.com/joe/offloader/internal/config"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "offloader",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.snapshotFn())
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var settings config.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_body", err.Error())

		return
	}

	if err := s.commands.SaveSettings(settings); err != nil {
		s.writeError(w, http.StatusInternalServerError, "save_failed", err.Error())

		return
	}

	s.writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleConnectDestination(w http.ResponseWriter, _ *http.Request) {
	if err := s.commands.ConnectDestination(); err != nil {
		s.writeError(w, http.StatusBadGateway, "mount_failed", err.Error())

		return
	}

	s.writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleDisconnectDestination(w http.ResponseWriter, _ *http.Request) {
	s.commands.DisconnectDestination()
	s.writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleRescan(w http.ResponseWriter, _ *http.Request) {
	if err := s.commands.RescanSource(); err != nil {
		s.writeError(w, http.StatusConflict, "rescan_rejected", err.Error())

		return
	}

	s.writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleStartTransfer(w http.ResponseWriter, r *http.Request) {
	var req StartTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_body", err.Error())

		return
	}

	if err := s.commands.StartTransfer(req.Files); err != nil {
		s.writeError(w, http.StatusConflict, "transfer_rejected", err.Error())

		return
	}

	s.writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleCancelTransfer(w http.ResponseWriter, _ *http.Request) {
	s.commands.CancelTransfer()
	s.writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleClearFinished(w http.ResponseWriter, _ *http.Request) {
	s.commands.ClearFinished()
	s.writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleSpeedTest(w http.ResponseWriter, _ *http.Request) {
	if err := s.commands.RunSpeedTest(); err != nil {
		s.writeError(w, http.StatusConflict, "speed_test_rejected", err.Error())

		return
	}

	s.writeJSON(w, http.StatusOK, nil)
}
