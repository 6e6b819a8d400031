package server

import (
	"github.com/joe/offloader/internal/config"
	"github.com/joe/offloader/internal/engine"
	"github.com/joe/offloader/internal/history"
)

// APIResponse is the envelope for all JSON responses.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError carries a machine-readable code and a human-readable message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// State is the full observable state handed to a connecting or polling
// observer: the shared engine snapshot plus configuration and history.
type State struct {
	engine.Snapshot

	Config            config.Settings  `json:"config"`
	ConfigHasPassword bool             `json:"config_has_password"`
	History           []history.Record `json:"history"`
}

// StartTransferRequest is the body of POST /api/transfer/start.
type StartTransferRequest struct {
	Files []string `json:"files"`
}

// Commands are the mutating operations the gateway exposes. Each is a plain
// function so the wiring layer decides what they touch.
type Commands struct {
	SaveSettings          func(config.Settings) error
	ConnectDestination    func() error
	DisconnectDestination func()
	RescanSource          func() error
	StartTransfer         func(files []string) error
	CancelTransfer        func()
	ClearFinished         func()
	RunSpeedTest          func() error
}
