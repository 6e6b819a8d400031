package engine

import (
	"github.com/joe/offloader/internal/history"
	"github.com/joe/offloader/pkg/fileops"
)

// Event is the interface implemented by all engine events. Name returns the
// wire name observers subscribe to.
type Event interface {
	isEvent()
	Name() string
}

// EventEmitter is the interface for delivering events to observers.
// Implementations must not block the caller.
type EventEmitter interface {
	Emit(event Event)
}

// Device lifecycle events

// DeviceConnected is emitted when a source volume is mounted and scanned.
type DeviceConnected struct {
	Device Device             `json:"device"`
	Files  []fileops.FileEntry `json:"files"`
}

func (DeviceConnected) isEvent()     {}
func (DeviceConnected) Name() string { return "device_connected" }

// DeviceDisconnected is emitted when the source volume is removed.
type DeviceDisconnected struct{}

func (DeviceDisconnected) isEvent()     {}
func (DeviceDisconnected) Name() string { return "device_disconnected" }

// DeviceError is emitted when a detected volume fails to mount.
type DeviceError struct {
	Device      string   `json:"device"`
	Error       string   `json:"error"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func (DeviceError) isEvent()     {}
func (DeviceError) Name() string { return "device_error" }

// FilesUpdated is emitted after a rescan of the source volume.
type FilesUpdated struct {
	Files []fileops.FileEntry `json:"files"`
}

func (FilesUpdated) isEvent()     {}
func (FilesUpdated) Name() string { return "files_updated" }

// Destination events

// DestinationConnected is emitted when the network share is mounted.
type DestinationConnected struct{}

func (DestinationConnected) isEvent()     {}
func (DestinationConnected) Name() string { return "destination_connected" }

// DestinationDisconnected is emitted when the network share is unmounted.
type DestinationDisconnected struct{}

func (DestinationDisconnected) isEvent()     {}
func (DestinationDisconnected) Name() string { return "destination_disconnected" }

// DestinationError is emitted when mounting the network share fails.
type DestinationError struct {
	Error       string   `json:"error"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func (DestinationError) isEvent()     {}
func (DestinationError) Name() string { return "destination_error" }

// Transfer events

// TransferStarted is emitted when a job begins.
type TransferStarted struct {
	TotalFiles     int    `json:"total_files"`
	TotalSize      int64  `json:"total_size"`
	TotalSizeHuman string `json:"total_size_human"`
}

func (TransferStarted) isEvent()     {}
func (TransferStarted) Name() string { return "transfer_started" }

// FileStarted is emitted when a file copy begins.
type FileStarted struct {
	Index     int    `json:"index"`
	FileName  string `json:"name"`
	SizeHuman string `json:"size_human"`
}

func (FileStarted) isEvent()     {}
func (FileStarted) Name() string { return "file_started" }

// FileProgress is emitted at most once per progress interval per file.
type FileProgress struct {
	Index          int     `json:"index"`
	FileName       string  `json:"name"`
	FilePercent    float64 `json:"file_percent"`
	OverallPercent float64 `json:"overall_percent"`
	CompletedFiles int     `json:"completed_files"`
	TotalFiles     int     `json:"total_files"`
	BytesDone      int64   `json:"bytes_done"`
	SpeedBPS       float64 `json:"speed_bps"`
	SpeedHuman     string  `json:"speed_human"`
	ETASeconds     float64 `json:"eta_seconds"`
	ETAHuman       string  `json:"eta_human"`
}

func (FileProgress) isEvent()     {}
func (FileProgress) Name() string { return "file_progress" }

// FileVerifying is emitted when checksum verification of a file begins.
type FileVerifying struct {
	Index    int    `json:"index"`
	FileName string `json:"name"`
}

func (FileVerifying) isEvent()     {}
func (FileVerifying) Name() string { return "file_verifying" }

// FileComplete is emitted when a file has been copied (and verified, if enabled).
type FileComplete struct {
	Index          int     `json:"index"`
	FileName       string  `json:"name"`
	OverallPercent float64 `json:"overall_percent"`
}

func (FileComplete) isEvent()     {}
func (FileComplete) Name() string { return "file_complete" }

// FileError is emitted when a file fails to copy or verify. The job continues.
type FileError struct {
	Index       int      `json:"index"`
	FileName    string   `json:"name"`
	Error       string   `json:"error"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func (FileError) isEvent()     {}
func (FileError) Name() string { return "file_error" }

// TransferCancelled is emitted when a job stops due to cancellation.
type TransferCancelled struct{}

func (TransferCancelled) isEvent()     {}
func (TransferCancelled) Name() string { return "transfer_cancelled" }

// TransferComplete is emitted when a job finishes, carrying the summary and
// the updated history list.
type TransferComplete struct {
	Summary FinishSummary    `json:"summary"`
	History []history.Record `json:"history"`
}

func (TransferComplete) isEvent()     {}
func (TransferComplete) Name() string { return "transfer_complete" }

// Speed test events

// SpeedTestProgress is emitted per chunk during a destination speed test.
type SpeedTestProgress struct {
	Percent float64 `json:"percent"`
}

func (SpeedTestProgress) isEvent()     {}
func (SpeedTestProgress) Name() string { return "speed_test_progress" }

// SpeedTestDone is emitted when a speed test completes.
type SpeedTestDone struct {
	BytesPerSec float64 `json:"bytes_per_sec"`
	MBps        float64 `json:"mbps"`
	Elapsed     float64 `json:"elapsed"`
	TestSize    int64   `json:"test_size"`
}

func (SpeedTestDone) isEvent()     {}
func (SpeedTestDone) Name() string { return "speed_test_done" }

// SpeedTestError is emitted when a speed test fails.
type SpeedTestError struct {
	Error string `json:"error"`
}

func (SpeedTestError) isEvent()     {}
func (SpeedTestError) Name() string { return "speed_test_error" }

// ConfigSaved is emitted after settings are persisted.
type ConfigSaved struct {
	Config            any  `json:"config"`
	ConfigHasPassword bool `json:"config_has_password"`
}

func (ConfigSaved) isEvent()     {}
func (ConfigSaved) Name() string { return "config_saved" }
