// Package engine implements the transfer engine: the shared state model, the
// single-job chunked-copy state machine, speed estimation, milestone
// notifications, and the destination speed test.
package engine

import (
	"sync"
	"time"

	"github.com/joe/offloader/pkg/fileops"
)

// Device describes a detected source volume.
type Device struct {
	Path       string `json:"device"`
	Size       string `json:"size"`
	Model      string `json:"model"`
	FSType     string `json:"fstype"`
	MountPoint string `json:"mountpoint,omitempty"`
}

// FinishSummary captures the outcome of a completed job.
type FinishSummary struct {
	Title          string   `json:"title"`
	TotalFiles     int      `json:"total_files"`
	CompletedFiles int      `json:"completed_files"`
	TotalSizeHuman string   `json:"total_size_human"`
	Duration       string   `json:"duration"`
	AvgSpeed       string   `json:"avg_speed"`
	Destination    string   `json:"destination"`
	Errors         []string `json:"errors"`
}

// Transfer is the observable state of the current (or last finished) job.
type Transfer struct {
	Active             bool           `json:"active"`
	Finished           bool           `json:"finished"`
	StartedAt          time.Time      `json:"started_at"`
	Destination        string         `json:"destination"`
	TotalFiles         int            `json:"total_files"`
	CompletedFiles     int            `json:"completed_files"`
	CurrentFile        string         `json:"current_file"`
	CurrentFileIndex   int            `json:"current_file_index"`
	CurrentFilePercent float64        `json:"current_file_percent"`
	TotalBytes         int64          `json:"total_bytes"`
	BytesDone          int64          `json:"bytes_done"`
	OverallPercent     float64        `json:"overall_percent"`
	SpeedBPS           float64        `json:"speed_bps"`
	ETASeconds         float64        `json:"eta_seconds"`
	Errors             []string       `json:"errors"`
	FileNames          []string       `json:"file_names"`
	Summary            *FinishSummary `json:"summary,omitempty"`
}

func (t Transfer) clone() Transfer {
	c := t
	c.Errors = append([]string(nil), t.Errors...)
	c.FileNames = append([]string(nil), t.FileNames...)
	if t.Summary != nil {
		s := *t.Summary
		s.Errors = append([]string(nil), t.Summary.Errors...)
		c.Summary = &s
	}
	return c
}

// Snapshot is a point-in-time deep copy of the shared state. Mutating a
// snapshot never affects the store.
type Snapshot struct {
	Device      *Device             `json:"device"`
	SourceReady bool                `json:"source_ready"`
	DestReady   bool                `json:"dest_ready"`
	Files       []fileops.FileEntry `json:"files"`
	Transfer    Transfer            `json:"transfer"`
}

// Store holds the shared mutable state for the device manager, the transfer
// job, and the observer gateway. All access goes through its methods.
type Store struct {
	mu          sync.RWMutex
	device      *Device
	sourceReady bool
	destReady   bool
	files       []fileops.FileEntry
	transfer    Transfer
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		SourceReady: s.sourceReady,
		DestReady:   s.destReady,
		Files:       append([]fileops.FileEntry(nil), s.files...),
		Transfer:    s.transfer.clone(),
	}
	if s.device != nil {
		d := *s.device
		snap.Device = &d
	}

	return snap
}

// SetDevice records a mounted source volume and its scanned files.
func (s *Store) SetDevice(dev Device, files []fileops.FileEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := dev
	s.device = &d
	s.sourceReady = true
	s.files = append([]fileops.FileEntry(nil), files...)
}

// ClearDevice removes the source volume and its file list.
func (s *Store) ClearDevice() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.device = nil
	s.sourceReady = false
	s.files = nil
}

// Device returns the current source volume, or nil.
func (s *Store) Device() *Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.device == nil {
		return nil
	}

	d := *s.device

	return &d
}

// SourceReady reports whether a source volume is mounted.
func (s *Store) SourceReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sourceReady
}

// SetFiles replaces the scanned file list.
func (s *Store) SetFiles(files []fileops.FileEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files = append([]fileops.FileEntry(nil), files...)
}

// Files returns a copy of the scanned file list.
func (s *Store) Files() []fileops.FileEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]fileops.FileEntry(nil), s.files...)
}

// SetDestReady records whether the destination share is mounted.
func (s *Store) SetDestReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.destReady = ready
}

// DestReady reports whether the destination share is mounted.
func (s *Store) DestReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.destReady
}

// Transfer returns a deep copy of the current transfer state.
func (s *Store) Transfer() Transfer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.transfer.clone()
}

// updateTransfer mutates the transfer state under the write lock.
func (s *Store) updateTransfer(fn func(t *Transfer)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.transfer)
}

// ClearFinished resets the transfer state if no job is active.
func (s *Store) ClearFinished() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transfer.Active {
		return
	}

	s.transfer = Transfer{}
}
