// Package device manages the lifecycle of removable source volumes and the
// destination network share: detection, mounting, scanning, and the
// hot-plug poll loop.
package device

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/joe/offloader/internal/config"
	"github.com/joe/offloader/internal/engine"
	apperrors "github.com/joe/offloader/pkg/errors"
)

// Exported constants.
const (
	// PollInterval is how often the hot-plug loop checks for device changes.
	PollInterval = 2 * time.Second
	// SettleDelay is how long a newly seen device gets before mounting, so
	// the kernel can finish registering its partitions.
	SettleDelay = time.Second
	// MountRetries is how many mount attempts are made per device.
	MountRetries = 3
	// MountRetryDelay is the pause between mount attempts.
	MountRetryDelay = 1500 * time.Millisecond
	// DetectTimeout bounds a single detection pass.
	DetectTimeout = 5 * time.Second
)

// probeTimeout bounds the per-device size/fstype probe in the fallback path.
const probeTimeout = 3 * time.Second

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Manager owns source and destination mount state. All mount and unmount
// operations are serialized through one mutex, so a detach captured by the
// poll loop cannot interleave with a user-driven destination mount.
type Manager struct {
	Store        *engine.Store
	SourceMount  string
	DestMount    string
	SettingsFn   func() config.Settings
	TimeProvider engine.TimeProvider
	Enricher     apperrors.Enricher
	Logger       *log.Logger
	Interval     time.Duration

	emitter engine.EventEmitter

	mountMu sync.Mutex

	// failedPath remembers a device the mount retries gave up on, so the
	// poll loop does not re-announce the same failure every tick. Touched
	// only by the poll goroutine.
	failedPath string

	// Injection points for tests.
	runCommand commandRunner
	sleep      func(d time.Duration)
	listByID   func() []string
}

// NewManager creates a device manager over the given store and mount points.
func NewManager(
	store *engine.Store,
	sourceMount, destMount string,
	settingsFn func() config.Settings,
	logger *log.Logger,
) *Manager {
	return &Manager{
		Store:        store,
		SourceMount:  sourceMount,
		DestMount:    destMount,
		SettingsFn:   settingsFn,
		TimeProvider: &engine.RealTimeProvider{},
		Enricher:     apperrors.NewEnricher(),
		Logger:       logger,
		Interval:     PollInterval,
		runCommand:   runCommand,
		sleep:        time.Sleep,
		listByID:     listUSBByID,
	}
}

// SetEventEmitter sets the event emitter for observer communication.
// The emitter is optional - if nil, no events will be emitted.
func (m *Manager) SetEventEmitter(emitter engine.EventEmitter) {
	m.emitter = emitter
}

func (m *Manager) emit(event engine.Event) {
	if m.emitter != nil {
		m.emitter.Emit(event)
	}
}

// PollLoop watches for device attach and detach until the context is
// cancelled. A panic in one iteration is logged and the loop keeps running.
func (m *Manager) PollLoop(ctx context.Context) {
	ticker := m.TimeProvider.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			m.pollOnce(ctx)
		}
	}
}

func (m *Manager) pollOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.Logger.Printf("device poll recovered from panic: %v", r)
		}
	}()

	devices := m.DetectDevices(ctx)
	current := m.Store.Device()

	if current == nil {
		if len(devices) == 0 {
			m.failedPath = ""

			return
		}

		if devices[0].Path == m.failedPath {
			return
		}

		// Give the kernel a moment to finish partition setup, then
		// re-detect so we mount the settled view of the device.
		m.sleep(SettleDelay)

		devices = m.DetectDevices(ctx)
		if len(devices) == 0 {
			return
		}

		if err := m.MountSource(ctx, devices[0]); err != nil {
			m.failedPath = devices[0].Path
			m.Logger.Printf("failed to mount %s: %v", devices[0].Path, err)
		}

		return
	}

	for _, d := range devices {
		if d.Path == current.Path {
			return
		}
	}

	m.Logger.Printf("device %s detached", current.Path)
	m.UnmountSource(ctx)
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail != "" {
			return out, fmt.Errorf("%s failed: %w: %s", name, err, detail)
		}

		return out, fmt.Errorf("%s failed: %w", name, err)
	}

	return out, nil
}
