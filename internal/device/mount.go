package device

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joe/offloader/internal/engine"
	apperrors "github.com/joe/offloader/pkg/errors"
	"github.com/joe/offloader/pkg/fileops"
)

// ErrNoSourceMounted is returned when an operation needs a mounted source
// volume and none is present.
var ErrNoSourceMounted = errors.New("no source device mounted")

// MountSource mounts the given volume read-only, scans it, and publishes the
// result. The mount is retried to ride out devices that are still settling
// after hot plug. On final failure a device_error event is emitted and the
// enriched error returned.
func (m *Manager) MountSource(ctx context.Context, dev engine.Device) error {
	m.mountMu.Lock()
	defer m.mountMu.Unlock()

	if err := os.MkdirAll(m.SourceMount, fileops.DefaultDirPermissions); err != nil {
		return fmt.Errorf("failed to create mount point: %w", err)
	}

	// Clear any stale mount left by a previous device.
	_, _ = m.runCommand(ctx, "umount", "-l", m.SourceMount)

	var lastErr error

	for attempt := 1; attempt <= MountRetries; attempt++ {
		_, lastErr = m.runCommand(ctx, "mount", "-o", "ro", dev.Path, m.SourceMount)
		if lastErr == nil {
			break
		}

		m.Logger.Printf("mount attempt %d/%d for %s failed: %v",
			attempt, MountRetries, dev.Path, lastErr)

		if attempt < MountRetries {
			m.sleep(MountRetryDelay)
		}
	}

	if lastErr != nil {
		enriched := m.Enricher.Enrich(lastErr, dev.Path)
		m.emit(engine.DeviceError{
			Device:      dev.Path,
			Error:       enriched.Error(),
			Suggestions: suggestionsFor(enriched),
		})

		return enriched
	}

	dev.MountPoint = m.SourceMount

	files := fileops.ScanTree(m.SourceMount, m.SettingsFn().ExcludePatterns)
	m.Store.SetDevice(dev, files)
	m.Logger.Printf("mounted %s at %s: %d transferable files", dev.Path, m.SourceMount, len(files))
	m.emit(engine.DeviceConnected{Device: dev, Files: files})

	return nil
}

// UnmountSource lazily unmounts the source volume and clears its state.
// Safe to call when nothing is mounted.
func (m *Manager) UnmountSource(ctx context.Context) {
	m.mountMu.Lock()
	defer m.mountMu.Unlock()

	if _, err := m.runCommand(ctx, "umount", "-l", m.SourceMount); err != nil {
		m.Logger.Printf("source unmount: %v", err)
	}

	m.Store.ClearDevice()
	m.emit(engine.DeviceDisconnected{})
}

// RescanSource re-walks the mounted source volume and publishes the fresh
// file list.
func (m *Manager) RescanSource() error {
	if !m.Store.SourceReady() {
		return ErrNoSourceMounted
	}

	files := fileops.ScanTree(m.SourceMount, m.SettingsFn().ExcludePatterns)
	m.Store.SetFiles(files)
	m.emit(engine.FilesUpdated{Files: files})

	return nil
}

// MountDestination mounts the configured network share. On failure a
// destination_error event is emitted and the enriched error returned.
func (m *Manager) MountDestination(ctx context.Context) error {
	m.mountMu.Lock()
	defer m.mountMu.Unlock()

	settings := m.SettingsFn()

	if err := os.MkdirAll(m.DestMount, fileops.DefaultDirPermissions); err != nil {
		return fmt.Errorf("failed to create mount point: %w", err)
	}

	source := "//" + settings.EffectiveAddr() + "/" + settings.ShareName
	opts := cifsOptions(settings.ShareVersion, settings.ShareUsername, settings.SharePassword)

	if _, err := m.runCommand(ctx, "mount", "-t", "cifs", "-o", opts, source, m.DestMount); err != nil {
		enriched := m.Enricher.Enrich(err, source)
		m.emit(engine.DestinationError{
			Error:       enriched.Error(),
			Suggestions: suggestionsFor(enriched),
		})

		return enriched
	}

	m.Store.SetDestReady(true)
	m.Logger.Printf("mounted %s at %s", source, m.DestMount)
	m.emit(engine.DestinationConnected{})

	return nil
}

// UnmountDestination lazily unmounts the network share and clears its state.
func (m *Manager) UnmountDestination(ctx context.Context) {
	m.mountMu.Lock()
	defer m.mountMu.Unlock()

	if _, err := m.runCommand(ctx, "umount", "-l", m.DestMount); err != nil {
		m.Logger.Printf("destination unmount: %v", err)
	}

	m.Store.SetDestReady(false)
	m.emit(engine.DestinationDisconnected{})
}

// cifsOptions builds the mount option string for the share. Credentials fall
// back to a guest mount when no username is configured.
func cifsOptions(version, username, password string) string {
	opts := []string{}

	if version != "" {
		opts = append(opts, "vers="+version)
	}

	if username != "" {
		opts = append(opts, "username="+username, "password="+password)
	} else {
		opts = append(opts, "guest")
	}

	opts = append(opts, "uid=0", "gid=0", "file_mode=0775", "dir_mode=0775")

	return strings.Join(opts, ",")
}

func suggestionsFor(err error) []string {
	var actionable apperrors.ActionableError
	if errors.As(err, &actionable) {
		return actionable.Suggestions()
	}

	return nil
}
