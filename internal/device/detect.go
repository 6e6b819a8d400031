package device

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joe/offloader/internal/engine"
)

// lsblkColumns is the column set requested from lsblk for detection.
const lsblkColumns = "NAME,SIZE,TYPE,MOUNTPOINT,TRAN,MODEL,FSTYPE"

type lsblkDevice struct {
	Name       string        `json:"name"`
	Size       string        `json:"size"`
	Type       string        `json:"type"`
	MountPoint string        `json:"mountpoint"`
	Tran       string        `json:"tran"`
	Model      string        `json:"model"`
	FSType     string        `json:"fstype"`
	Children   []lsblkDevice `json:"children"`
}

type lsblkOutput struct {
	BlockDevices []lsblkDevice `json:"blockdevices"`
}

// DetectDevices returns the removable volumes currently attached, in lsblk
// order. Detection failures are logged and reported as an empty list; the
// poll loop treats that the same as "nothing attached".
func (m *Manager) DetectDevices(ctx context.Context) []engine.Device {
	ctx, cancel := context.WithTimeout(ctx, DetectTimeout)
	defer cancel()

	out, err := m.runCommand(ctx, "lsblk", "-J", "-o", lsblkColumns)
	if err != nil {
		m.Logger.Printf("lsblk detection failed: %v", err)

		return m.detectByID(ctx)
	}

	devices, err := parseLsblk(out)
	if err != nil {
		m.Logger.Printf("failed to parse lsblk output: %v", err)

		return m.detectByID(ctx)
	}

	if len(devices) == 0 {
		return m.detectByID(ctx)
	}

	return devices
}

// parseLsblk extracts USB-attached volumes: the partitions of each USB disk,
// or the disk itself when it carries a filesystem directly.
func parseLsblk(out []byte) ([]engine.Device, error) {
	var parsed lsblkOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("unexpected lsblk output: %w", err)
	}

	var devices []engine.Device

	for _, disk := range parsed.BlockDevices {
		if disk.Tran != "usb" || disk.Type != "disk" {
			continue
		}

		found := false

		for _, child := range disk.Children {
			if child.Type != "part" {
				continue
			}

			found = true

			devices = append(devices, engine.Device{
				Path:       "/dev/" + child.Name,
				Size:       child.Size,
				Model:      strings.TrimSpace(disk.Model),
				FSType:     child.FSType,
				MountPoint: child.MountPoint,
			})
		}

		// Partitionless media (some SD card readers) expose the
		// filesystem on the whole disk.
		if !found && disk.FSType != "" {
			devices = append(devices, engine.Device{
				Path:       "/dev/" + disk.Name,
				Size:       disk.Size,
				Model:      strings.TrimSpace(disk.Model),
				FSType:     disk.FSType,
				MountPoint: disk.MountPoint,
			})
		}
	}

	return devices, nil
}

// detectByID is the fallback when lsblk is unavailable or reports nothing:
// walk /dev/disk/by-id/usb-* symlinks and probe each resolved node.
func (m *Manager) detectByID(ctx context.Context) []engine.Device {
	links := m.listByID()
	if len(links) == 0 {
		return nil
	}

	// When a disk exposes partitions, skip the whole-disk link and keep
	// only the -partN entries.
	hasPart := map[string]bool{}

	for _, link := range links {
		if idx := strings.LastIndex(link, "-part"); idx >= 0 {
			hasPart[link[:idx]] = true
		}
	}

	var devices []engine.Device

	for _, link := range links {
		if !strings.Contains(link, "-part") && hasPart[link] {
			continue
		}

		node, err := filepath.EvalSymlinks(link)
		if err != nil {
			m.Logger.Printf("failed to resolve %s: %v", link, err)

			continue
		}

		size, fstype := m.probeDevice(ctx, node)

		devices = append(devices, engine.Device{
			Path:   node,
			Size:   size,
			FSType: fstype,
		})
	}

	return devices
}

func (m *Manager) probeDevice(ctx context.Context, node string) (size, fstype string) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := m.runCommand(ctx, "lsblk", "-n", "-o", "SIZE,FSTYPE", node)
	if err != nil {
		return "", ""
	}

	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) > 0 {
		size = fields[0]
	}

	if len(fields) > 1 {
		fstype = fields[1]
	}

	return size, fstype
}

func listUSBByID() []string {
	links, err := filepath.Glob("/dev/disk/by-id/usb-*")
	if err != nil {
		return nil
	}

	return links
}
