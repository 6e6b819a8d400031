package fileops

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/kr/fs"

	"github.com/joe/offloader/pkg/formatters"
)

// MinFileSize is the scan floor (1 MiB); smaller files are thumbnails and
// sidecar metadata, not footage.
const MinFileSize = 1024 * 1024

// metadataDirs are OS and filesystem metadata entries excluded from scans.
var metadataDirs = map[string]struct{}{
	".Spotlight-V100":           {},
	".fseventsd":                {},
	".Trashes":                  {},
	".TemporaryItems":           {},
	".DS_Store":                 {},
	"._.Trashes":                {},
	".journal":                  {},
	".VolumeIcon.icns":          {},
	"System Volume Information": {},
	"$RECYCLE.BIN":              {},
	"RECYCLER":                  {},
}

// FileEntry is one transferable item on the source volume. Immutable once
// scanned; a rescan replaces the whole list.
type FileEntry struct {
	Name      string `json:"name"` // relative to the volume root
	Size      int64  `json:"size"`
	SizeHuman string `json:"size_human"`
}

// ScanTree walks the mounted tree and returns transferable entries sorted by
// name. Hidden entries (any path segment starting with "."), known OS metadata
// directories, files below MinFileSize, and paths matching any of the
// doublestar exclude patterns are skipped. Unreadable entries are skipped, not
// fatal.
func ScanTree(root string, excludePatterns []string) []FileEntry {
	entries := make([]FileEntry, 0)

	walker := fs.Walk(root)
	for walker.Step() {
		if walker.Err() != nil {
			continue // unreadable entry, keep walking
		}

		relPath, err := filepath.Rel(root, walker.Path())
		if err != nil || relPath == "." {
			continue
		}

		info := walker.Stat()

		if excludedSegment(relPath) {
			if info.IsDir() {
				walker.SkipDir()
			}

			continue
		}

		if info.IsDir() {
			continue
		}

		if info.Size() < MinFileSize {
			continue
		}

		if matchesAnyPattern(relPath, excludePatterns) {
			continue
		}

		entries = append(entries, FileEntry{
			Name:      filepath.ToSlash(relPath),
			Size:      info.Size(),
			SizeHuman: formatters.FormatBytes(info.Size()),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	return entries
}

// excludedSegment reports whether any segment of the relative path is hidden
// or a known metadata directory.
func excludedSegment(relPath string) bool {
	for _, segment := range strings.Split(filepath.ToSlash(relPath), "/") {
		if strings.HasPrefix(segment, ".") {
			return true
		}

		if _, ok := metadataDirs[segment]; ok {
			return true
		}
	}

	return false
}

// matchesAnyPattern reports whether the path matches any doublestar pattern.
// Invalid patterns never match.
func matchesAnyPattern(relPath string, patterns []string) bool {
	normalized := strings.ToLower(filepath.ToSlash(relPath))

	for _, pattern := range patterns {
		matched, err := doublestar.Match(strings.ToLower(pattern), normalized)
		if err == nil && matched {
			return true
		}
	}

	return false
}
