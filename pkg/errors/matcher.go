package errors

import "strings"

// PatternMatcher matches error messages to categories using string patterns.
type PatternMatcher interface {
	Match(errorMsg string) ErrorCategory
}

// NewPatternMatcher creates a new PatternMatcher with predefined patterns.
func NewPatternMatcher() PatternMatcher {
	return &patternMatcher{
		patterns: map[ErrorCategory][]string{
			CategoryMount: {
				"mount error",
				"wrong fs type",
				"bad option",
				"bad superblock",
				"already mounted",
				"mount.cifs",
				"host is down",
				"connection refused",
				"no route to host",
			},
			CategoryDetection: {
				"lsblk",
				"executable file not found",
				"signal: killed",
				"context deadline exceeded",
			},
			CategoryPermission: {
				"permission denied",
				"access denied",
				"operation not permitted",
			},
			CategoryDiskSpace: {
				"no space left on device",
				"disk full",
				"quota exceeded",
			},
			CategoryPath: {
				"no such file or directory",
				"file not found",
				"path does not exist",
			},
			CategoryChecksum: {
				"checksum mismatch",
			},
			CategoryCopy: {
				"short write",
				"input/output error",
				"i/o error",
				"stale file handle",
			},
		},
	}
}

// patternMatcher is the concrete implementation of PatternMatcher.
type patternMatcher struct {
	patterns map[ErrorCategory][]string
}

// matchOrder fixes the category evaluation order: mount and detection failures
// often also contain generic path/permission phrases, so the more specific
// categories are tried first.
var matchOrder = []ErrorCategory{
	CategoryChecksum,
	CategoryMount,
	CategoryDetection,
	CategoryDiskSpace,
	CategoryPermission,
	CategoryCopy,
	CategoryPath,
}

// Match returns the error category based on pattern matching.
func (m *patternMatcher) Match(errorMsg string) ErrorCategory {
	lowerMsg := strings.ToLower(errorMsg)

	for _, category := range matchOrder {
		for _, pattern := range m.patterns[category] {
			if strings.Contains(lowerMsg, pattern) {
				return category
			}
		}
	}

	return CategoryUnknown
}
