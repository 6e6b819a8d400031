package errors

import "fmt"

// SuggestionGenerator generates actionable suggestions based on error category.
type SuggestionGenerator interface {
	Generate(category ErrorCategory, affectedPath string) []string
}

// NewSuggestionGenerator creates a new SuggestionGenerator.
func NewSuggestionGenerator() SuggestionGenerator {
	return &suggestionGenerator{}
}

// suggestionGenerator is the concrete implementation of SuggestionGenerator.
type suggestionGenerator struct{}

// Generate returns actionable suggestions based on the error category and affected path.
func (g *suggestionGenerator) Generate(category ErrorCategory, affectedPath string) []string {
	switch category {
	case CategoryMount:
		return g.generateMountSuggestions(affectedPath)
	case CategoryDetection:
		return g.generateDetectionSuggestions()
	case CategoryPermission:
		return g.generatePermissionSuggestions(affectedPath)
	case CategoryDiskSpace:
		return g.generateDiskSpaceSuggestions()
	case CategoryPath:
		return g.generatePathSuggestions(affectedPath)
	case CategoryChecksum:
		return g.generateChecksumSuggestions()
	case CategoryCopy:
		return g.generateCopySuggestions()
	case CategoryUnknown:
		return g.generateUnknownSuggestions()
	default:
		return g.generateUnknownSuggestions()
	}
}

func (g *suggestionGenerator) generateMountSuggestions(path string) []string {
	suggestions := []string{
		"Check that the share address, share name, and credentials are correct",
		"Verify the filesystem on the drive is supported (exFAT may need exfat-fuse)",
		"Try unplugging and re-inserting the drive",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("Inspect the device with 'lsblk %s'", path))
	}

	return suggestions
}

func (g *suggestionGenerator) generateDetectionSuggestions() []string {
	return []string{
		"Check that lsblk is installed and on PATH",
		"The drive may still be powering up - wait a few seconds and rescan",
		"Check 'dmesg' for USB enumeration errors",
	}
}

func (g *suggestionGenerator) generatePermissionSuggestions(path string) []string {
	suggestions := []string{
		"The service needs permission to run mount/umount (check sudoers)",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("Check ownership and mode of %s", path))
	}

	return suggestions
}

func (g *suggestionGenerator) generateDiskSpaceSuggestions() []string {
	return []string{
		"Free up space on the destination share",
		"Check quota limits on the share",
	}
}

func (g *suggestionGenerator) generatePathSuggestions(path string) []string {
	suggestions := []string{
		"The file may have been removed from the drive - rescan the source",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("Verify the path exists: %s", path))
	}

	return suggestions
}

func (g *suggestionGenerator) generateChecksumSuggestions() []string {
	return []string{
		"Re-run the transfer for the affected file",
		"Check cabling and the destination share for corruption",
		"Run a destination speed test to rule out flaky network writes",
	}
}

func (g *suggestionGenerator) generateCopySuggestions() []string {
	return []string{
		"Check if there is sufficient disk space on the destination",
		"Verify the source drive and destination share are healthy",
		"Try the operation again - this may be a transient I/O error",
	}
}

func (g *suggestionGenerator) generateUnknownSuggestions() []string {
	return []string{
		"Check the service log for more details",
		"Try the operation again",
	}
}
