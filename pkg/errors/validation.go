package errors

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// regionNameRegex matches region names that can be written into a G-code tag.
var regionNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateRegionName validates a region name.
// Region names end up in "; vtp:<name>" output comments, so they must be
// single tokens:
//   - No empty names
//   - Maximum length of 64 characters
//   - Letters, digits, '.', '_' and '-' only, starting with a letter or digit
func ValidateRegionName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidRegion, "region name cannot be empty")
	}

	if len(name) > 64 {
		return New(ErrCodeInvalidRegion, "region name too long (max 64 characters)")
	}

	if !regionNameRegex.MatchString(name) {
		return New(ErrCodeInvalidRegion, "invalid region name: %q", name)
	}

	return nil
}

// ValidatePath validates a file path referenced from a project file.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 1024 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..) in relative paths
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 1024
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if !strings.HasPrefix(path, "/") {
		for _, part := range strings.Split(strings.ReplaceAll(path, "\\", "/"), "/") {
			if part == ".." {
				return New(ErrCodeInvalidPath, "relative path cannot contain path traversal sequences (..)")
			}
		}
	}

	return nil
}

// ValidatePositive reports a PHYSICAL_PARAMETER error unless v is a finite
// value greater than zero.
func ValidatePositive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return New(ErrCodePhysicalParameter, "%s must be positive and finite, got %v", name, v)
	}
	return nil
}
