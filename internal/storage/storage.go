// Package storage holds the naming rules shared by the artifact persisters.
// Artifacts are keyed by (novel id, logical name); both parts become a single
// path segment in every backend.
package storage

import (
	"fmt"
	"path"
	"strings"
)

// ValidateSegment rejects values that cannot be used as a single path segment.
func ValidateSegment(kind, value string) error {
	switch {
	case strings.TrimSpace(value) == "":
		return fmt.Errorf("%s is required", kind)
	case value == "." || value == "..":
		return fmt.Errorf("%s %q is not a valid name", kind, value)
	case strings.ContainsAny(value, "/\\\x00"):
		return fmt.Errorf("%s %q must not contain path separators", kind, value)
	}
	return nil
}

// Key validates and joins a novel id and logical name.
func Key(novelID, name string) (string, error) {
	if err := ValidateSegment("novel id", novelID); err != nil {
		return "", err
	}
	if err := ValidateSegment("artifact name", name); err != nil {
		return "", err
	}
	return path.Join(novelID, name), nil
}
