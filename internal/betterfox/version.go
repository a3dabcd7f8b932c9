// Package betterfox knows how the upstream Betterfox user.js encodes its
// version and how two such versions compare.
package betterfox

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// markerRegex matches the header comment, e.g. "// Betterfox v128.0" or
	// "// Betterfox user.js v128.0".
	markerRegex = regexp.MustCompile(`(?i)//\s*Betterfox(?:\s+user\.js)?\s+v?(\d+(?:\.\d+)*)`)

	// fallbackRegex matches loose "version: 1.2" / "version=1.2" markers.
	fallbackRegex = regexp.MustCompile(`(?i)version\s*[:=]\s*(\d+(?:\.\d+)*)`)

	versionRegex = regexp.MustCompile(`^v?(\d+(?:\.\d+)*)$`)
)

// ExtractVersion returns the version marker embedded in text, or "" when
// no marker is present.
func ExtractVersion(text string) string {
	if m := markerRegex.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := fallbackRegex.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// Version is a dotted sequence of non-negative integers.
type Version struct {
	Parts []int
}

// ParseVersion parses a dotted version string.
// Supports formats like "128", "128.0", "v128.3.1".
func ParseVersion(s string) (*Version, error) {
	matches := versionRegex.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return nil, fmt.Errorf("invalid version format: %q", s)
	}

	fields := strings.Split(matches[1], ".")
	parts := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid version component %q: %w", f, err)
		}
		parts[i] = n
	}

	return &Version{Parts: parts}, nil
}

// String returns the string representation
func (v *Version) String() string {
	strs := make([]string, len(v.Parts))
	for i, p := range v.Parts {
		strs[i] = strconv.Itoa(p)
	}
	return strings.Join(strs, ".")
}

// Major returns the first component.
func (v *Version) Major() int {
	if len(v.Parts) == 0 {
		return 0
	}
	return v.Parts[0]
}

// Compare compares two versions component by component.
// Missing trailing components count as zero, so "121" equals "121.0".
// Returns:
//   - 1 if v > other
//   - 0 if v == other
//   - -1 if v < other
func (v *Version) Compare(other *Version) int {
	n := len(v.Parts)
	if len(other.Parts) > n {
		n = len(other.Parts)
	}

	for i := 0; i < n; i++ {
		a, b := component(v.Parts, i), component(other.Parts, i)
		if a != b {
			if a > b {
				return 1
			}
			return -1
		}
	}

	return 0
}

func component(parts []int, i int) int {
	if i < len(parts) {
		return parts[i]
	}
	return 0
}

// IsGreaterThan returns true if v > other
func (v *Version) IsGreaterThan(other *Version) bool {
	return v.Compare(other) > 0
}

// IsEqual returns true if v == other
func (v *Version) IsEqual(other *Version) bool {
	return v.Compare(other) == 0
}

// CompareVersions compares two version strings
// Returns:
//   - 1 if v1 > v2
//   - 0 if v1 == v2
//   - -1 if v1 < v2
//   - error if either version is invalid
func CompareVersions(v1, v2 string) (int, error) {
	ver1, err := ParseVersion(v1)
	if err != nil {
		return 0, fmt.Errorf("invalid version v1: %w", err)
	}

	ver2, err := ParseVersion(v2)
	if err != nil {
		return 0, fmt.Errorf("invalid version v2: %w", err)
	}

	return ver1.Compare(ver2), nil
}

// NeedsUpdate decides whether the remote user.js should replace the local one.
// An absent remote version never triggers an update, an absent local version
// always does, and an unparseable pair errs on the side of updating.
func NeedsUpdate(local, remote string) bool {
	if remote == "" {
		return false
	}
	if local == "" {
		return true
	}

	cmp, err := CompareVersions(remote, local)
	if err != nil {
		return true
	}
	return cmp > 0
}
