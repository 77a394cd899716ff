package index

import (
	"strconv"
	"strings"
)

// Artifacts store a semver-style format version. On restore we compare with
// the current format version and reject old-major, unknown, or newer-major
// artifacts so the caller can rebuild from the entry store.

func parseSemver(s string) (major, minor, patch int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, 0, false
	}
	parts := strings.SplitN(s, ".", 3)
	if len(parts) < 3 {
		return 0, 0, 0, false
	}
	major, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || major < 0 {
		return 0, 0, 0, false
	}
	minor, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || minor < 0 {
		return 0, 0, 0, false
	}
	patch, err = strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil || patch < 0 {
		return 0, 0, 0, false
	}
	return major, minor, patch, true
}

// versionCompatible reports whether a stored artifact version can be loaded by
// code expecting the current version: the major components must match, and the
// stored version must be valid.
func versionCompatible(stored, current string) bool {
	sMajor, _, _, okS := parseSemver(stored)
	cMajor, _, _, okC := parseSemver(current)
	if !okS || !okC {
		return false
	}
	return sMajor == cMajor
}
