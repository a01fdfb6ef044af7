package config

import (
	"fmt"
	"strconv"
	"strings"
)

// parseVersion splits a "major.minor" version string.
func parseVersion(version string) (uint32, uint32, error) {
	parts := strings.Split(version, ".")
	if len(parts) != 2 {
		return 0, 0, &InvalidRgbLibVersionError{Reason: fmt.Sprintf(
			"version must be in format 'major.minor', got: %s", version)}
	}
	major, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, 0, &InvalidRgbLibVersionError{Reason: fmt.Sprintf(
			"invalid major version: %s", parts[0])}
	}
	minor, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, 0, &InvalidRgbLibVersionError{Reason: fmt.Sprintf(
			"invalid minor version: %s", parts[1])}
	}
	return uint32(major), uint32(minor), nil
}

// validateRgbLibVersion checks that version falls within [minVersion,
// maxVersion], comparing major.minor pairs.
func validateRgbLibVersion(version, minVersion, maxVersion string) error {
	major, minor, err := parseVersion(version)
	if err != nil {
		return err
	}
	minMajor, minMinor, err := parseVersion(minVersion)
	if err != nil {
		return err
	}
	maxMajor, maxMinor, err := parseVersion(maxVersion)
	if err != nil {
		return err
	}
	if major < minMajor || (major == minMajor && minor < minMinor) {
		return &InvalidRgbLibVersionError{Reason: fmt.Sprintf(
			"rgb-lib version %s is below minimum supported version %s", version, minVersion)}
	}
	if major > maxMajor || (major == maxMajor && minor > maxMinor) {
		return &InvalidRgbLibVersionError{Reason: fmt.Sprintf(
			"rgb-lib version %s is above maximum supported version %s", version, maxVersion)}
	}
	return nil
}
