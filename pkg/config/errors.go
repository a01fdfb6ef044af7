package config

import (
	"errors"
	"fmt"
)

// Startup errors. These abort the daemon before it starts serving; their
// messages are printed to stderr as-is.

// ErrCannotChangeCosigners is returned on restart when the configured xpub
// set differs from the one stored in the database.
var ErrCannotChangeCosigners = errors.New("Cannot change cosigners")

// ErrInvalidRootKey is returned when the configured root public key cannot be
// parsed as a 32-byte hex-encoded Ed25519 key.
var ErrInvalidRootKey = errors.New("The provided root public key is invalid")

// MissingConfigFileError is returned when config.toml does not exist.
type MissingConfigFileError struct {
	Path string
}

func (e *MissingConfigFileError) Error() string {
	return fmt.Sprintf("Configuration file is missing, expected in '%s'", e.Path)
}

// ConfigError wraps configuration parse/validation failures.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("Config error: %v", e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// InvalidCosignerNumberError is returned when fewer than MinCosigners xpubs
// are configured.
type InvalidCosignerNumberError struct {
	Count int
}

func (e *InvalidCosignerNumberError) Error() string {
	return fmt.Sprintf("Invalid cosigner number: %d", e.Count)
}

// InvalidThresholdError is returned for out-of-range thresholds, and on
// restart when a threshold differs from the stored one.
type InvalidThresholdError struct {
	Reason string
}

func (e *InvalidThresholdError) Error() string {
	return fmt.Sprintf("Invalid threshold: %s", e.Reason)
}

// InvalidRgbLibVersionError is returned when the configured rgb-lib version
// is malformed or outside the supported range.
type InvalidRgbLibVersionError struct {
	Reason string
}

func (e *InvalidRgbLibVersionError) Error() string {
	return fmt.Sprintf("Invalid rgb-lib version: %s", e.Reason)
}

// UnavailablePortError is returned when a configured port is already in use.
type UnavailablePortError struct {
	Port uint16
}

func (e *UnavailablePortError) Error() string {
	return fmt.Sprintf("Port %d is unavailable", e.Port)
}

// InconsistentStateError is returned when first-start database seeding finds
// rows that should not exist yet.
type InconsistentStateError struct {
	Reason string
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("Inconsistent state: %s", e.Reason)
}

// IOError wraps filesystem failures during startup.
type IOError struct {
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("IO error: %v", e.Err) }
func (e *IOError) Unwrap() error { return e.Err }
