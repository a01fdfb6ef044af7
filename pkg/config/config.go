// Package config loads and validates the bridge configuration.
//
// Configuration lives in <app_dir>/config.toml and is read once at startup;
// there is no runtime reloading. Validation combines struct tags with the
// semantic checks the bridge requires (cosigner count, threshold ranges, root
// key, rgb-lib version compatibility).
package config

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge/auth"
)

const (
	// ConfigName is the configuration file name inside the app directory.
	ConfigName = "config.toml"

	// MinCosigners is the minimum size of the cosigner set.
	MinCosigners = 2

	// LogsDirName and FilesDirName are created under the app directory.
	LogsDirName  = "logs"
	FilesDirName = "files"

	// DBName is the SQLite database file name inside the app directory.
	DBName = "rgb_multisig_bridge_db"
)

// rgb-lib version compatibility range for this bridge version.
const (
	MinRgbLibVersion = "0.3"
	MaxRgbLibVersion = "0.3"
)

// FileConfig mirrors the config.toml file.
type FileConfig struct {
	// CosignerXpubs is the full cosigner set. Capped at 255 so threshold
	// arithmetic fits in a byte.
	CosignerXpubs []string `mapstructure:"cosigner_xpubs" validate:"max=255,dive,required"`

	ThresholdColored uint8 `mapstructure:"threshold_colored"`
	ThresholdVanilla uint8 `mapstructure:"threshold_vanilla"`

	// RootPublicKey is the hex-encoded Ed25519 public key that all bearer
	// tokens must verify against.
	RootPublicKey string `mapstructure:"root_public_key"`

	// RgbLibVersion is the rgb-lib version the cosigner wallets run.
	RgbLibVersion string `mapstructure:"rgb_lib_version"`

	// MetricsListeningPort enables the Prometheus listener when non-zero.
	MetricsListeningPort uint16 `mapstructure:"metrics_listening_port"`
}

// Params is the fully validated runtime configuration.
type Params struct {
	AppDir               string
	DaemonListeningPort  uint16
	CosignerXpubs        []string
	ThresholdColored     uint8
	ThresholdVanilla     uint8
	RootPublicKey        ed25519.PublicKey
	RgbLibVersion        string
	MetricsListeningPort uint16
}

// Load reads <appDir>/config.toml and validates it together with the daemon
// listening port. The app directory is created if missing.
func Load(appDir string, daemonListeningPort uint16) (*Params, error) {
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		return nil, &IOError{Err: err}
	}

	cfgPath := filepath.Join(appDir, ConfigName)
	if _, err := os.Stat(cfgPath); err != nil {
		return nil, &MissingConfigFileError{Path: cfgPath}
	}

	v := viper.New()
	v.SetConfigFile(cfgPath)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, &ConfigError{Err: err}
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, &ConfigError{Err: err}
	}

	return validate(&fc, appDir, daemonListeningPort)
}

func validate(fc *FileConfig, appDir string, daemonListeningPort uint16) (*Params, error) {
	if err := CheckPortIsAvailable(daemonListeningPort); err != nil {
		return nil, err
	}

	numCosigners := len(fc.CosignerXpubs)
	if numCosigners < MinCosigners {
		return nil, &InvalidCosignerNumberError{Count: numCosigners}
	}
	if fc.ThresholdColored == 0 || fc.ThresholdVanilla == 0 {
		return nil, &InvalidThresholdError{Reason: "must be a positive value"}
	}
	if int(fc.ThresholdColored) > numCosigners || int(fc.ThresholdVanilla) > numCosigners {
		return nil, &InvalidThresholdError{Reason: "cannot be higher than number of cosigners"}
	}

	if err := validator.New().Struct(fc); err != nil {
		return nil, &ConfigError{Err: err}
	}

	rootKey, err := auth.ParseRootPublicKey(fc.RootPublicKey)
	if err != nil {
		return nil, ErrInvalidRootKey
	}

	if err := validateRgbLibVersion(fc.RgbLibVersion, MinRgbLibVersion, MaxRgbLibVersion); err != nil {
		return nil, err
	}

	if fc.MetricsListeningPort != 0 {
		if fc.MetricsListeningPort == daemonListeningPort {
			return nil, &ConfigError{Err: fmt.Errorf(
				"metrics_listening_port must differ from the daemon listening port")}
		}
		if err := CheckPortIsAvailable(fc.MetricsListeningPort); err != nil {
			return nil, err
		}
	}

	return &Params{
		AppDir:               appDir,
		DaemonListeningPort:  daemonListeningPort,
		CosignerXpubs:        fc.CosignerXpubs,
		ThresholdColored:     fc.ThresholdColored,
		ThresholdVanilla:     fc.ThresholdVanilla,
		RootPublicKey:        rootKey,
		RgbLibVersion:        fc.RgbLibVersion,
		MetricsListeningPort: fc.MetricsListeningPort,
	}, nil
}
