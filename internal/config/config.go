// Package config handles engine settings loading and parsing for svnhook.
//
// Settings cover the pieces of hook processing that are not part of a rule
// file: where svnlook lives, how long external commands may run, SMTP
// defaults, and audit log placement. Per-hook behavior stays in the XML rule
// files handled by internal/rules.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/svnhook/svnhook/internal/constants"
	"github.com/svnhook/svnhook/internal/logger"
)

//go:embed settings.toml
var defaultSettings []byte

// Settings holds the parsed engine settings.
type Settings struct {
	// Svnlook is the svnlook binary used by the repository inspector.
	Svnlook string `toml:"svnlook"`
	// CommandTimeoutSeconds bounds ExecuteCmd and svnlook invocations.
	CommandTimeoutSeconds int `toml:"command-timeout-seconds"`

	SMTP  SMTPSettings  `toml:"smtp"`
	Audit AuditSettings `toml:"audit"`
}

// SMTPSettings holds defaults for SendSmtp actions.
type SMTPSettings struct {
	// Server is used when a SendSmtp tag omits its server attribute.
	Server string `toml:"server"`
	// TimeoutSeconds is the default connect timeout.
	TimeoutSeconds int `toml:"timeout-seconds"`
}

// AuditSettings controls the per-invocation audit log.
type AuditSettings struct {
	Path    string `toml:"path"`
	Disable bool   `toml:"disable"`
	// MaxSizeBytes triggers gzip rotation when the log grows past it.
	MaxSizeBytes int64 `toml:"max-size-bytes"`
}

// CommandTimeout returns the external command timeout as a duration.
func (s *Settings) CommandTimeout() time.Duration {
	return time.Duration(s.CommandTimeoutSeconds) * time.Second
}

// Timeout returns the SMTP connect timeout as a duration.
func (s *SMTPSettings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

var (
	globalSettings *Settings
	initialized    bool
	settingsPath   string
	initErr        error
)

// GetConfigDir returns the config directory path.
// Uses SVNHOOK_CONFIG env var if set, otherwise ~/.config/svnhook
func GetConfigDir() (string, error) {
	if dir := os.Getenv(constants.EnvConfigDir); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, constants.XDGConfigSubdir, constants.AppName), nil
}

// EnsureConfigFiles creates the config directory and writes the default
// settings file if it doesn't exist.
func EnsureConfigFiles(configDir string) error {
	if err := os.MkdirAll(configDir, constants.DirMode); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(configDir, constants.SettingsFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, defaultSettings, constants.FileMode); err != nil {
			return fmt.Errorf("failed to write %s: %w", constants.SettingsFileName, err)
		}
	}

	return nil
}

// Load parses settings from TOML data.
func Load(data []byte) (*Settings, error) {
	s := loadEmbeddedDefaults()
	if err := toml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if s.CommandTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("command-timeout-seconds must be positive, got %d", s.CommandTimeoutSeconds)
	}
	if s.SMTP.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("smtp timeout-seconds must be positive, got %d", s.SMTP.TimeoutSeconds)
	}
	return s, nil
}

// loadEmbeddedDefaults returns the settings baked into the binary.
func loadEmbeddedDefaults() *Settings {
	var s Settings
	// The embedded file is compiled in and known-good.
	toml.Unmarshal(defaultSettings, &s)
	return &s
}

// Init loads settings from files, creating defaults if necessary.
// If loading fails, it falls back to embedded defaults.
func Init() error {
	if initialized {
		return initErr
	}
	initialized = true

	configDir, err := GetConfigDir()
	if err != nil {
		logger.Debug("failed to get config dir, using embedded defaults", "error", err)
		globalSettings = loadEmbeddedDefaults()
		initErr = err
		return err
	}

	if err := EnsureConfigFiles(configDir); err != nil {
		logger.Debug("failed to ensure config files, using embedded defaults", "error", err)
		globalSettings = loadEmbeddedDefaults()
		initErr = err
		return err
	}

	path := filepath.Join(configDir, constants.SettingsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Debug("failed to read settings file, using embedded defaults", "path", path, "error", err)
		globalSettings = loadEmbeddedDefaults()
		initErr = fmt.Errorf("failed to read %s: %w", constants.SettingsFileName, err)
		return initErr
	}

	globalSettings, err = Load(data)
	if err != nil {
		logger.Debug("failed to parse settings, using embedded defaults", "error", err)
		globalSettings = loadEmbeddedDefaults()
		initErr = fmt.Errorf("failed to load settings: %w", err)
		return initErr
	}

	settingsPath = path
	logger.Debug("settings loaded", "path", path, "svnlook", globalSettings.Svnlook)
	return nil
}

// Get returns the current settings.
// If Init has not been called, it initializes with defaults.
func Get() *Settings {
	if !initialized {
		Init()
	}
	return globalSettings
}

// GetSettingsPath returns the path the settings were loaded from, or "" when
// embedded defaults are in effect.
func GetSettingsPath() string {
	return settingsPath
}

// InitError returns the error recorded by Init, if any.
func InitError() error {
	return initErr
}

// Reset resets the settings state. Used for testing.
func Reset() {
	initialized = false
	globalSettings = nil
	settingsPath = ""
	initErr = nil
}

// GetDefaultSettings returns the embedded default settings file.
func GetDefaultSettings() []byte {
	return defaultSettings
}
