// Package constants defines shared constants used across the svnhook codebase.
package constants

import "os"

// File permissions
const (
	DirMode  os.FileMode = 0755
	FileMode os.FileMode = 0644
)

// Environment variables
const EnvConfigDir = "SVNHOOK_CONFIG"

// Application paths
const (
	AppName          = "svnhook"
	XDGConfigSubdir  = ".config"
	SettingsFileName = "settings.toml"
)
