// Package testutil provides shared test utilities for svnhook tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/svnhook/svnhook/internal/config"
	"github.com/svnhook/svnhook/internal/constants"
)

// SetupTestSettings creates a temporary config directory with test engine
// settings. Returns a cleanup function that should be deferred.
func SetupTestSettings(t *testing.T, settingsContent string) func() {
	t.Helper()

	tmpDir := t.TempDir()
	os.Setenv(constants.EnvConfigDir, tmpDir)

	if settingsContent != "" {
		path := filepath.Join(tmpDir, constants.SettingsFileName)
		if err := os.WriteFile(path, []byte(settingsContent), constants.FileMode); err != nil {
			t.Fatal(err)
		}
	}

	config.Reset()
	config.Init()

	return func() {
		os.Unsetenv(constants.EnvConfigDir)
		config.Reset()
	}
}

// WriteRuleFile writes a rule file into a temp directory and returns its
// path.
func WriteRuleFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), constants.FileMode); err != nil {
		t.Fatal(err)
	}
	return path
}
