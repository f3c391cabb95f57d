package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors an optional "<name>-log.yml" document placed next to a
// hook rule file. It overrides the logger options for that hook only.
type FileConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
	Format string `yaml:"format"`
}

// SidecarPath returns the logging config path co-located with a rule file:
// "conf/pre-commit.xml" -> "conf/pre-commit-log.yml".
func SidecarPath(rulefile string) string {
	ext := filepath.Ext(rulefile)
	return strings.TrimSuffix(rulefile, ext) + "-log.yml"
}

// InitFromRuleFile initializes the global logger, honoring a co-located
// "<name>-log.yml" file when one exists. Without one, opts is used as-is.
func InitFromRuleFile(rulefile string, opts Options) error {
	sidecar := SidecarPath(rulefile)
	data, err := os.ReadFile(sidecar)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read %s: %w", sidecar, err)
		}
		Init(opts)
		return nil
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", sidecar, err)
	}

	switch strings.ToLower(fc.Level) {
	case "debug":
		opts.Verbose = true
	case "", "info", "warn", "warning", "error":
		// Only debug widens the default level.
	default:
		return fmt.Errorf("unknown log level %q in %s", fc.Level, sidecar)
	}

	if fc.Format == "json" {
		opts.JSON = true
	}

	if fc.File != "" {
		f, err := os.OpenFile(fc.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		opts.Output = f
	}

	Init(opts)
	return nil
}
