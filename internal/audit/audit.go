// Package audit records one JSONL entry per hook invocation: which hook
// ran, against what, and how it exited. The log is the operator's answer to
// "why did that commit bounce".
package audit

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/svnhook/svnhook/internal/constants"
	"github.com/svnhook/svnhook/internal/logger"
)

// Audit log version
const Version = 1

// TimestampFormat is the format used for audit log timestamps.
const TimestampFormat = "2006-01-02T15:04:05.0Z07:00"

// Entry represents a single audit log entry (v1 format).
type Entry struct {
	Version       int     `json:"version"`
	Timestamp     string  `json:"timestamp"`
	Hook          string  `json:"hook"`
	ReposPath     string  `json:"repos_path"`
	Txn           string  `json:"txn,omitempty"`
	Revision      string  `json:"revision,omitempty"`
	User          string  `json:"user,omitempty"`
	RuleFile      string  `json:"rule_file"`
	ExitCode      int     `json:"exit_code"`
	DurationMs    float64 `json:"duration_ms"`
	ClientMessage string  `json:"client_message,omitempty"`
	SettingsError string  `json:"settings_error,omitempty"`
}

var (
	auditFile *os.File
	mu        sync.Mutex
	enabled   bool
)

// DefaultLogPath returns the default audit log path
// (~/.local/share/svnhook/audit.log)
func DefaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", constants.AppName, "audit.log"), nil
}

// Init initializes the audit log. If path is empty, uses the default path.
// A maxSize > 0 rotates the existing log to a gzip archive once it grows
// past that size.
func Init(path string, disable bool, maxSize int64) error {
	mu.Lock()
	defer mu.Unlock()

	if disable {
		enabled = false
		return nil
	}

	if path == "" {
		var err error
		path, err = DefaultLogPath()
		if err != nil {
			logger.Debug("failed to get default audit log path", "error", err)
			return err
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, constants.DirMode); err != nil {
		logger.Debug("failed to create audit log directory", "error", err)
		return err
	}

	if maxSize > 0 {
		if err := rotate(path, maxSize); err != nil {
			// Rotation failure is not worth losing the entry over.
			logger.Warn("audit log rotation failed", "error", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, constants.FileMode)
	if err != nil {
		logger.Debug("failed to open audit log file", "error", err)
		return err
	}

	auditFile = f
	enabled = true
	logger.Debug("audit logging initialized", "path", path)
	return nil
}

// rotate moves an oversized log aside as a gzip archive and starts fresh.
func rotate(path string, maxSize int64) error {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if fi.Size() <= maxSize {
		return nil
	}

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(path+".1.gz", os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.FileMode)
	if err != nil {
		return err
	}

	zw := gzip.NewWriter(dst)
	if _, err := io.Copy(zw, src); err != nil {
		zw.Close()
		dst.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	logger.Debug("rotated audit log", "path", path, "size", fi.Size())
	return os.Truncate(path, 0)
}

// Close closes the audit log file.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if auditFile != nil {
		err := auditFile.Close()
		auditFile = nil
		enabled = false
		return err
	}
	return nil
}

// Log writes an entry to the audit log.
// If audit logging is not initialized or disabled, this is a no-op.
func Log(entry Entry) error {
	mu.Lock()
	defer mu.Unlock()

	if !enabled || auditFile == nil {
		return nil
	}

	entry.Version = Version
	entry.Timestamp = time.Now().UTC().Format(TimestampFormat)

	data, err := json.Marshal(entry)
	if err != nil {
		logger.Debug("failed to marshal audit entry", "error", err)
		return err
	}

	if _, err := auditFile.Write(append(data, '\n')); err != nil {
		logger.Debug("failed to write audit entry", "error", err)
		return err
	}

	return nil
}

// IsEnabled returns whether audit logging is enabled.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Reset resets the audit state. Used for testing.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	if auditFile != nil {
		auditFile.Close()
	}
	auditFile = nil
	enabled = false
}
