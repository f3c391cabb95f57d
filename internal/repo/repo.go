// Package repo answers read-only queries about a revision or transaction.
//
// The engine never touches repository storage itself; everything goes
// through the Inspector interface, implemented here on top of svnlook.
package repo

import (
	"errors"
	"strings"
)

// ErrInspection wraps every repository query failure. There is no recovery
// path for missing repository facts: callers surface it as a fatal error.
var ErrInspection = errors.New("inspection failed")

// Change is one entry of the changed-path listing.
type Change struct {
	// Type is the svnlook change code: "A", "D", "U", "_U", "UU".
	Type string
	// Path is the repository path, directories with a trailing slash.
	Path string
	// Replaced is set when the same path was both added and deleted.
	Replaced bool
}

// IsAdd reports whether the change adds the path.
func (c Change) IsAdd() bool { return strings.HasPrefix(c.Type, "A") }

// IsDelete reports whether the change deletes the path.
func (c Change) IsDelete() bool { return strings.HasPrefix(c.Type, "D") }

// Property is a name/value pair from a property listing.
type Property struct {
	Name  string
	Value string
}

// LockInfo describes an existing path lock.
type LockInfo struct {
	Token   string
	Owner   string
	Comment string
}

// Inspector is the read-only repository query surface consumed by the
// evaluator. Implementations must be safe for use from independent hook
// processes; a single evaluation calls it sequentially.
type Inspector interface {
	// Author returns the commit author of the revision or transaction.
	Author() (string, error)
	// LogMessage returns the commit log message.
	LogMessage() (string, error)
	// Changed returns the changed-path entries in listing order.
	Changed() ([]Change, error)
	// FileContent returns the content of a file at the given path.
	FileContent(path string) ([]byte, error)
	// Properties lists properties of the path, or the revision properties
	// when path is empty.
	Properties(path string) ([]Property, error)
	// Lock returns lock details for the path, or nil when unlocked.
	Lock(path string) (*LockInfo, error)
}
