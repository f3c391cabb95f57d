// Package hook implements the core of svnhook: the per-invocation event
// context and the rule tree evaluator that turns hook facts plus a compiled
// rule file into an exit code.
package hook

import "fmt"

// Kind identifies the Subversion hook being handled.
type Kind int

const (
	StartCommit Kind = iota
	PreCommit
	PostCommit
	PreRevPropChange
	PostRevPropChange
	PreLock
	PostLock
	PreUnlock
	PostUnlock
)

var kindNames = map[Kind]string{
	StartCommit:       "start-commit",
	PreCommit:         "pre-commit",
	PostCommit:        "post-commit",
	PreRevPropChange:  "pre-revprop-change",
	PostRevPropChange: "post-revprop-change",
	PreLock:           "pre-lock",
	PostLock:          "post-lock",
	PreUnlock:         "pre-unlock",
	PostUnlock:        "post-unlock",
}

// String returns the Subversion hook name, e.g. "pre-commit".
func (k Kind) String() string {
	return kindNames[k]
}

// ArgCount returns the positional argument count Subversion passes for the
// hook kind.
func (k Kind) ArgCount() int {
	switch k {
	case StartCommit:
		return 3 // repos, user, capabilities
	case PreCommit, PostCommit:
		return 2 // repos, txn | repos, rev
	case PreRevPropChange, PostRevPropChange:
		return 5 // repos, rev, user, propname, action
	case PreLock, PreUnlock:
		return 5 // repos, path, user, comment|token, steal|break
	case PostLock, PostUnlock:
		return 2 // repos, user
	}
	panic(fmt.Sprintf("unknown hook kind %d", int(k)))
}

// Transactional reports whether the hook inspects a pending transaction
// rather than a committed revision.
func (k Kind) Transactional() bool {
	return k == PreCommit
}
