package hook

import (
	"fmt"
	"io"
	"time"

	"github.com/svnhook/svnhook/internal/config"
	"github.com/svnhook/svnhook/internal/logger"
	"github.com/svnhook/svnhook/internal/mail"
	"github.com/svnhook/svnhook/internal/repo"
	"github.com/svnhook/svnhook/internal/rules"
)

// internalErrorMsg is the only text a client sees for failures that are the
// hook's fault rather than the commit's.
const internalErrorMsg = "Internal hook error. Please notify administrator.\n"

// Mailer delivers SendSmtp notifications. Satisfied by mail.Dialer; tests
// substitute fakes.
type Mailer interface {
	Send(server string, timeout time.Duration, msg *mail.Message) error
}

// Evaluator walks a compiled rule tree against one hook invocation. The
// walk is strictly sequential, depth-first, left-to-right: filters prune
// their subtree on mismatch, actions execute when reached, and the first
// non-zero action code aborts everything above it.
type Evaluator struct {
	Ctx       *Context
	Inspector repo.Inspector
	Mailer    Mailer
	Settings  *config.Settings
	Stdout    io.Writer
	Stderr    io.Writer
}

// Run evaluates the tree and returns the hook's exit code. Internal
// failures (inspection errors, unrunnable commands, bad subjects) abort
// with exit 1 and a generic client message; the detail goes to the log.
func (e *Evaluator) Run(root *rules.Node) int {
	code, err := e.runChildren(root)
	if err != nil {
		logger.Error("hook evaluation failed", "hook", e.Ctx.Kind.String(), "error", err)
		fmt.Fprint(e.Stderr, internalErrorMsg)
		return 1
	}
	return code
}

// runChildren executes sibling nodes in document order, stopping at the
// first non-zero exit code.
func (e *Evaluator) runChildren(n *rules.Node) (int, error) {
	for _, child := range n.Children {
		code, err := e.eval(child)
		if err != nil {
			return 0, err
		}
		if code != 0 {
			return code, nil
		}
	}
	return 0, nil
}

func (e *Evaluator) eval(n *rules.Node) (int, error) {
	logger.Debug("evaluating", "node", n.Kind.String())

	switch n.Kind {
	case rules.KindFilterAuthor:
		return e.filterAuthor(n)
	case rules.KindFilterUser:
		return e.filterSingle(n, "UserRegex", e.Ctx.User)
	case rules.KindFilterCapabilities:
		return e.filterSingle(n, "CapabilitiesRegex", e.Ctx.Capabilities)
	case rules.KindFilterLogMsg:
		return e.filterLogMsg(n)
	case rules.KindFilterComment:
		return e.filterSingle(n, "CommentRegex", e.Ctx.Comment)
	case rules.KindFilterPath:
		return e.filterSingle(n, "PathRegex", e.Ctx.Tokens["Path"])
	case rules.KindFilterChgType:
		return e.filterSingle(n, "ChgTypeRegex", e.Ctx.Tokens["ChgType"])
	case rules.KindFilterFileContent:
		return e.filterFileContent(n)
	case rules.KindFilterLockOwner:
		return e.filterLockOwner(n)
	case rules.KindFilterLockToken:
		return e.filterLockToken(n)
	case rules.KindFilterCommitList:
		return e.filterCommitList(n)
	case rules.KindFilterPathList:
		return e.filterPathList(n)
	case rules.KindFilterPropList:
		return e.filterPropList(n)
	case rules.KindFilterRevProp:
		return e.filterRevProp(n)
	case rules.KindFilterStealLock:
		return e.filterFlag(n, e.Ctx.Steal)
	case rules.KindFilterBreakUnlock:
		return e.filterFlag(n, e.Ctx.Break)

	case rules.KindSetToken:
		return e.setToken(n)
	case rules.KindSendError:
		return e.sendError(n)
	case rules.KindSendSmtp:
		return e.sendSmtp(n)
	case rules.KindExecuteCmd:
		return e.executeCmd(n)
	case rules.KindSendLockToken:
		return e.sendLockToken(n)
	}

	return 0, fmt.Errorf("action not recognized: %s", n.Kind)
}

// filterSingle handles filters whose subject is a single context value.
func (e *Evaluator) filterSingle(n *rules.Node, role, subject string) (int, error) {
	if !n.Conds[0].Matches(subject) {
		return 0, nil
	}
	return e.runChildren(n)
}

// filterFlag handles the sense-only filters over boolean hook arguments.
func (e *Evaluator) filterFlag(n *rules.Node, value bool) (int, error) {
	if value != n.Sense {
		return 0, nil
	}
	return e.runChildren(n)
}

func (e *Evaluator) filterAuthor(n *rules.Node) (int, error) {
	author, err := e.Inspector.Author()
	if err != nil {
		return 0, err
	}
	if !n.Cond("AuthorRegex").Matches(author) {
		return 0, nil
	}
	e.Ctx.Tokens["Author"] = author
	return e.runChildren(n)
}

func (e *Evaluator) filterLogMsg(n *rules.Node) (int, error) {
	logMsg, err := e.Inspector.LogMessage()
	if err != nil {
		return 0, err
	}
	if !n.Cond("LogMsgRegex").Matches(logMsg) {
		return 0, nil
	}
	e.Ctx.Tokens["LogMsg"] = logMsg
	return e.runChildren(n)
}

func (e *Evaluator) filterFileContent(n *rules.Node) (int, error) {
	path := e.Ctx.Tokens["Path"]
	if path == "" {
		return 0, fmt.Errorf("FilterFileContent has no current path")
	}
	content, err := e.Inspector.FileContent(path)
	if err != nil {
		return 0, err
	}
	if !n.Cond("ContentRegex").Matches(string(content)) {
		return 0, nil
	}
	return e.runChildren(n)
}

func (e *Evaluator) filterLockOwner(n *rules.Node) (int, error) {
	path := e.Ctx.Tokens["Path"]
	lock, err := e.Inspector.Lock(path)
	if err != nil {
		return 0, err
	}
	var owner string
	if lock != nil {
		owner = lock.Owner
	}
	if !n.Cond("LockOwnerRegex").Matches(owner) {
		return 0, nil
	}
	e.Ctx.Tokens["LockOwner"] = owner
	return e.runChildren(n)
}

func (e *Evaluator) filterLockToken(n *rules.Node) (int, error) {
	// Unlock hooks receive the token as an argument; pre-commit consults
	// the STDIN lock-token table for the current path.
	token := e.Ctx.LockToken
	if e.Ctx.Kind == PreCommit {
		token = e.Ctx.LockTokens[e.Ctx.Tokens["Path"]]
	}
	if !n.Cond("LockTokenRegex").Matches(token) {
		return 0, nil
	}
	e.Ctx.Tokens["LockToken"] = token
	return e.runChildren(n)
}

// filterCommitList iterates the changed-path entries. With both a path and
// a type condition, an entry must satisfy both. matchFirst=true runs the
// children once against the first matching entry; otherwise children run
// once per matching entry.
func (e *Evaluator) filterCommitList(n *rules.Node) (int, error) {
	changes, err := e.Inspector.Changed()
	if err != nil {
		return 0, err
	}
	pathCond := n.Cond("PathRegex")
	typeCond := n.Cond("ChgTypeRegex")

	for _, chg := range changes {
		if pathCond != nil && !pathCond.Matches(chg.Path) {
			continue
		}
		if typeCond != nil && !typeCond.Matches(chg.Type) {
			continue
		}
		e.Ctx.Tokens["Path"] = chg.Path
		e.Ctx.Tokens["ChgType"] = chg.Type

		code, err := e.runChildren(n)
		if err != nil || code != 0 || n.MatchFirst {
			return code, err
		}
	}
	return 0, nil
}

func (e *Evaluator) filterPathList(n *rules.Node) (int, error) {
	cond := n.Cond("PathRegex")
	for _, path := range e.Ctx.Paths {
		if !cond.Matches(path) {
			continue
		}
		e.Ctx.Tokens["Path"] = path

		code, err := e.runChildren(n)
		if err != nil || code != 0 || n.MatchFirst {
			return code, err
		}
	}
	return 0, nil
}

// filterPropList iterates properties of the current path, or the revision
// properties when no path has been narrowed.
func (e *Evaluator) filterPropList(n *rules.Node) (int, error) {
	props, err := e.Inspector.Properties(e.Ctx.Tokens["Path"])
	if err != nil {
		return 0, err
	}
	nameCond := n.Cond("PropNameRegex")
	valueCond := n.Cond("PropValueRegex")

	for _, prop := range props {
		if !nameCond.Matches(prop.Name) {
			continue
		}
		if valueCond != nil && !valueCond.Matches(prop.Value) {
			continue
		}
		e.Ctx.Tokens["PropName"] = prop.Name
		e.Ctx.Tokens["PropValue"] = prop.Value

		code, err := e.runChildren(n)
		if err != nil || code != 0 || n.MatchFirst {
			return code, err
		}
	}
	return 0, nil
}

func (e *Evaluator) filterRevProp(n *rules.Node) (int, error) {
	if !n.Cond("PropNameRegex").Matches(e.Ctx.PropName) {
		return 0, nil
	}
	if valueCond := n.Cond("PropValueRegex"); valueCond != nil {
		if !valueCond.Matches(e.Ctx.PropValue) {
			return 0, nil
		}
	}
	return e.runChildren(n)
}
