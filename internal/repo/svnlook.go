package repo

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/svnhook/svnhook/internal/logger"
)

// Svnlook implements Inspector by running the svnlook binary against a
// repository, scoped to a transaction or a revision. Single-value queries
// are cached for the lifetime of the inspector, which is one hook
// invocation.
type Svnlook struct {
	Bin       string
	ReposPath string
	// Txn scopes queries to a pending transaction (-t). Takes precedence
	// over Rev when both are set.
	Txn string
	// Rev scopes queries to a committed revision (-r).
	Rev string
	// Timeout bounds each svnlook execution.
	Timeout time.Duration

	author  *string
	logMsg  *string
	changes []Change
}

// run executes one svnlook subcommand and returns its stdout.
func (s *Svnlook) run(sub string, extra ...string) ([]byte, error) {
	args := []string{sub}
	if s.Txn != "" {
		args = append(args, "-t", s.Txn)
	} else if s.Rev != "" {
		args = append(args, "-r", s.Rev)
	}
	args = append(args, s.ReposPath)
	args = append(args, extra...)

	ctx := context.Background()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	logger.Debug("svnlook", "args", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, s.Bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%w: svnlook %s: %s", ErrInspection, sub, msg)
	}
	return stdout.Bytes(), nil
}

// runLine runs a subcommand and trims the trailing newline.
func (s *Svnlook) runLine(sub string, extra ...string) (string, error) {
	out, err := s.run(sub, extra...)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\r\n"), nil
}

func (s *Svnlook) Author() (string, error) {
	if s.author == nil {
		v, err := s.runLine("author")
		if err != nil {
			return "", err
		}
		s.author = &v
	}
	return *s.author, nil
}

func (s *Svnlook) LogMessage() (string, error) {
	if s.logMsg == nil {
		v, err := s.runLine("log")
		if err != nil {
			return "", err
		}
		s.logMsg = &v
	}
	return *s.logMsg, nil
}

func (s *Svnlook) Changed() ([]Change, error) {
	if s.changes == nil {
		out, err := s.run("changed")
		if err != nil {
			return nil, err
		}
		s.changes = ParseChanged(string(out))
	}
	return s.changes, nil
}

func (s *Svnlook) FileContent(path string) ([]byte, error) {
	return s.run("cat", path)
}

func (s *Svnlook) Properties(path string) ([]Property, error) {
	var names []byte
	var err error
	if path == "" {
		names, err = s.run("proplist", "--revprop")
	} else {
		names, err = s.run("proplist", path)
	}
	if err != nil {
		return nil, err
	}

	var props []Property
	for _, line := range strings.Split(string(names), "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		var value string
		if path == "" {
			value, err = s.runLine("propget", "--revprop", name)
		} else {
			value, err = s.runLine("propget", name, path)
		}
		if err != nil {
			return nil, err
		}
		props = append(props, Property{Name: name, Value: value})
	}
	return props, nil
}

func (s *Svnlook) Lock(path string) (*LockInfo, error) {
	out, err := s.run("lock", path)
	if err != nil {
		return nil, err
	}
	return ParseLock(string(out)), nil
}

// ParseLock parses "svnlook lock" output. Empty output means no lock.
func ParseLock(out string) *LockInfo {
	if strings.TrimSpace(out) == "" {
		return nil
	}
	info := &LockInfo{}
	var inComment bool
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "UUID Token: "):
			info.Token = strings.TrimPrefix(line, "UUID Token: ")
			inComment = false
		case strings.HasPrefix(line, "Owner: "):
			info.Owner = strings.TrimPrefix(line, "Owner: ")
			inComment = false
		case strings.HasPrefix(line, "Comment "):
			inComment = true
		case inComment:
			if info.Comment != "" {
				info.Comment += "\n"
			}
			info.Comment += line
		}
	}
	info.Comment = strings.TrimRight(info.Comment, "\n")
	return info
}

// ParseChanged parses "svnlook changed" output. The column separating the
// change flags from the path is detected on the first line and reused for
// the rest, since flag width varies between svnlook versions.
func ParseChanged(out string) []Change {
	var changes []Change
	delim := -1
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if delim < 0 {
			delim = changedDelim(line)
		}
		if len(line) <= delim {
			continue
		}
		changes = append(changes, Change{
			Type: strings.TrimRight(line[:delim], " "),
			Path: line[delim:],
		})
	}

	// A path that was both added and deleted in one commit is a
	// replacement.
	type addDel struct{ add, del bool }
	paths := make(map[string]*addDel)
	for _, c := range changes {
		ad := paths[c.Path]
		if ad == nil {
			ad = &addDel{}
			paths[c.Path] = ad
		}
		ad.add = ad.add || c.IsAdd()
		ad.del = ad.del || c.IsDelete()
	}
	for i := range changes {
		ad := paths[changes[i].Path]
		changes[i].Replaced = ad.add && ad.del
	}
	return changes
}

// changedDelim finds the index of the first path character: the first
// non-space run is the flags, then spaces, then the path.
func changedDelim(line string) int {
	state := 0
	for i, ch := range line {
		switch state {
		case 0:
			if ch != ' ' {
				state = 1
			}
		case 1:
			if ch == ' ' {
				state = 2
			}
		case 2:
			if ch != ' ' {
				return i
			}
		}
	}
	return len(line)
}
