package hook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/svnhook/svnhook/internal/logger"
	"github.com/svnhook/svnhook/internal/mail"
	"github.com/svnhook/svnhook/internal/rules"
	"mvdan.cc/sh/v3/shell"
)

func (e *Evaluator) setToken(n *rules.Node) (int, error) {
	e.Ctx.Tokens[n.TokenName] = e.Ctx.Expand(n.Payload)
	return 0, nil
}

// sendError writes the client-visible rejection message to stderr and
// terminates the walk with the configured exit code.
func (e *Evaluator) sendError(n *rules.Node) (int, error) {
	msg := e.Ctx.Expand(Dedent(n.Payload))
	for _, line := range strings.Split(msg, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			logger.Error(line)
		}
	}
	fmt.Fprint(e.Stderr, msg)
	return n.ExitCode, nil
}

// sendSmtp composes and transmits a notification. Failures are logged and
// never change the walk's outcome: a broken mail server must not block a
// repository operation.
func (e *Evaluator) sendSmtp(n *rules.Node) (int, error) {
	server := e.Ctx.Expand(n.Server)
	if server == "" {
		server = e.Settings.SMTP.Server
	}
	timeout := n.Timeout
	if timeout == 0 {
		timeout = e.Settings.SMTP.Timeout()
	}

	msg := &mail.Message{
		From:    e.Ctx.Expand(n.From),
		Subject: e.Ctx.Expand(n.Subject),
		Body:    e.Ctx.Expand(n.Message),
	}
	for _, to := range n.To {
		msg.To = append(msg.To, e.Ctx.Expand(to))
	}

	if err := e.Mailer.Send(server, timeout, msg); err != nil {
		logger.Error("notification failed", "server", server, "error", err)
	}
	return 0, nil
}

// executeCmd runs an external command with tokens substituted into its
// argument string. An exit code at or above errorLevel aborts the hook with
// that code and the command's stderr.
func (e *Evaluator) executeCmd(n *rules.Node) (int, error) {
	cmdline := e.Ctx.Expand(n.Payload)
	fields, err := shell.Fields(cmdline, nil)
	if err != nil {
		return 0, fmt.Errorf("unparseable command line %q: %w", cmdline, err)
	}
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty command line")
	}

	logger.Debug("executing command", "cmdline", cmdline, "errorLevel", n.ErrorLevel)

	ctx := context.Background()
	if timeout := e.Settings.CommandTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		logger.Error("command timed out", "cmdline", cmdline)
		fmt.Fprintf(e.Stderr, "Command timed out: %s\n", fields[0])
		return 1, nil
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			// The process never started. Non-maskable hook failure.
			return 0, fmt.Errorf("failed to start command %q: %w", fields[0], runErr)
		}
	}

	code := cmd.ProcessState.ExitCode()
	if code < 0 {
		logger.Error("command killed", "cmdline", cmdline)
		fmt.Fprint(e.Stderr, stderr.String())
		return 1, nil
	}
	if code >= n.ErrorLevel {
		logger.Error("command failed", "cmdline", cmdline, "exit", code)
		fmt.Fprint(e.Stderr, stderr.String())
		return code, nil
	}

	logger.Debug("command succeeded", "exit", code)
	return 0, nil
}

// sendLockToken emits the token Subversion should assign to the lock being
// created. Only the pre-lock hook reads stdout this way.
func (e *Evaluator) sendLockToken(n *rules.Node) (int, error) {
	if e.Ctx.Kind != PreLock {
		logger.Warn("SendLockToken ignored outside pre-lock", "hook", e.Ctx.Kind.String())
		return 0, nil
	}
	token := strings.TrimSpace(e.Ctx.Expand(n.Payload))
	if token == "" {
		token = "opaquelocktoken:" + uuid.NewString()
	}
	fmt.Fprint(e.Stdout, token)
	return 0, nil
}

var leadingNewlines = regexp.MustCompile(`^[\n\r]+`)

// Dedent strips leading blank lines and the whitespace margin common to all
// non-blank lines, so indented rule-file message blocks read cleanly on the
// client.
func Dedent(s string) string {
	s = leadingNewlines.ReplaceAllString(s, "")
	lines := strings.Split(s, "\n")

	margin := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			margin = indent
			first = false
			continue
		}
		for !strings.HasPrefix(indent, margin) {
			margin = margin[:len(margin)-1]
		}
	}
	if margin == "" {
		return s
	}

	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, margin)
	}
	return strings.Join(lines, "\n")
}
