package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/svnhook/svnhook/internal/audit"
	"github.com/svnhook/svnhook/internal/config"
	"github.com/svnhook/svnhook/internal/hook"
	"github.com/svnhook/svnhook/internal/logger"
	"github.com/svnhook/svnhook/internal/mail"
	"github.com/svnhook/svnhook/internal/repo"
	"github.com/svnhook/svnhook/internal/rules"
)

// hookUse maps each hook kind to its positional argument usage line, taken
// from the Subversion hook protocol.
var hookUse = map[hook.Kind]string{
	hook.StartCommit:       "start-commit REPOS USER CAPABILITIES",
	hook.PreCommit:         "pre-commit REPOS TXN",
	hook.PostCommit:        "post-commit REPOS REV",
	hook.PreRevPropChange:  "pre-revprop-change REPOS REV USER PROPNAME ACTION",
	hook.PostRevPropChange: "post-revprop-change REPOS REV USER PROPNAME ACTION",
	hook.PreLock:           "pre-lock REPOS PATH USER COMMENT STEAL",
	hook.PostLock:          "post-lock REPOS USER",
	hook.PreUnlock:         "pre-unlock REPOS PATH USER TOKEN BREAK",
	hook.PostUnlock:        "post-unlock REPOS USER",
}

func init() {
	for _, kind := range []hook.Kind{
		hook.StartCommit, hook.PreCommit, hook.PostCommit,
		hook.PreRevPropChange, hook.PostRevPropChange,
		hook.PreLock, hook.PostLock, hook.PreUnlock, hook.PostUnlock,
	} {
		rootCmd.AddCommand(newHookCmd(kind))
	}
}

func newHookCmd(kind hook.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   hookUse[kind],
		Short: fmt.Sprintf("Handle %s hook calls", kind),
		Args:  cobra.ArbitraryArgs,
		Run: func(cmd *cobra.Command, args []string) {
			exitCode = runHook(kind, args, os.Stdin, os.Stdout, os.Stderr)
		},
	}
}

// runHook is the hook entry point: build the event context, load the rule
// file, evaluate, audit, and return the process exit code.
func runHook(kind hook.Kind, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	start := time.Now()
	settings := config.Get()

	rulefile := cfgFile
	if rulefile == "" {
		configDir, err := config.GetConfigDir()
		if err != nil {
			fmt.Fprint(stderr, "Internal hook error. Please notify administrator.\n")
			return 1
		}
		rulefile = filepath.Join(configDir, kind.String()+".xml")
	}

	if err := logger.InitFromRuleFile(rulefile, logger.Options{Verbose: verbose}); err != nil {
		logger.Init(logger.Options{Verbose: verbose})
		logger.Error("logging setup failed", "error", err)
	}
	logger.Debug("hook invoked", "hook", kind.String(), "args", args)

	audit.Init(settings.Audit.Path, noAuditLog || settings.Audit.Disable, settings.Audit.MaxSizeBytes)
	defer audit.Close()

	// Client-visible stderr is mirrored into the audit entry.
	var clientMsg bytes.Buffer

	entry := audit.Entry{Hook: kind.String(), RuleFile: rulefile}
	if err := config.InitError(); err != nil {
		entry.SettingsError = err.Error()
	}
	logEntry := func(code int) int {
		entry.ExitCode = code
		entry.DurationMs = float64(time.Since(start).Microseconds()) / 1000.0
		entry.ClientMessage = clientMsg.String()
		audit.Log(entry)
		return code
	}

	ctx, err := hook.NewContext(kind, args, stdin)
	if err != nil {
		logger.Error("invalid hook invocation", "hook", kind.String(), "error", err)
		fmt.Fprintf(stderr, "Invalid hook invocation: %v\n", err)
		return logEntry(1)
	}
	entry.ReposPath = ctx.ReposPath
	entry.Txn = ctx.Txn
	entry.Revision = ctx.Revision
	entry.User = ctx.User

	root, err := rules.Load(rulefile)
	if err != nil {
		logger.Error("unable to load hook rule file", "path", rulefile, "error", err)
		fmt.Fprint(stderr, "Internal hook error. Please notify administrator.\n")
		return logEntry(1)
	}

	inspector := &repo.Svnlook{
		Bin:       settings.Svnlook,
		ReposPath: ctx.ReposPath,
		Timeout:   settings.CommandTimeout(),
	}
	if kind.Transactional() {
		inspector.Txn = ctx.Txn
	} else {
		inspector.Rev = ctx.Revision
	}

	ev := &hook.Evaluator{
		Ctx:       ctx,
		Inspector: inspector,
		Mailer:    mail.Dialer{},
		Settings:  settings,
		Stdout:    stdout,
		Stderr:    io.MultiWriter(stderr, &clientMsg),
	}

	code := ev.Run(root)
	logger.Debug("hook finished", "hook", kind.String(), "exit", code)
	return logEntry(code)
}
