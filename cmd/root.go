// Package cmd implements the CLI commands for svnhook.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/svnhook/svnhook/internal/config"
)

var (
	// Global flags
	verbose    bool
	cfgFile    string
	noAuditLog bool
)

// exitCode is the process exit code set by the hook subcommands.
var exitCode int

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "svnhook",
	Short: "Subversion repository hook dispatcher",
	Long: `svnhook handles Subversion repository hook events by evaluating an XML
rule file of filters and actions against the event's metadata.

Each Subversion hook script forwards its arguments and STDIN to the
matching subcommand, for example in hooks/pre-commit:

  #!/bin/sh
  exec svnhook pre-commit --cfgfile /srv/svn/conf/pre-commit.xml "$@"

The process exit code is the hook result: 0 lets the operation proceed,
anything else aborts it with the stderr text shown to the client.`,
	SilenceUsage: true,
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return exitCode
}

func init() {
	cobra.OnInitialize(initApp)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "cfgfile", "", "Path of the hook rule file (default <configdir>/<hook>.xml)")
	rootCmd.PersistentFlags().BoolVar(&noAuditLog, "no-audit-log", false, "Disable audit logging")
}

// initApp loads the engine settings before any command runs. The logger is
// initialized later, once the rule file (and its optional logging sidecar)
// is known.
func initApp() {
	config.Init()
}

// IsVerbose returns whether verbose mode is enabled
func IsVerbose() bool {
	return verbose
}
