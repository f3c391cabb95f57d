// svnhook - Subversion repository hook dispatcher
//
// One subcommand per Subversion hook kind reads the hook's positional
// arguments and STDIN payload, evaluates the matching XML rule file of
// filters and actions, and exits with the hook result.
//
// Install in a repository's hooks directory:
//
//	#!/bin/sh
//	exec svnhook pre-commit --cfgfile /srv/svn/conf/pre-commit.xml "$@"
//
// Test a rule file:
//
//	svnhook validate /srv/svn/conf/pre-commit.xml
package main

import (
	"os"

	"github.com/svnhook/svnhook/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
